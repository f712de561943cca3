package envbuild

import (
	"github.com/prforge/prforge/internal/lang"
)

// EnvSpec is the mutable environment description. Healing never edits a
// rendered Dockerfile in place: it mutates this spec and the next attempt
// re-renders from scratch, so the final spec fully describes the image
// that was built.
type EnvSpec struct {
	Language        lang.Language
	BaseImage       string
	Toolchain       string // rust channel; "stable" unless healed to "nightly"
	SystemPackages  []string
	GoProxyFallback bool
	NoCache         bool
}

// NewSpec returns the initial spec for a language.
func NewSpec(l lang.Language, baseImage string) EnvSpec {
	return EnvSpec{
		Language:  l,
		BaseImage: baseImage,
		Toolchain: "stable",
	}
}

// addPackages appends system packages not already present.
func (s *EnvSpec) addPackages(pkgs []string) (added []string) {
	have := make(map[string]bool, len(s.SystemPackages))
	for _, p := range s.SystemPackages {
		have[p] = true
	}
	for _, p := range pkgs {
		if !have[p] {
			s.SystemPackages = append(s.SystemPackages, p)
			have[p] = true
			added = append(added, p)
		}
	}
	return added
}
