package envbuild

import (
	"fmt"
	"regexp"
	"strings"
)

// Debian package names for common pkg-config libraries, mostly the
// system dependencies of native build crates and extensions.
var libraryPackages = map[string][]string{
	"openssl":    {"libssl-dev", "pkg-config"},
	"libssl":     {"libssl-dev", "pkg-config"},
	"libcrypto":  {"libssl-dev", "pkg-config"},
	"sqlite3":    {"libsqlite3-dev"},
	"libpq":      {"libpq-dev"},
	"zlib":       {"zlib1g-dev"},
	"bzip2":      {"libbz2-dev"},
	"lzma":       {"liblzma-dev"},
	"zstd":       {"libzstd-dev"},
	"libcurl":    {"libcurl4-openssl-dev"},
	"libssh2":    {"libssh2-1-dev"},
	"gnutls":     {"libgnutls28-dev"},
	"freetype2":  {"libfreetype6-dev"},
	"fontconfig": {"libfontconfig1-dev"},
	"libffi":     {"libffi-dev"},
	"libxml-2.0": {"libxml2-dev"},
	"libpng":     {"libpng-dev"},
	"libjpeg":    {"libjpeg-dev"},
	"expat":      {"libexpat1-dev"},
	"alsa":       {"libasound2-dev"},
	"dbus-1":     {"libdbus-1-dev"},
	"libudev":    {"libudev-dev"},
}

var (
	systemLibraryRe = regexp.MustCompile("the system library [`']([^`']+)[`']")
	pcFileRe        = regexp.MustCompile("the file [`']([^`']+)\\.pc[`']")
)

// extractMissingLibrary pulls the pkg-config library name out of build
// output.
func extractMissingLibrary(output string) string {
	lower := strings.ToLower(output)
	if m := systemLibraryRe.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	if m := pcFileRe.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	return ""
}

// packagesForLibrary maps a pkg-config name to apt packages, falling back
// to the lib<name>-dev naming convention.
func packagesForLibrary(library string) []string {
	if pkgs, ok := libraryPackages[library]; ok {
		return pkgs
	}
	if strings.HasPrefix(library, "lib") {
		if pkgs, ok := libraryPackages[library[3:]]; ok {
			return pkgs
		}
		return []string{library + "-dev"}
	}
	if pkgs, ok := libraryPackages["lib"+library]; ok {
		return pkgs
	}
	return []string{"lib" + library + "-dev"}
}

// Heal derives a mutated spec for a classified failure. It returns the
// new spec, a description of the action taken, and whether a mutation was
// possible. A false return means the classification looked healable but
// the output carried too little information to act on.
func Heal(spec EnvSpec, class string, output string) (EnvSpec, string, bool) {
	switch class {
	case ClassMissingSystemLib:
		library := extractMissingLibrary(output)
		if library == "" {
			return spec, "", false
		}
		added := spec.addPackages(packagesForLibrary(library))
		if len(added) == 0 {
			// Same packages already tried; another attempt cannot differ.
			return spec, "", false
		}
		return spec, fmt.Sprintf("added system packages %s for library %s", strings.Join(added, " "), library), true

	case ClassRustEdition2024, ClassRustUnstableFeature:
		if spec.Toolchain == "nightly" {
			return spec, "", false
		}
		spec.Toolchain = "nightly"
		return spec, "switched rust toolchain to nightly", true

	case ClassNetwork, ClassGoModuleDownload:
		if spec.Language.Name == "go" && !spec.GoProxyFallback {
			spec.GoProxyFallback = true
			return spec, "enabled GOPROXY fallback mirrors", true
		}
		// Transient network failure: retry the same spec once.
		if !spec.NoCache {
			spec.NoCache = true
			return spec, "retrying without build cache", true
		}
		return spec, "", false

	case ClassAptRepository, ClassMissingDependency:
		if spec.NoCache {
			return spec, "", false
		}
		spec.NoCache = true
		return spec, "rebuilding without cache to refresh dependencies", true
	}

	return spec, "", false
}
