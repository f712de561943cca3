package envbuild

import "strings"

// Classification of a failed build attempt. The set is fixed; healing
// dispatches on it and refuses to loop on anything it cannot address.
const (
	ClassNixRequired         = "requires_nix_package_manager"
	ClassMissingSystemLib    = "missing_system_library"
	ClassRustEdition2024     = "rust_edition2024"
	ClassRustUnstableFeature = "rust_unstable_feature"
	ClassNetwork             = "network_error"
	ClassAptRepository       = "apt_repository_error"
	ClassGoModuleDownload    = "go_module_download_error"
	ClassMissingDependency   = "missing_dependency"
	ClassCompilation         = "compilation_error"
	ClassMemory              = "memory_error"
	ClassDiskSpace           = "disk_space_error"
	ClassUnclassified        = "unclassified"
)

type classifyRule struct {
	match func(lower string) bool
	class string
}

func anyOf(subs ...string) func(string) bool {
	return func(lower string) bool {
		for _, s := range subs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

func allOf(subs ...string) func(string) bool {
	return func(lower string) bool {
		for _, s := range subs {
			if !strings.Contains(lower, s) {
				return false
			}
		}
		return true
	}
}

// Evaluated in order, first match wins. Nix libraries must come before the
// generic missing-library rules: they look like pkg-config failures but
// cannot be healed with apt packages.
var classifyRules = []classifyRule{
	{func(l string) bool {
		return containsNixLibrary(l) && strings.Contains(l, "not found")
	}, ClassNixRequired},
	{allOf("pkg-config", "not found"), ClassMissingSystemLib},
	{allOf("the system library", "was not found"), ClassMissingSystemLib},
	{allOf("pkg_config_path", "needs to be installed"), ClassMissingSystemLib},
	{anyOf("edition2024", "edition 2024"), ClassRustEdition2024},
	{allOf("feature", "is required", "not stabilized"), ClassRustUnstableFeature},
	{anyOf("connection refused", "connection timed out",
		"temporary failure in name resolution", "could not resolve host"), ClassNetwork},
	{anyOf("404  not found", "failed to fetch",
		"does not have a release file", "some index files failed to download"), ClassAptRepository},
	{func(l string) bool {
		return (strings.Contains(l, "go: finding module") || strings.Contains(l, "go: downloading")) &&
			(strings.Contains(l, "connection") || strings.Contains(l, "timeout"))
	}, ClassGoModuleDownload},
	{anyOf("cannot find package", "no required module provides"), ClassMissingDependency},
	{anyOf("error: failed to download", "no such file or directory"), ClassMissingDependency},
	{anyOf("syntax error", "compilation error", "cannot compile"), ClassCompilation},
	{anyOf("out of memory", "cannot allocate memory"), ClassMemory},
	{anyOf("no space left"), ClassDiskSpace},
}

// Classify maps raw build output onto the failure taxonomy. The fallback
// is an explicit unclassified entry, never a guess.
func Classify(output string) string {
	lower := strings.ToLower(output)
	for _, r := range classifyRules {
		if r.match(lower) {
			return r.class
		}
	}
	return ClassUnclassified
}

var healable = map[string]bool{
	ClassMissingSystemLib:    true,
	ClassRustEdition2024:     true,
	ClassRustUnstableFeature: true,
	ClassNetwork:             true,
	ClassAptRepository:       true,
	ClassGoModuleDownload:    true,
	ClassMissingDependency:   true,
}

// Healable reports whether a classification admits a spec mutation.
// Unclassified failures and those needing a different package manager or
// fixed source code stop the build immediately.
func Healable(class string) bool {
	return healable[class]
}

var nixLibraryIndicators = []string{
	"nix-flake-c", "nix-cmd-c", "nix-fetchers-c", "nix-main-c",
	"nix-store-c", "nix-expr-c", "nixflake", "nixcmd", "nixfetchers",
	"nix-bindings", "libnix",
}

func containsNixLibrary(lower string) bool {
	for _, ind := range nixLibraryIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
