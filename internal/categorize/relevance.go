package categorize

import (
	"path/filepath"
	"strings"

	"github.com/prforge/prforge/internal/patch"
)

// A relevance rule conservatively maps a test name to the source
// module(s) it most plausibly exercises, matched against the change
// set's non-test paths. The rules are heuristics and deliberately
// strict: over-inclusion would inflate PASS_TO_PASS with a large
// repository's entire unrelated suite.
type relevanceRule func(test string, changes *patch.ChangeSet, minStem int) bool

var rules = map[string]relevanceRule{
	"go":      goRelevant,
	"rust":    rustRelevant,
	"python":  pythonRelevant,
	"node":    nodeRelevant,
	"generic": genericRelevant,
}

func ruleFor(key string) relevanceRule {
	if r, ok := rules[key]; ok {
		return r
	}
	return rules["generic"]
}

// goRelevant matches go test names ("pkg/path.TestName" or "TestName")
// against changed package directories and file stems.
func goRelevant(test string, changes *patch.ChangeSet, minStem int) bool {
	testLower := strings.ToLower(test)
	for mod := range goModules(changes.SourceFiles) {
		if len(mod) >= minStem && strings.Contains(testLower, strings.ToLower(mod)) {
			return true
		}
	}
	return stemMatch(testLower, changes, minStem)
}

// goModules extracts package-ish identifiers from changed .go paths:
// the containing directory plus path components, skipping layout-only
// segments.
func goModules(files []string) map[string]bool {
	skip := map[string]bool{".": true, "..": true, "internal": true, "pkg": true, "cmd": true}
	mods := make(map[string]bool)
	for _, f := range files {
		if filepath.Ext(f) != ".go" {
			continue
		}
		slash := filepath.ToSlash(f)
		if dir := filepath.Base(filepath.Dir(slash)); !skip[dir] && dir != "/" {
			mods[dir] = true
		}
		for _, part := range strings.Split(filepath.Dir(slash), "/") {
			if !skip[part] && part != "" {
				mods[part] = true
			}
		}
		mods[strings.TrimSuffix(filepath.Base(slash), ".go")] = true
	}
	return mods
}

// rustRelevant matches "module::path::test_name" segments against
// changed file stems and directories.
func rustRelevant(test string, changes *patch.ChangeSet, minStem int) bool {
	segments := strings.Split(strings.ToLower(test), "::")
	for _, f := range changes.SourceFiles {
		slash := strings.ToLower(filepath.ToSlash(f))
		stem := strings.TrimSuffix(filepath.Base(slash), filepath.Ext(slash))
		for _, seg := range segments {
			if len(stem) >= minStem && (seg == stem || strings.Contains(seg, stem)) {
				return true
			}
		}
		for _, part := range strings.Split(filepath.Dir(slash), "/") {
			if len(part) < minStem || part == "src" || part == "tests" {
				continue
			}
			for _, seg := range segments {
				if seg == part {
					return true
				}
			}
		}
	}
	return testFileChanged(test, changes, minStem)
}

// pythonRelevant matches test naming conventions: test_<stem>,
// <stem>_test, or the stem appearing anywhere in the test id.
func pythonRelevant(test string, changes *patch.ChangeSet, minStem int) bool {
	testLower := strings.ToLower(test)
	for _, f := range changes.SourceFiles {
		stem := strings.ToLower(fileStem(f))
		if len(stem) < minStem {
			continue
		}
		if strings.Contains(testLower, "test_"+stem) ||
			strings.Contains(testLower, stem+"_test") ||
			strings.Contains(testLower, stem) {
			return true
		}
	}
	return testFileChanged(test, changes, minStem)
}

// nodeRelevant matches source stems against test names, with .test and
// .spec suffixes stripped first.
func nodeRelevant(test string, changes *patch.ChangeSet, minStem int) bool {
	testLower := strings.ToLower(test)
	for _, f := range changes.SourceFiles {
		stem := strings.ToLower(fileStem(f))
		stem = strings.TrimSuffix(strings.TrimSuffix(stem, ".test"), ".spec")
		if len(stem) >= minStem && strings.Contains(testLower, stem) {
			return true
		}
	}
	return testFileChanged(test, changes, minStem)
}

// genericRelevant is the fallback: any changed source stem appearing in
// the test name.
func genericRelevant(test string, changes *patch.ChangeSet, minStem int) bool {
	return stemMatch(strings.ToLower(test), changes, minStem)
}

func stemMatch(testLower string, changes *patch.ChangeSet, minStem int) bool {
	for _, f := range changes.SourceFiles {
		stem := strings.ToLower(fileStem(f))
		if len(stem) >= minStem && strings.Contains(testLower, stem) {
			return true
		}
	}
	return testFileChanged(testLower, changes, minStem)
}

// testFileChanged reports whether the change modified a test file whose
// stem appears in the test name; a changed test is always relevant to
// itself.
func testFileChanged(test string, changes *patch.ChangeSet, minStem int) bool {
	testLower := strings.ToLower(test)
	for _, f := range changes.TestFiles {
		stem := strings.ToLower(fileStem(f))
		stem = strings.TrimSuffix(strings.TrimSuffix(stem, ".test"), ".spec")
		stem = strings.TrimPrefix(strings.TrimSuffix(stem, "_test"), "test_")
		if len(stem) >= minStem && strings.Contains(testLower, stem) {
			return true
		}
	}
	return false
}

func fileStem(path string) string {
	base := filepath.Base(filepath.ToSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
