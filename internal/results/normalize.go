package results

import (
	"regexp"
	"strings"
)

// Timing suffixes vary between runs and make the same logical test look
// like two different tests, so they are stripped before any set math.
var (
	// Pest/Mocha style: "test name   0.01s"
	trailingSecondsRe = regexp.MustCompile(`\s+\d+\.\d+s$`)
	// Jest style: "test name (123ms)" or "test name (1.23s)"
	parenTimingRe = regexp.MustCompile(`\s*\(\d+(?:\.\d+)?\s*m?s\)$`)
	// Whitespace runs left behind after stripping timings.
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeName strips volatile timing suffixes and collapses doubled
// whitespace so a test name compares equal across runs.
func NormalizeName(name string) string {
	if name == "" {
		return name
	}
	n := strings.TrimRight(name, " \t")
	n = trailingSecondsRe.ReplaceAllString(n, "")
	n = parenTimingRe.ReplaceAllString(n, "")
	n = multiSpaceRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// NormalizeSet normalizes a list of raw test names into a deduplicated set.
func NormalizeSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[NormalizeName(n)] = true
	}
	delete(set, "")
	return set
}
