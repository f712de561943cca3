package lang

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Detect identifies the repository language from dependency files, using
// the extensions of the PR's changed files as a tie-breaker. CLI language
// overrides bypass detection entirely.
func Detect(repoDir string, changedFiles []string) (Language, error) {
	var candidates []Language
	for _, l := range table {
		for _, dep := range l.DependencyFiles {
			if _, err := os.Stat(filepath.Join(repoDir, dep)); err == nil {
				candidates = append(candidates, l)
				break
			}
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		if l, ok := detectFromExtensions(changedFiles); ok {
			return l, nil
		}
		return Language{}, fmt.Errorf("no dependency files found in %s (looked for %s)", repoDir, strings.Join(allDependencyFiles(), ", "))
	}

	// Polyglot repo: let the changed files decide between candidates.
	if l, ok := detectFromExtensions(changedFiles); ok {
		for _, c := range candidates {
			if c.Name == l.Name {
				return c, nil
			}
		}
	}
	return candidates[0], nil
}

// detectFromExtensions votes by changed-file extension.
func detectFromExtensions(files []string) (Language, bool) {
	votes := make(map[string]int)
	for _, f := range files {
		if name, ok := extensions[filepath.Ext(f)]; ok {
			votes[name]++
		}
	}
	best, bestCount := "", 0
	for name, count := range votes {
		if count > bestCount {
			best, bestCount = name, count
		}
	}
	if best == "" {
		return Language{}, false
	}
	l, ok := Lookup(best)
	return l, ok
}

// IsTestFile reports whether a changed path looks like a test file for
// this language.
func (l Language) IsTestFile(path string) bool {
	base := filepath.Base(path)
	slash := filepath.ToSlash(path)
	for _, pat := range l.TestFilePatterns {
		if strings.Contains(pat, "/") {
			// Directory patterns like "tests/*.rs" match any segment.
			dir := strings.SplitN(pat, "/", 2)[0]
			file := strings.SplitN(pat, "/", 2)[1]
			for _, seg := range strings.Split(filepath.Dir(slash), "/") {
				if seg == dir {
					if ok, _ := filepath.Match(file, base); ok {
						return true
					}
				}
			}
			continue
		}
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	// Common test directories count for every language.
	for _, seg := range strings.Split(filepath.Dir(slash), "/") {
		if seg == "test" || seg == "tests" || seg == "__tests__" || seg == "spec" {
			return true
		}
	}
	return false
}

func allDependencyFiles() []string {
	var all []string
	for _, l := range table {
		all = append(all, l.DependencyFiles...)
	}
	return all
}
