package patch

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/prforge/prforge/internal/lang"
)

// ChangeSet is the set of file paths modified between BASE and PR,
// partitioned into test files and non-test files. It is input to the
// categorizer's relevance filter and never mutated afterwards.
type ChangeSet struct {
	Files       []string `json:"files"`
	TestFiles   []string `json:"test_files"`
	SourceFiles []string `json:"source_files"`
}

// ParseChangeSet extracts the changed paths from unified diff text and
// partitions them using the language's test-file patterns.
func ParseChangeSet(patchText string, l lang.Language) (*ChangeSet, error) {
	cs := &ChangeSet{}
	if strings.TrimSpace(patchText) == "" {
		return cs, nil
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patchText)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	seen := make(map[string]bool)
	for _, fd := range fileDiffs {
		name := stripPrefix(fd.NewName)
		if name == "/dev/null" || name == "" {
			name = stripPrefix(fd.OrigName)
		}
		if name == "" || name == "/dev/null" || seen[name] {
			continue
		}
		seen[name] = true
		cs.Files = append(cs.Files, name)
		if l.IsTestFile(name) {
			cs.TestFiles = append(cs.TestFiles, name)
		} else {
			cs.SourceFiles = append(cs.SourceFiles, name)
		}
	}
	return cs, nil
}

// Empty reports whether no files changed.
func (c *ChangeSet) Empty() bool {
	return len(c.Files) == 0
}

func stripPrefix(name string) string {
	name = strings.TrimPrefix(name, "a/")
	return strings.TrimPrefix(name, "b/")
}
