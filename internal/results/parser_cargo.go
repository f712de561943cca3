package results

import (
	"regexp"
	"strings"
)

// CargoParser parses `cargo test` output.
//
//	test module::test_name ... ok
//	test module::test_name ... FAILED
//	test module::test_name ... ignored
type CargoParser struct{}

var cargoTestRe = regexp.MustCompile(`^test\s+(\S+)\s+\.\.\.\s+(ok|FAILED|ignored)`)

func (p *CargoParser) Parse(stdout, stderr string, exitCode int) (Sets, error) {
	var s Sets
	for _, line := range strings.Split(stdout+stderr, "\n") {
		m := cargoTestRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch m[2] {
		case "ok":
			s.Passed = append(s.Passed, m[1])
		case "FAILED":
			s.Failed = append(s.Failed, m[1])
		case "ignored":
			s.Skipped = append(s.Skipped, m[1])
		}
	}
	return s, nil
}
