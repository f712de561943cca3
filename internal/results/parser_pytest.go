package results

import (
	"regexp"
	"strings"
)

// PytestParser parses verbose pytest output.
//
//	tests/test_x.py::TestClass::test_method PASSED
type PytestParser struct{}

var (
	pytestPassRe = regexp.MustCompile(`(\S+::\S+)\s+PASSED`)
	pytestFailRe = regexp.MustCompile(`(\S+::\S+)\s+FAILED`)
	pytestSkipRe = regexp.MustCompile(`(\S+::\S+)\s+SKIPPED`)
)

func (p *PytestParser) Parse(stdout, stderr string, exitCode int) (Sets, error) {
	var s Sets
	for _, line := range strings.Split(stdout+stderr, "\n") {
		if m := pytestPassRe.FindStringSubmatch(line); m != nil {
			s.Passed = append(s.Passed, m[1])
			continue
		}
		if m := pytestFailRe.FindStringSubmatch(line); m != nil {
			s.Failed = append(s.Failed, m[1])
			continue
		}
		if m := pytestSkipRe.FindStringSubmatch(line); m != nil {
			s.Skipped = append(s.Skipped, m[1])
		}
	}
	return s, nil
}
