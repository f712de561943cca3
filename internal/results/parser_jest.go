package results

import (
	"encoding/json"
	"regexp"
	"strings"
)

// JestParser parses jest/vitest output. It prefers the JSON reporter
// format and falls back to scanning the human-readable symbol lines.
type JestParser struct{}

type jestOutput struct {
	NumTotalTests int `json:"numTotalTests"`
	TestResults   []struct {
		Name             string `json:"name"`
		AssertionResults []struct {
			FullName string `json:"fullName"`
			Status   string `json:"status"` // "passed", "failed", "pending", "skipped"
		} `json:"assertionResults"`
	} `json:"testResults"`
}

var (
	jestPassRe = regexp.MustCompile(`[✓✔]\s+(.+?)\s*\(\d+\s*m?s\)`)
	jestFailRe = regexp.MustCompile(`[✕✗×]\s+(.+?)\s*\(\d+\s*m?s\)`)
	jestSkipRe = regexp.MustCompile(`[○]\s+skipped\s+(.+)`)
)

func (p *JestParser) Parse(stdout, stderr string, exitCode int) (Sets, error) {
	trimmed := strings.TrimSpace(stdout)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		var raw jestOutput
		if err := json.Unmarshal([]byte(trimmed[start:]), &raw); err == nil && len(raw.TestResults) > 0 {
			var s Sets
			for _, suite := range raw.TestResults {
				for _, a := range suite.AssertionResults {
					switch a.Status {
					case "passed":
						s.Passed = append(s.Passed, a.FullName)
					case "failed":
						s.Failed = append(s.Failed, a.FullName)
					case "pending", "skipped":
						s.Skipped = append(s.Skipped, a.FullName)
					}
				}
			}
			return s, nil
		}
	}
	return p.parseLines(stdout + stderr), nil
}

func (p *JestParser) parseLines(combined string) Sets {
	var s Sets
	for _, line := range strings.Split(combined, "\n") {
		if m := jestPassRe.FindStringSubmatch(line); m != nil {
			s.Passed = append(s.Passed, NormalizeName(m[1]))
			continue
		}
		if m := jestFailRe.FindStringSubmatch(line); m != nil {
			s.Failed = append(s.Failed, NormalizeName(m[1]))
			continue
		}
		if m := jestSkipRe.FindStringSubmatch(line); m != nil {
			s.Skipped = append(s.Skipped, NormalizeName(m[1]))
		}
	}
	return s
}
