package results

import (
	"encoding/json"
	"regexp"
	"strings"
)

// GoTestParser parses `go test` output in both -json and -v formats.
type GoTestParser struct{}

type goTestEvent struct {
	Action  string `json:"Action"`
	Package string `json:"Package"`
	Test    string `json:"Test"`
}

var (
	goPassRe = regexp.MustCompile(`^---\s+PASS:\s+(\S+)`)
	goFailRe = regexp.MustCompile(`^---\s+FAIL:\s+(\S+)`)
	goSkipRe = regexp.MustCompile(`^---\s+SKIP:\s+(\S+)`)
)

func (p *GoTestParser) Parse(stdout, stderr string, exitCode int) (Sets, error) {
	combined := stdout + stderr

	if strings.HasPrefix(strings.TrimSpace(combined), "{") {
		return p.parseJSON(combined), nil
	}
	return p.parseVerbose(combined), nil
}

// parseJSON handles -json event streams. Subtests re-emit their parent's
// events, so the last action seen for a name wins.
func (p *GoTestParser) parseJSON(combined string) Sets {
	outcomes := make(map[string]string)
	var order []string

	for _, line := range strings.Split(combined, "\n") {
		var ev goTestEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Test == "" {
			continue
		}
		name := ev.Test
		if ev.Package != "" {
			name = ev.Package + "." + ev.Test
		}
		switch ev.Action {
		case "pass", "fail", "skip":
			if _, seen := outcomes[name]; !seen {
				order = append(order, name)
			}
			outcomes[name] = ev.Action
		}
	}

	var s Sets
	for _, name := range order {
		switch outcomes[name] {
		case "pass":
			s.Passed = append(s.Passed, name)
		case "fail":
			s.Failed = append(s.Failed, name)
		case "skip":
			s.Skipped = append(s.Skipped, name)
		}
	}
	return s
}

func (p *GoTestParser) parseVerbose(combined string) Sets {
	var s Sets
	for _, line := range strings.Split(combined, "\n") {
		line = strings.TrimLeft(line, " \t")
		if m := goPassRe.FindStringSubmatch(line); m != nil {
			s.Passed = append(s.Passed, m[1])
			continue
		}
		if m := goFailRe.FindStringSubmatch(line); m != nil {
			s.Failed = append(s.Failed, m[1])
			continue
		}
		if m := goSkipRe.FindStringSubmatch(line); m != nil {
			s.Skipped = append(s.Skipped, m[1])
		}
	}
	return s
}
