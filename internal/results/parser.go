package results

// Sets holds the three disjoint test-name sets extracted from one run.
type Sets struct {
	Passed  []string
	Failed  []string
	Skipped []string
}

// Parser converts raw test-command output into test-name sets.
// A parser that cannot make sense of the output returns an error; the
// executor degrades to an all-empty outcome instead of failing the run.
type Parser interface {
	Parse(stdout string, stderr string, exitCode int) (Sets, error)
}

var parsers = map[string]Parser{
	"gotest":  &GoTestParser{},
	"cargo":   &CargoParser{},
	"pytest":  &PytestParser{},
	"jest":    &JestParser{},
	"generic": &GenericParser{},
}

// ForName returns the parser registered under name, or the generic
// parser when the name is unknown.
func ForName(name string) Parser {
	if p, ok := parsers[name]; ok {
		return p
	}
	return parsers["generic"]
}
