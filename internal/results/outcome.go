package results

// RawOutcome is the unprocessed result of one test-command execution.
// BASE and PATCHED runs each produce exactly one RawOutcome; they are
// never merged or mutated after creation.
type RawOutcome struct {
	Passed   []string `json:"tests_passed"`
	Failed   []string `json:"tests_failed"`
	Skipped  []string `json:"tests_skipped"`
	ExitCode int      `json:"exit_code"`
	Stdout   string   `json:"stdout,omitempty"`
	Stderr   string   `json:"stderr,omitempty"`
	// Success reports whether the execution itself ran to completion,
	// distinct from the exit code of the tests.
	Success bool `json:"success"`
	// ParseDegraded is set when the output parser failed and the name
	// sets were forced empty rather than crashing the pipeline.
	ParseDegraded bool    `json:"parse_degraded,omitempty"`
	DurationSecs  float64 `json:"duration_secs"`
}

// Executed returns the number of tests that actually ran (passed or
// failed; skipped tests never executed).
func (o *RawOutcome) Executed() int {
	return len(o.Passed) + len(o.Failed)
}

// Summary is the compact form of a RawOutcome persisted inside
// PipelineState. The full record lives in the run's artifacts directory.
type Summary struct {
	Passed        int  `json:"passed"`
	Failed        int  `json:"failed"`
	Skipped       int  `json:"skipped"`
	ExitCode      int  `json:"exit_code"`
	Success       bool `json:"success"`
	TestsExecuted int  `json:"tests_executed"`
}

// Summarize reduces a RawOutcome to its persisted summary.
func Summarize(o *RawOutcome) Summary {
	return Summary{
		Passed:        len(o.Passed),
		Failed:        len(o.Failed),
		Skipped:       len(o.Skipped),
		ExitCode:      o.ExitCode,
		Success:       o.Success,
		TestsExecuted: o.Executed(),
	}
}
