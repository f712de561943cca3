package categorize

import (
	"fmt"
	"sort"

	"github.com/prforge/prforge/internal/patch"
	"github.com/prforge/prforge/internal/results"
)

// Input carries everything categorization needs. Base and Patched are
// independent outcomes; categorization never mutates them.
type Input struct {
	Base          *results.RawOutcome
	Patched       *results.RawOutcome
	Changes       *patch.ChangeSet
	RelevanceKey  string
	MinStemLength int
}

// Result is the categorized delta. FAIL_TO_PASS holds tests fixed or
// newly introduced by the change; PASS_TO_PASS holds tests unaffected by
// the change but relevant to it. TestsExecuted counts distinguish "no
// tests ran" from "zero relevant tests found".
type Result struct {
	FailToPass           []string `json:"FAIL_TO_PASS"`
	PassToPass           []string `json:"PASS_TO_PASS"`
	BaseTestsExecuted    int      `json:"base_tests_executed"`
	PatchedTestsExecuted int      `json:"patched_tests_executed"`
}

// Categorize computes the category sets as a pure function of the two
// outcomes and the change set. Outputs are sorted, so identical inputs
// give identical results.
func Categorize(in Input) (*Result, error) {
	if in.Base == nil {
		return nil, fmt.Errorf("categorize: missing base outcome")
	}
	if in.Patched == nil {
		return nil, fmt.Errorf("categorize: missing patched outcome")
	}

	res := &Result{
		FailToPass:           []string{},
		PassToPass:           []string{},
		BaseTestsExecuted:    in.Base.Executed(),
		PatchedTestsExecuted: in.Patched.Executed(),
	}

	// An outcome with no executed tests is a valid, distinct result but
	// yields empty category sets by definition; the executed counts
	// carry the signal downstream.
	if res.BaseTestsExecuted == 0 || res.PatchedTestsExecuted == 0 {
		return res, nil
	}

	basePassed := results.NormalizeSet(in.Base.Passed)
	baseFailed := results.NormalizeSet(in.Base.Failed)
	prPassed := results.NormalizeSet(in.Patched.Passed)

	// FAIL_TO_PASS: failing in BASE and now passing, plus tests that are
	// entirely new in the change. A test with mixed BASE outcomes (both
	// passed and failed, as in multi-module builds) is never counted.
	for test := range prPassed {
		switch {
		case baseFailed[test] && !basePassed[test]:
			res.FailToPass = append(res.FailToPass, test)
		case !basePassed[test] && !baseFailed[test]:
			res.FailToPass = append(res.FailToPass, test)
		}
	}

	// PASS_TO_PASS: passing in both runs and relevant to the change.
	// With no changed files, nothing is deemed relevant.
	if in.Changes != nil && !in.Changes.Empty() {
		rule := ruleFor(in.RelevanceKey)
		minStem := in.MinStemLength
		if minStem <= 0 {
			minStem = 4
		}
		for test := range prPassed {
			if !basePassed[test] {
				continue
			}
			if rule(test, in.Changes, minStem) {
				res.PassToPass = append(res.PassToPass, test)
			}
		}
	}

	sort.Strings(res.FailToPass)
	sort.Strings(res.PassToPass)
	return res, nil
}
