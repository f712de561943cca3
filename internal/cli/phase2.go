package cli

import (
	"github.com/spf13/cobra"
)

var phase2Cmd = &cobra.Command{
	Use:   "phase2 <run-id>",
	Short: "Apply the change and categorize the test delta",
	Long: `Phase 2 resumes a run from its PHASE1_DONE checkpoint: it validates
the persisted state, confirms the frozen environment still exists,
generates and verifies the patch, runs the patched tests, and writes
the FAIL_TO_PASS and PASS_TO_PASS sets. It never rebuilds the
environment; missing state or a missing image fails the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := requireRunArg(args)
		if err != nil {
			return err
		}

		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		ps, err := orch.Phase2(cmd.Context(), runID)
		if err != nil {
			return err
		}
		return printState(cmd, ps)
	},
}
