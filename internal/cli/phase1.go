package cli

import (
	"github.com/spf13/cobra"

	"github.com/prforge/prforge/internal/orchestrator"
)

var phase1Cmd = &cobra.Command{
	Use:   "phase1 <pr-url>",
	Short: "Freeze the environment and run the baseline tests",
	Long: `Phase 1 clones the repository, builds the frozen environment at the
pull request's base revision, exports it, and records baseline test
behavior. The run stops at the PHASE1_DONE checkpoint; a later
"prforge phase2 <run-id>" resumes it, in this process or another.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		ps, err := orch.Phase1(cmd.Context(), orchestrator.Phase1Opts{
			PRURL:       args[0],
			RunID:       flagRunID,
			Language:    flagLanguage,
			TestCommand: flagTestCmd,
			BaseCommit:  flagBaseCommit,
		})
		if err != nil {
			return err
		}
		return printState(cmd, ps)
	},
}
