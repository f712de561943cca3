package cli

import (
	"github.com/spf13/cobra"

	"github.com/prforge/prforge/internal/orchestrator"
)

var (
	flagRunID      string
	flagLanguage   string
	flagTestCmd    string
	flagBaseCommit string
)

var runCmd = &cobra.Command{
	Use:   "run <pr-url>",
	Short: "Evaluate a pull request end to end (phase 1 + phase 2)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		ps, err := orch.Run(cmd.Context(), orchestrator.Phase1Opts{
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

func init() {
	for _, c := range []*cobra.Command{runCmd, phase1Cmd} {
		c.Flags().StringVar(&flagRunID, "run-id", "", "Run identifier (default: <owner>-<repo>-pr-<n>)")
		c.Flags().StringVar(&flagLanguage, "language", "", "Language override (skips detection)")
		c.Flags().StringVar(&flagTestCmd, "test-cmd", "", "Test command override")
		c.Flags().StringVar(&flagBaseCommit, "base-commit", "", "BASE commit override (default: merge base with the target branch)")
	}
}
