package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prforge/prforge/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show detailed status for one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := requireRunArg(args)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		ps, err := store.Get(runID)
		if err != nil {
			return err
		}
		return printState(cmd, ps)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		statusFilter, _ := cmd.Flags().GetString("status")
		runs, err := store.List(statusFilter)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-36s %-14s %-28s %-6s %s\n", "RUN", "STATUS", "REPO", "PR", "LANGUAGE")
		fmt.Fprintf(w, "%-36s %-14s %-28s %-6s %s\n",
			strings.Repeat("-", 36),
			strings.Repeat("-", 14),
			strings.Repeat("-", 28),
			strings.Repeat("-", 6),
			strings.Repeat("-", 8))
		for _, r := range runs {
			fmt.Fprintf(w, "%-36s %-14s %-28s %-6d %s\n",
				r.RunID, r.Status, r.Repo, r.PRNumber, r.Language)
		}
		return nil
	},
}

// printState writes the run state as indented JSON, the machine-readable
// contract for downstream tooling.
func printState(cmd *cobra.Command, ps *pipeline.PipelineState) error {
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	listCmd.Flags().String("status", "", "Filter by status (e.g. PHASE1_DONE, DONE, FAILED)")
}
