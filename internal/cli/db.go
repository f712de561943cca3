package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prforge/prforge/internal/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the event database",
}

var dbEventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "Show recorded events for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := requireRunArg(args)
		if err != nil {
			return err
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		events, err := database.Events(runID)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events found.")
			return nil
		}
		for _, e := range events {
			line := fmt.Sprintf("%s  %-14s", e.Timestamp, e.State)
			if e.Detail != "" {
				line += "  " + e.Detail
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the event database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Event database reset.")
		return nil
	},
}

func openDB() (*db.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path := cfg.DBPath
	if path == "" {
		path, err = db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func init() {
	dbCmd.AddCommand(dbEventsCmd)
	dbCmd.AddCommand(dbResetCmd)
}
