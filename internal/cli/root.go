package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/prforge/prforge/internal/config"
	"github.com/prforge/prforge/internal/db"
	"github.com/prforge/prforge/internal/dockercli"
	"github.com/prforge/prforge/internal/gitops"
	"github.com/prforge/prforge/internal/orchestrator"
	"github.com/prforge/prforge/internal/pipeline"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "prforge",
	Short: "Pull request evaluation pipelines",
	Long: `prforge freezes a repository's environment at a pull request's base
revision, measures test behavior with and without the change applied,
and reports which tests the change fixes (FAIL_TO_PASS) and which
related tests it keeps passing (PASS_TO_PASS).

All state is stored in ~/.prforge/ (SQLite for events, JSON for run
state and artifacts). Phase 1 and phase 2 can run in separate
processes; a run is resumable from its PHASE1_DONE checkpoint.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default: ./prforge.yaml, ~/.prforge/config.yaml)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(phase1Cmd)
	rootCmd.AddCommand(phase2Cmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dbCmd)
}

// loadConfig honors --config when set, else the default search path.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

// newOrchestrator wires the standard component stack. The returned
// cleanup closes the event database.
func newOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	ledger, cleanup := openLedger(cfg)
	if ledger == nil {
		// A typed nil would still satisfy the interface and panic on use.
		orch := orchestrator.New(store, &dockercli.ExecRunner{}, &gitops.ExecGit{}, nil, cfg)
		return orch, cleanup, nil
	}
	orch := orchestrator.New(store, &dockercli.ExecRunner{}, &gitops.ExecGit{}, ledger, cfg)
	return orch, cleanup, nil
}

func openStore(cfg *config.Config) (*pipeline.Store, error) {
	if cfg.StoreDir != "" {
		return pipeline.NewStore(cfg.StoreDir), nil
	}
	return pipeline.DefaultStore()
}

// openLedger opens the event database, degrading to no ledger when it is
// unavailable. Event history is observational and never blocks a run.
func openLedger(cfg *config.Config) (*db.DB, func()) {
	path := cfg.DBPath
	if path == "" {
		var err error
		path, err = db.DefaultDBPath()
		if err != nil {
			log.Printf("event db unavailable: %v", err)
			return nil, func() {}
		}
	}
	database, err := db.Open(path)
	if err != nil {
		log.Printf("event db unavailable: %v", err)
		return nil, func() {}
	}
	if err := database.Migrate(); err != nil {
		log.Printf("event db migration failed: %v", err)
		database.Close()
		return nil, func() {}
	}
	return database, func() { database.Close() }
}

func requireRunArg(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("expected exactly one run id argument")
	}
	return args[0], nil
}
