// Package cmd implements the aide CLI commands.
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aide-dev/aide/internal/config"
	"github.com/aide-dev/aide/internal/pipeline"
	"github.com/aide-dev/aide/internal/store"
)

var (
	flagConfig string
	flagLogDir string
	flagDB     string
	flagQuiet  bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "aide",
	Short: "Claude Code session analytics",
	Long:  "Ingest Claude Code JSONL logs and analyze sessions: costs, work blocks, context pressure, and more.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		path := flagConfig
		if path == "" {
			path = config.ConfigPath()
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		config.ApplyPricing(cfg)
		if cfg.General.IdleThresholdSec > 0 {
			pipeline.IdleThreshold = time.Duration(cfg.General.IdleThresholdSec) * time.Second
		}
		return nil
	},
	RunE: runStats,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&flagLogDir, "log-dir", "d", "", "Claude projects log directory")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Database file path")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

func logDir() string {
	if flagLogDir != "" {
		return flagLogDir
	}
	return cfg.General.LogDir
}

func dbPath() string {
	if flagDB != "" {
		return flagDB
	}
	return cfg.General.DBPath
}

// openStore is the shared database path used by all commands.
func openStore() (*store.Store, error) {
	return store.Open(dbPath())
}
