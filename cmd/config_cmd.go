package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aide-dev/aide/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current defaults",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}

	fmt.Printf("  Config file: %s\n", path)
	if _, err := os.Stat(path); err == nil {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Log directory:   %s\n", cfg.General.LogDir)
	fmt.Printf("    Database:        %s\n", cfg.General.DBPath)
	fmt.Printf("    Idle threshold:  %ds\n", cfg.General.IdleThresholdSec)
	fmt.Println()

	fmt.Println("  [Pricing]")
	p := config.ActivePricing()
	fmt.Printf("    Input:           $%.2f / MTok\n", p.InputPerMTok)
	fmt.Printf("    Output:          $%.2f / MTok\n", p.OutputPerMTok)
	fmt.Printf("    Cache read:      $%.2f / MTok\n", p.CacheReadPerMTok)
	fmt.Printf("    Cache creation:  $%.2f / MTok\n", p.CacheCreationPerMTok)
	if cfg.General.SubscriptionUser {
		fmt.Println()
		fmt.Println("    Costs are estimates; subscription usage is not billed per token.")
	}
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Printf("  Wrote %s\n", path)
	return nil
}
