// Package config loads aide configuration and provides cost estimation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all aide configuration.
type Config struct {
	General GeneralConfig   `toml:"general"`
	Pricing PricingOverride `toml:"pricing"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	LogDir           string `toml:"log_dir,omitempty"`
	DBPath           string `toml:"db_path,omitempty"`
	IdleThresholdSec int64  `toml:"idle_threshold_sec,omitempty"`
	SubscriptionUser bool   `toml:"subscription_user"`
}

// PricingOverride allows user-defined per-million-token prices.
type PricingOverride struct {
	InputPerMTok         *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok        *float64 `toml:"output_per_mtok,omitempty"`
	CacheReadPerMTok     *float64 `toml:"cache_read_per_mtok,omitempty"`
	CacheCreationPerMTok *float64 `toml:"cache_creation_per_mtok,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		General: GeneralConfig{
			LogDir:           filepath.Join(home, ".claude", "projects"),
			DBPath:           filepath.Join(home, ".local", "share", "aide", "aide.db"),
			IdleThresholdSec: 1800,
		},
	}
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aide", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "aide", "config.toml")
}

// Load reads the config file, merging with defaults. A missing file is
// not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	var fileCfg Config
	if err := toml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if fileCfg.General.LogDir != "" {
		cfg.General.LogDir = fileCfg.General.LogDir
	}
	if fileCfg.General.DBPath != "" {
		cfg.General.DBPath = fileCfg.General.DBPath
	}
	if fileCfg.General.IdleThresholdSec > 0 {
		cfg.General.IdleThresholdSec = fileCfg.General.IdleThresholdSec
	}
	cfg.General.SubscriptionUser = fileCfg.General.SubscriptionUser
	cfg.Pricing = fileCfg.Pricing

	return cfg, nil
}

// Save writes the config to the given path, creating parent directories.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// ApplyPricing installs any overrides from the config into the active
// pricing table. Call once at startup.
func ApplyPricing(cfg Config) {
	p := cfg.Pricing
	if p.InputPerMTok != nil {
		activePricing.InputPerMTok = *p.InputPerMTok
	}
	if p.OutputPerMTok != nil {
		activePricing.OutputPerMTok = *p.OutputPerMTok
	}
	if p.CacheReadPerMTok != nil {
		activePricing.CacheReadPerMTok = *p.CacheReadPerMTok
	}
	if p.CacheCreationPerMTok != nil {
		activePricing.CacheCreationPerMTok = *p.CacheCreationPerMTok
	}
}
