package bootstrap

import (
	"fmt"

	"trade_bot/internal/config"
)

// Config is an alias for the project's main configuration struct
type Config = config.Config

// LoadConfig delegates to the project's config loader and applies
// pre-flight checks beyond schema validation.
func LoadConfig(path string) (*Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := checkPreFlight(cfg); err != nil {
		return nil, fmt.Errorf("pre-flight checks failed: %w", err)
	}

	return cfg, nil
}

// checkPreFlight catches configurations that validate but cannot trade.
func checkPreFlight(cfg *Config) error {
	if cfg.App.DryRun {
		return nil
	}

	// Live trading needs every external collaborator credentialed.
	if cfg.Advisor.APIKey == "" {
		return fmt.Errorf("advisor.api_key is required for live trading")
	}
	if cfg.Indicator.APIKey == "" {
		return fmt.Errorf("indicator.api_key is required for live trading")
	}

	return nil
}
