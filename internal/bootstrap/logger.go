package bootstrap

import (
	"trade_bot/internal/core"
	"trade_bot/pkg/logging"
)

// InitLogger builds the application logger from configuration.
func InitLogger(cfg *Config) (core.ILogger, error) {
	logger, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		return nil, err
	}
	return logger, nil
}
