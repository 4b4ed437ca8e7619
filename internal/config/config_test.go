package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BROKER_KEY", "key-from-env")
	t.Setenv("TEST_BROKER_SECRET", "secret-from-env")

	path := writeConfigFile(t, `
app:
  symbols: ["aapl", "tsla"]
  dry_run: true
broker:
  api_key: "${TEST_BROKER_KEY}"
  secret_key: "${TEST_BROKER_SECRET}"
risk:
  enabled: true
  max_position_value_pct: 20
  max_position_shares: 100
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "key-from-env", cfg.Broker.APIKey.Reveal())
	assert.Equal(t, "secret-from-env", cfg.Broker.SecretKey.Reveal())
	// Symbols are normalized to upper case.
	assert.Equal(t, []string{"AAPL", "TSLA"}, cfg.App.Symbols)
	assert.True(t, cfg.App.DryRun)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
app:
  symbols: ["AAPL"]
broker:
  api_key: "key"
  secret_key: "secret"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://paper-api.alpaca.markets", cfg.Broker.BaseURL)
	assert.Equal(t, "https://data.alpaca.markets", cfg.Broker.DataURL)
	assert.Equal(t, "https://api.openai.com", cfg.Advisor.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.Advisor.Model)
	assert.Equal(t, "https://api.taapi.io", cfg.Indicator.BaseURL)
	assert.Equal(t, "1m", cfg.Indicator.Interval)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500, cfg.Retry.InitialBackoffMS)
	assert.Equal(t, 2.0, cfg.Retry.BackoffMultiplier)
	assert.Equal(t, "America/New_York", cfg.Schedule.Timezone)
	assert.Equal(t, "09:30", cfg.Schedule.SessionStart)
	assert.Equal(t, "16:00", cfg.Schedule.SessionEnd)
	assert.Equal(t, "trade_bot.db", cfg.Journal.Path)
	assert.Equal(t, "INFO", cfg.System.LogLevel)
	assert.Equal(t, 9090, cfg.Telemetry.MetricsPort)
	assert.True(t, cfg.App.FallbackQty.Equal(decimal.NewFromInt(1)))
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate_NoSymbols(t *testing.T) {
	cfg := DefaultConfig()
	cfg.App.Symbols = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.symbols")
}

func TestValidate_DuplicateSymbols(t *testing.T) {
	cfg := DefaultConfig()
	cfg.App.Symbols = []string{"AAPL", "aapl"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate symbol")
}

func TestValidate_MissingBrokerCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker.APIKey = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker.api_key")
}

func TestValidate_RiskPercentBounds(t *testing.T) {
	for _, pct := range []int64{0, -5, 101} {
		cfg := DefaultConfig()
		cfg.Risk.MaxPositionValuePct = decimal.NewFromInt(pct)
		err := cfg.Validate()
		require.Error(t, err, "pct=%d", pct)
		assert.Contains(t, err.Error(), "max_position_value_pct")
	}

	cfg := DefaultConfig()
	cfg.Risk.MaxPositionValuePct = decimal.NewFromInt(100)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RiskDisabledSkipsLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Risk.Enabled = false
	cfg.Risk.MaxPositionValuePct = decimal.Zero
	cfg.Risk.MaxPositionShares = decimal.Zero
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RetryBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.MaxAttempts = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.max_attempts")

	cfg = DefaultConfig()
	cfg.Retry.BackoffMultiplier = 0.5
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.backoff_multiplier")
}

func TestValidate_ScheduleWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schedule.SessionStart = "16:00"
	cfg.Schedule.SessionEnd = "09:30"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_end must be after session_start")

	cfg = DefaultConfig()
	cfg.Schedule.Timezone = "Mars/Olympus"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown timezone")
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 9, Minute: 30}, c)

	_, err = ParseClock("25:00")
	assert.Error(t, err)

	_, err = ParseClock("bogus")
	assert.Error(t, err)
}

func TestSessionWindow(t *testing.T) {
	cfg := DefaultConfig()
	start, end, err := cfg.Schedule.SessionWindow()
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 9, Minute: 30}, start)
	assert.Equal(t, Clock{Hour: 16, Minute: 0}, end)
	assert.True(t, start.Before(end))
	assert.False(t, end.Before(start))

	_, _, err = ScheduleConfig{SessionStart: "bogus", SessionEnd: "16:00"}.SessionWindow()
	assert.Error(t, err)
}
