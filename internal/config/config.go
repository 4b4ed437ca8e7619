// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure. It is loaded
// once at startup and never mutated afterwards; components receive it (or
// sub-sections of it) explicitly through their constructors.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Broker    BrokerConfig    `yaml:"broker"`
	Advisor   AdvisorConfig   `yaml:"advisor"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Risk      RiskLimitConfig `yaml:"risk"`
	Retry     RetryConfig     `yaml:"retry"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Journal   JournalConfig   `yaml:"journal"`
	System    SystemConfig    `yaml:"system"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AppConfig contains application-level trading settings
type AppConfig struct {
	Symbols     []string        `yaml:"symbols"`
	DryRun      bool            `yaml:"dry_run"`
	FallbackQty decimal.Decimal `yaml:"fallback_qty"` // used when a recommendation carries no amount
}

// BrokerConfig contains brokerage API settings
type BrokerConfig struct {
	APIKey    Secret `yaml:"api_key"`
	SecretKey Secret `yaml:"secret_key"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// AdvisorConfig contains recommendation source settings
type AdvisorConfig struct {
	APIKey    Secret  `yaml:"api_key"`
	Model     string  `yaml:"model"`
	BaseURL   string  `yaml:"base_url"`
	TimeoutMS int     `yaml:"timeout_ms"`
	RateRPS   float64 `yaml:"rate_rps"` // requests per second ceiling
}

// IndicatorConfig contains technical indicator source settings
type IndicatorConfig struct {
	APIKey    Secret  `yaml:"api_key"`
	BaseURL   string  `yaml:"base_url"`
	Interval  string  `yaml:"interval"`
	TimeoutMS int     `yaml:"timeout_ms"`
	RateRPS   float64 `yaml:"rate_rps"`
}

// RiskLimitConfig contains position concentration limits
type RiskLimitConfig struct {
	Enabled             bool            `yaml:"enabled"`
	MaxPositionValuePct decimal.Decimal `yaml:"max_position_value_pct"` // (0, 100]
	MaxPositionShares   decimal.Decimal `yaml:"max_position_shares"`    // > 0
}

// RetryConfig contains retry/backoff parameters for external calls
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialBackoffMS  int     `yaml:"initial_backoff_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	MaxBackoffMS      int     `yaml:"max_backoff_ms"`
}

// Backoff returns the retry delays as durations.
func (r RetryConfig) Backoff() (initial, max time.Duration) {
	return time.Duration(r.InitialBackoffMS) * time.Millisecond,
		time.Duration(r.MaxBackoffMS) * time.Millisecond
}

// ScheduleConfig contains trading session settings
type ScheduleConfig struct {
	Timezone     string `yaml:"timezone"`
	SessionStart string `yaml:"session_start"` // HH:MM, inclusive
	SessionEnd   string `yaml:"session_end"`   // HH:MM, exclusive
}

// AlertsConfig contains notification webhook settings
type AlertsConfig struct {
	DiscordWebhookURL Secret `yaml:"discord_webhook_url"`
	SlackWebhookURL   Secret `yaml:"slack_webhook_url"`
}

// JournalConfig contains decision journal settings
type JournalConfig struct {
	Path string `yaml:"path"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.FallbackQty.IsZero() {
		c.App.FallbackQty = decimal.NewFromInt(1)
	}
	if c.Broker.BaseURL == "" {
		c.Broker.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Broker.DataURL == "" {
		c.Broker.DataURL = "https://data.alpaca.markets"
	}
	if c.Broker.TimeoutMS == 0 {
		c.Broker.TimeoutMS = 10000
	}
	if c.Advisor.BaseURL == "" {
		c.Advisor.BaseURL = "https://api.openai.com"
	}
	if c.Advisor.Model == "" {
		c.Advisor.Model = "gpt-4o-mini"
	}
	if c.Advisor.TimeoutMS == 0 {
		c.Advisor.TimeoutMS = 30000
	}
	if c.Advisor.RateRPS == 0 {
		c.Advisor.RateRPS = 1
	}
	if c.Indicator.BaseURL == "" {
		c.Indicator.BaseURL = "https://api.taapi.io"
	}
	if c.Indicator.Interval == "" {
		c.Indicator.Interval = "1m"
	}
	if c.Indicator.TimeoutMS == 0 {
		c.Indicator.TimeoutMS = 10000
	}
	if c.Indicator.RateRPS == 0 {
		c.Indicator.RateRPS = 1
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoffMS == 0 {
		c.Retry.InitialBackoffMS = 500
	}
	if c.Retry.BackoffMultiplier == 0 {
		c.Retry.BackoffMultiplier = 2
	}
	if c.Retry.MaxBackoffMS == 0 {
		c.Retry.MaxBackoffMS = 10000
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Schedule.SessionStart == "" {
		c.Schedule.SessionStart = "09:30"
	}
	if c.Schedule.SessionEnd == "" {
		c.Schedule.SessionEnd = "16:00"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "trade_bot.db"
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.Telemetry.MetricsPort == 0 {
		c.Telemetry.MetricsPort = 9090
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateApp(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateBroker(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateRisk(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateRetry(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateSchedule(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateSystem(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func (c *Config) validateApp() error {
	if len(c.App.Symbols) == 0 {
		return ValidationError{
			Field:   "app.symbols",
			Message: "at least one symbol must be configured",
		}
	}
	seen := make(map[string]bool, len(c.App.Symbols))
	for i, s := range c.App.Symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			return ValidationError{
				Field:   "app.symbols",
				Message: "symbol must not be empty",
			}
		}
		if seen[sym] {
			return ValidationError{
				Field:   "app.symbols",
				Value:   sym,
				Message: "duplicate symbol",
			}
		}
		seen[sym] = true
		c.App.Symbols[i] = sym
	}
	if c.App.FallbackQty.LessThanOrEqual(decimal.Zero) {
		return ValidationError{
			Field:   "app.fallback_qty",
			Value:   c.App.FallbackQty,
			Message: "must be greater than zero",
		}
	}
	return nil
}

func (c *Config) validateBroker() error {
	if c.Broker.APIKey == "" {
		return ValidationError{
			Field:   "broker.api_key",
			Message: "API key is required",
		}
	}
	if c.Broker.SecretKey == "" {
		return ValidationError{
			Field:   "broker.secret_key",
			Message: "secret key is required",
		}
	}
	return nil
}

func (c *Config) validateRisk() error {
	if !c.Risk.Enabled {
		return nil
	}
	hundred := decimal.NewFromInt(100)
	if c.Risk.MaxPositionValuePct.LessThanOrEqual(decimal.Zero) || c.Risk.MaxPositionValuePct.GreaterThan(hundred) {
		return ValidationError{
			Field:   "risk.max_position_value_pct",
			Value:   c.Risk.MaxPositionValuePct,
			Message: "must be in (0, 100]",
		}
	}
	if c.Risk.MaxPositionShares.LessThanOrEqual(decimal.Zero) {
		return ValidationError{
			Field:   "risk.max_position_shares",
			Value:   c.Risk.MaxPositionShares,
			Message: "must be greater than zero",
		}
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		return ValidationError{
			Field:   "retry.max_attempts",
			Value:   c.Retry.MaxAttempts,
			Message: "must be between 1 and 10",
		}
	}
	if c.Retry.BackoffMultiplier < 1 {
		return ValidationError{
			Field:   "retry.backoff_multiplier",
			Value:   c.Retry.BackoffMultiplier,
			Message: "must be at least 1",
		}
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return ValidationError{
			Field:   "schedule.timezone",
			Value:   c.Schedule.Timezone,
			Message: "unknown timezone",
		}
	}
	start, err := ParseClock(c.Schedule.SessionStart)
	if err != nil {
		return ValidationError{
			Field:   "schedule.session_start",
			Value:   c.Schedule.SessionStart,
			Message: "must be HH:MM",
		}
	}
	end, err := ParseClock(c.Schedule.SessionEnd)
	if err != nil {
		return ValidationError{
			Field:   "schedule.session_end",
			Value:   c.Schedule.SessionEnd,
			Message: "must be HH:MM",
		}
	}
	if !start.Before(end) {
		return ValidationError{
			Field:   "schedule.session_end",
			Value:   c.Schedule.SessionEnd,
			Message: "session_end must be after session_start",
		}
	}
	return nil
}

func (c *Config) validateSystem() error {
	valid := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(valid, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(valid, ", ")),
		}
	}
	return nil
}

// Clock is a time of day within the session timezone.
type Clock struct {
	Hour   int
	Minute int
}

// Before reports whether c is earlier in the day than other.
func (c Clock) Before(other Clock) bool {
	if c.Hour != other.Hour {
		return c.Hour < other.Hour
	}
	return c.Minute < other.Minute
}

// ParseClock parses an HH:MM string.
func ParseClock(s string) (Clock, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return Clock{}, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("clock %q out of range", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// SessionWindow returns the parsed session start and end clocks.
func (s ScheduleConfig) SessionWindow() (start, end Clock, err error) {
	start, err = ParseClock(s.SessionStart)
	if err != nil {
		return Clock{}, Clock{}, err
	}
	end, err = ParseClock(s.SessionEnd)
	if err != nil {
		return Clock{}, Clock{}, err
	}
	return start, end, nil
}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	cfg := &Config{
		App: AppConfig{
			Symbols:     []string{"AAPL"},
			DryRun:      true,
			FallbackQty: decimal.NewFromInt(1),
		},
		Broker: BrokerConfig{
			APIKey:    "test_api_key",
			SecretKey: "test_secret_key",
		},
		Risk: RiskLimitConfig{
			Enabled:             true,
			MaxPositionValuePct: decimal.NewFromInt(20),
			MaxPositionShares:   decimal.NewFromInt(100),
		},
	}
	cfg.applyDefaults()
	return cfg
}
