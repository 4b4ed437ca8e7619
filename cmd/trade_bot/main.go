package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"trade_bot/internal/advisor"
	"trade_bot/internal/alert"
	"trade_bot/internal/bootstrap"
	"trade_bot/internal/broker/alpaca"
	"trade_bot/internal/engine"
	"trade_bot/internal/indicator"
	"trade_bot/internal/journal"
	"trade_bot/internal/marketclock"
	"trade_bot/pkg/logging"
	"trade_bot/pkg/telemetry"
)

var configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Local development keeps credentials in a .env file; absence is fine.
	_ = godotenv.Load()

	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		*configFile = envConfig
	}

	// Telemetry comes up before the app logger so the OTel log bridge has a
	// provider to attach to.
	tel, err := telemetry.Setup("trade_bot")
	if err != nil {
		fallback, _ := logging.NewZapLogger("INFO")
		fallback.Fatal("Failed to initialize telemetry", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(ctx)
	}()

	app, err := bootstrap.NewApp(*configFile)
	if err != nil {
		fallback, _ := logging.NewZapLogger("INFO")
		fallback.Fatal("Failed to bootstrap application", "error", err)
	}
	cfg, logger := app.Cfg, app.Logger

	if err := telemetry.GetGlobalMetrics().InitMetrics(telemetry.GetMeter("trade_bot")); err != nil {
		logger.Fatal("Failed to initialize metrics", "error", err)
	}

	gate, err := marketclock.NewGate(cfg.Schedule)
	if err != nil {
		logger.Fatal("Failed to build trading clock", "error", err)
	}

	manager := alert.NewAlertManager(logger)
	if url := cfg.Alerts.DiscordWebhookURL.Reveal(); url != "" {
		manager.AddChannel(alert.NewDiscordChannel(url))
	}
	if url := cfg.Alerts.SlackWebhookURL.Reveal(); url != "" {
		manager.AddChannel(alert.NewSlackChannel(url))
	}
	defer manager.Close()

	jrnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		logger.Fatal("Failed to open decision journal", "error", err, "path", cfg.Journal.Path)
	}
	defer jrnl.Close()

	eng := engine.New(
		cfg,
		alpaca.New(cfg.Broker, logger),
		indicator.NewTAAPI(cfg.Indicator, logger),
		advisor.New(cfg.Advisor, logger),
		gate,
		alert.NewNotifier(manager),
		jrnl,
		logger,
	)

	runners := []bootstrap.Runner{eng}
	if cfg.Telemetry.EnableMetrics {
		port := cfg.Telemetry.MetricsPort
		runners = append(runners, bootstrap.RunnerFunc(func(ctx context.Context) error {
			return telemetry.ServeMetrics(ctx, port)
		}))
	}

	if err := app.Run(runners...); err != nil {
		os.Exit(1)
	}
}
