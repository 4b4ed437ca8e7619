// Package engine runs the minute-cadence trading decision loop.
//
// Each cycle the engine checks the trading clock, snapshots the portfolio,
// and walks the configured symbols serially: fetch indicators, ask the
// advisor, parse the recommendation, size the order, apply concentration
// limits and the buying power check, then submit. A failure on one symbol
// skips that symbol for the cycle and never aborts the loop.
package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"trade_bot/internal/alert"
	"trade_bot/internal/config"
	"trade_bot/internal/core"
	"trade_bot/internal/journal"
	"trade_bot/internal/marketclock"
	"trade_bot/internal/risk"
	apperrors "trade_bot/pkg/errors"
	"trade_bot/pkg/retry"
	"trade_bot/pkg/telemetry"
)

// Engine coordinates the trading cycle. It owns no market state: every
// cycle rebuilds its view of the world from the broker.
type Engine struct {
	cfg        *config.Config
	broker     core.IBroker
	indicators core.IIndicatorSource
	advisor    core.IAdvisor
	limiter    *risk.Limiter
	gate       *marketclock.Gate
	notifier   *alert.Notifier
	journal    *journal.Journal
	logger     core.ILogger

	policy  retry.Policy
	metrics *telemetry.MetricsHolder
	tracer  trace.Tracer

	// now is swappable for tests.
	now func() time.Time

	// inSession tracks the open/closed transition for day summaries.
	inSession bool
}

// New assembles the trading engine. The journal may be nil, in which case
// decisions are not persisted.
func New(
	cfg *config.Config,
	broker core.IBroker,
	indicators core.IIndicatorSource,
	advisor core.IAdvisor,
	gate *marketclock.Gate,
	notifier *alert.Notifier,
	jrnl *journal.Journal,
	logger core.ILogger,
) *Engine {
	initialBackoff, maxBackoff := cfg.Retry.Backoff()
	policy := retry.Policy{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		InitialBackoff:    initialBackoff,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		MaxBackoff:        maxBackoff,
	}

	metrics := telemetry.GetGlobalMetrics()
	if metrics.CyclesTotal == nil {
		_ = metrics.InitMetrics(telemetry.GetMeter("trade-engine"))
	}

	return &Engine{
		cfg:        cfg,
		broker:     broker,
		indicators: indicators,
		advisor:    advisor,
		limiter:    risk.NewLimiter(cfg.Risk, logger),
		gate:       gate,
		notifier:   notifier,
		journal:    jrnl,
		logger:     logger.WithField("component", "engine"),
		policy:     policy,
		metrics:    metrics,
		tracer:     telemetry.GetTracer("trade-engine"),
		now:        time.Now,
	}
}

// Run executes the minute-aligned trading loop until the context ends.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Trading loop started",
		"symbols", e.cfg.App.Symbols,
		"dry_run", e.cfg.App.DryRun,
		"risk", e.limiter.Describe())

	for {
		now := e.now()
		if e.gate.IsOpen(now) {
			if !e.inSession {
				e.inSession = true
				e.sendDaySummary(ctx, alert.DayStart)
			}
			e.runCycle(ctx, now)
		} else {
			if e.inSession {
				e.inSession = false
				e.sendDaySummary(ctx, alert.DayEnd)
			}
			e.logger.Debug("Market closed", "next_open", e.gate.NextOpen(now))
		}

		if err := e.sleepUntil(ctx, marketclock.NextMinute(e.now())); err != nil {
			e.logger.Info("Trading loop stopped", "reason", err)
			return err
		}
	}
}

// RunOnce executes a single trading cycle immediately, bypassing the
// trading clock. Intended for smoke tests and configuration checks.
func (e *Engine) RunOnce(ctx context.Context) {
	e.runCycle(ctx, e.now())
}

// sleepUntil blocks until the wall clock reaches t or the context ends.
func (e *Engine) sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		d = time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sendDaySummary posts the wallet total and open positions. Summary
// delivery is best effort; a broker failure here only logs.
func (e *Engine) sendDaySummary(ctx context.Context, phase alert.DayPhase) {
	portfolio, err := retry.Get(ctx, e.policy, apperrors.IsTransient, func() (*core.PortfolioState, error) {
		return e.broker.GetPortfolioState(ctx)
	})
	if err != nil {
		e.logger.Warn("Skipping day summary, portfolio unavailable", "phase", string(phase), "error", err)
		return
	}

	e.notifier.DaySummary(ctx, phase, portfolio.TotalEquity, positionShares(portfolio))
}
