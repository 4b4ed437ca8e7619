package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"trade_bot/internal/core"
	"trade_bot/internal/intent"
	"trade_bot/internal/journal"
	"trade_bot/internal/sizing"
	apperrors "trade_bot/pkg/errors"
	"trade_bot/pkg/retry"
)

// runCycle executes one minute of trading: snapshot the portfolio once,
// then walk every configured symbol serially.
func (e *Engine) runCycle(ctx context.Context, now time.Time) {
	ctx, span := e.tracer.Start(ctx, "trading_cycle")
	defer span.End()

	e.metrics.CyclesTotal.Add(ctx, 1)

	portfolio, err := retry.Get(ctx, e.policy, apperrors.IsTransient, func() (*core.PortfolioState, error) {
		return e.broker.GetPortfolioState(ctx)
	})
	if err != nil {
		// All symbols still run: downstream checks fail open without a
		// snapshot, and per-symbol data is fetched independently.
		e.logger.Warn("Portfolio snapshot unavailable this cycle", "error", err)
		e.noteExhaustion(ctx, err)
		portfolio = nil
	} else {
		cash, _ := portfolio.Cash.Float64()
		e.metrics.SetWalletCash(cash)
		for symbol, pos := range portfolio.Positions {
			shares, _ := pos.QuantityOwned.Float64()
			e.metrics.SetPositionShares(symbol, shares)
		}
	}

	for _, symbol := range e.cfg.App.Symbols {
		if ctx.Err() != nil {
			return
		}
		e.processSymbol(ctx, now, symbol, portfolio)
	}
}

// processSymbol runs the full decision pipeline for one symbol. Errors
// skip the symbol for this cycle; the loop always continues.
func (e *Engine) processSymbol(ctx context.Context, now time.Time, symbol string, portfolio *core.PortfolioState) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "process_symbol",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()
	defer func() {
		e.metrics.CycleDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("symbol", symbol)))
	}()

	logger := e.logger.WithField("symbol", symbol)

	quote, err := retry.Get(ctx, e.policy, apperrors.IsTransient, func() (core.PriceQuote, error) {
		return e.broker.GetPriceQuote(ctx, symbol)
	})
	if err != nil {
		e.skipSymbol(ctx, now, symbol, "price quote failed", err)
		return
	}

	indicators, err := retry.Get(ctx, e.policy, apperrors.IsTransient, func() (core.IndicatorSet, error) {
		return e.indicators.Fetch(ctx, symbol)
	})
	if err != nil {
		e.skipSymbol(ctx, now, symbol, "indicator fetch failed", err)
		return
	}

	owned := portfolio.Position(symbol).QuantityOwned
	var cash decimal.Decimal
	if portfolio != nil {
		cash = portfolio.Cash
	}

	recommendation, err := retry.Get(ctx, e.policy, apperrors.IsTransient, func() (string, error) {
		return e.advisor.Recommend(ctx, core.AdvisorContext{
			Symbol:      symbol,
			Indicators:  indicators,
			Price:       quote.Price,
			SharesOwned: owned,
			Wallet:      cash,
		})
	})
	if err != nil {
		e.skipSymbol(ctx, now, symbol, "advisor request failed", err)
		return
	}

	ti := intent.Parse(recommendation)
	logger.Info("Recommendation received",
		"recommendation", recommendation,
		"side", ti.Side.String(),
		"amount_kind", ti.AmountKind.String(),
		"amount", ti.Amount.String())

	entry := journal.Entry{
		CycleAt:        now,
		Symbol:         symbol,
		Recommendation: recommendation,
		Side:           ti.Side,
		DryRun:         e.cfg.App.DryRun,
	}

	if ti.Side == core.SideNothing {
		entry.Status = "no_action"
		e.record(ctx, entry)
		return
	}

	qty, err := sizing.Resolve(ti, quote, e.cfg.App.FallbackQty)
	if err != nil {
		entry.Error = err.Error()
		e.record(ctx, entry)
		e.skipSymbol(ctx, now, symbol, "quantity resolution failed", err)
		return
	}
	entry.RequestedQty = qty

	if ti.Side == core.SideSell {
		if owned.LessThanOrEqual(decimal.Zero) {
			logger.Info("Sell skipped, no shares owned")
			entry.Status = "skipped"
			entry.Reason = "no shares owned"
			e.record(ctx, entry)
			return
		}
		if qty.GreaterThan(owned) {
			logger.Info("Sell clamped to owned shares", "requested", qty.String(), "owned", owned.String())
			qty = owned
		}
	}

	verdict := e.limiter.Limit(qty, ti.Side, symbol, portfolio, quote)
	if verdict.Blocked {
		e.metrics.OrdersBlockedTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("reason", verdict.Reason)))
		e.notifier.OrderBlocked(ctx, symbol, verdict.Reason, qty)
		entry.Blocked = true
		entry.Reason = verdict.Reason
		entry.Status = "blocked"
		e.record(ctx, entry)
		return
	}
	qty = verdict.AllowedQty
	entry.Reason = verdict.Reason

	formatted := sizing.Format(qty)
	if err := sizing.CheckBuyingPower(ti.Side, formatted.Value, quote, cash); err != nil {
		logger.Warn("Order skipped, insufficient funds", "error", err)
		e.metrics.OrdersBlockedTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("reason", "insufficient funds")))
		entry.Status = "skipped"
		entry.Error = err.Error()
		e.record(ctx, entry)
		return
	}
	entry.SubmittedQty = formatted.Value

	if e.cfg.App.DryRun {
		logger.Info("Dry run, order not submitted",
			"side", ti.Side.String(),
			"qty", formatted.Value.String(),
			"representation", formatted.Representation.String())
		entry.Status = "dry_run"
		e.record(ctx, entry)
		return
	}

	order := core.OrderRequest{
		Symbol:         symbol,
		Side:           ti.Side,
		Quantity:       formatted.Value,
		Representation: formatted.Representation,
		ClientOrderID:  uuid.NewString(),
	}

	conf, err := retry.Get(ctx, e.policy, apperrors.IsTransient, func() (*core.OrderConfirmation, error) {
		return e.broker.SubmitOrder(ctx, order)
	})
	if err != nil {
		logger.Error("Order submission failed", "error", err)
		e.noteExhaustion(ctx, err)
		e.notifier.ErrorOccurred(ctx, "Order Submission Failed", err)
		entry.Status = "failed"
		entry.Error = err.Error()
		e.record(ctx, entry)
		return
	}

	logger.Info("Order placed",
		"order_id", conf.OrderID,
		"status", conf.Status,
		"qty", formatted.Value.String(),
		"representation", formatted.Representation.String())
	e.metrics.OrdersPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("side", ti.Side.String())))
	e.notifier.OrderPlaced(ctx, symbol, ti.Side, formatted.Value, quote.Price)

	entry.OrderID = conf.OrderID
	entry.Status = conf.Status
	e.record(ctx, entry)
}

// skipSymbol logs a per-symbol failure, bumps the skip counter, and alerts.
func (e *Engine) skipSymbol(ctx context.Context, now time.Time, symbol, reason string, err error) {
	e.logger.Warn("Symbol skipped this cycle", "symbol", symbol, "reason", reason, "error", err)
	e.metrics.SymbolsSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("reason", reason)))
	e.noteExhaustion(ctx, err)
	e.record(ctx, journal.Entry{
		CycleAt: now,
		Symbol:  symbol,
		Side:    core.SideNothing,
		Status:  "skipped",
		Reason:  reason,
		Error:   err.Error(),
		DryRun:  e.cfg.App.DryRun,
	})
}

// noteExhaustion counts operations that burned through their retry budget.
// Fatal errors propagate without consuming attempts and are not counted.
func (e *Engine) noteExhaustion(ctx context.Context, err error) {
	if apperrors.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		e.metrics.RetriesExhausted.Add(ctx, 1)
	}
}

func (e *Engine) record(ctx context.Context, entry journal.Entry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ctx, entry); err != nil {
		e.logger.Warn("Failed to journal decision", "symbol", entry.Symbol, "error", err)
	}
}

// positionShares flattens a portfolio snapshot to symbol -> shares owned.
func positionShares(portfolio *core.PortfolioState) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(portfolio.Positions))
	for symbol, pos := range portfolio.Positions {
		out[symbol] = pos.QuantityOwned
	}
	return out
}
