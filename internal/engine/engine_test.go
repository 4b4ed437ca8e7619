package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_bot/internal/alert"
	"trade_bot/internal/config"
	"trade_bot/internal/core"
	"trade_bot/internal/journal"
	"trade_bot/internal/marketclock"
	apperrors "trade_bot/pkg/errors"
	"trade_bot/pkg/logging"
)

type mockBroker struct {
	portfolio    *core.PortfolioState
	portfolioErr error
	quote        core.PriceQuote
	quoteErr     error
	submitErr    error
	submitted    []core.OrderRequest
}

func (m *mockBroker) GetPortfolioState(ctx context.Context) (*core.PortfolioState, error) {
	return m.portfolio, m.portfolioErr
}

func (m *mockBroker) GetPriceQuote(ctx context.Context, symbol string) (core.PriceQuote, error) {
	return m.quote, m.quoteErr
}

func (m *mockBroker) SubmitOrder(ctx context.Context, req core.OrderRequest) (*core.OrderConfirmation, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.submitted = append(m.submitted, req)
	return &core.OrderConfirmation{
		OrderID:       "order-1",
		ClientOrderID: req.ClientOrderID,
		Status:        "accepted",
		SubmittedAt:   time.Now(),
	}, nil
}

type mockIndicators struct {
	set   core.IndicatorSet
	err   error
	calls int
	// failFirst makes the first call fail with err, then succeed.
	failFirst bool
}

func (m *mockIndicators) Fetch(ctx context.Context, symbol string) (core.IndicatorSet, error) {
	m.calls++
	if m.failFirst && m.calls == 1 {
		return core.IndicatorSet{}, m.err
	}
	if !m.failFirst && m.err != nil {
		return core.IndicatorSet{}, m.err
	}
	return m.set, nil
}

type mockAdvisor struct {
	reply string
	err   error
}

func (m *mockAdvisor) Recommend(ctx context.Context, actx core.AdvisorContext) (string, error) {
	return m.reply, m.err
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.App.Symbols = []string{"AAPL"}
	cfg.App.DryRun = false
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.InitialBackoffMS = 1
	cfg.Retry.MaxBackoffMS = 2
	return cfg
}

func freshPortfolio() *core.PortfolioState {
	return &core.PortfolioState{
		TotalEquity: decimal.NewFromInt(10000),
		Cash:        decimal.NewFromInt(5000),
		BuyingPower: decimal.NewFromInt(5000),
		Positions:   map[string]core.PositionSnapshot{},
	}
}

func rsiSet(symbol string, v string) core.IndicatorSet {
	return core.IndicatorSet{
		Symbol: symbol,
		Values: map[string]decimal.Decimal{"rsi": decimal.RequireFromString(v)},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config, broker *mockBroker, ind *mockIndicators, adv *mockAdvisor) (*Engine, *journal.Journal) {
	t.Helper()

	jrnl, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = jrnl.Close() })

	gate, err := marketclock.NewGate(cfg.Schedule)
	require.NoError(t, err)

	manager := alert.NewAlertManager(logging.Nop())
	t.Cleanup(manager.Close)

	e := New(cfg, broker, ind, adv, gate, alert.NewNotifier(manager), jrnl, logging.Nop())
	return e, jrnl
}

func lastEntry(t *testing.T, jrnl *journal.Journal, symbol string) journal.Entry {
	t.Helper()
	entries, err := jrnl.Recent(context.Background(), symbol, 1)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	return entries[0]
}

func TestProcessSymbol_BuyDollarsSubmitsFractionalOrder(t *testing.T) {
	cfg := testConfig()
	broker := &mockBroker{
		portfolio: freshPortfolio(),
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	e, jrnl := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "25")},
		&mockAdvisor{reply: "BUY $1000"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	require.Len(t, broker.submitted, 1)
	order := broker.submitted[0]
	assert.Equal(t, core.SideBuy, order.Side)
	assert.Equal(t, core.RepresentationFractional, order.Representation)
	assert.Equal(t, "6.666667", order.Quantity.String())
	assert.NotEmpty(t, order.ClientOrderID)

	entry := lastEntry(t, jrnl, "AAPL")
	assert.Equal(t, "accepted", entry.Status)
	assert.Equal(t, "order-1", entry.OrderID)
}

func TestProcessSymbol_NothingRecommendation(t *testing.T) {
	cfg := testConfig()
	broker := &mockBroker{
		portfolio: freshPortfolio(),
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	e, jrnl := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "50")},
		&mockAdvisor{reply: "NOTHING"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	assert.Empty(t, broker.submitted)
	assert.Equal(t, "no_action", lastEntry(t, jrnl, "AAPL").Status)
}

func TestProcessSymbol_SellWithoutPositionSkips(t *testing.T) {
	cfg := testConfig()
	broker := &mockBroker{
		portfolio: freshPortfolio(),
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	e, jrnl := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "80")},
		&mockAdvisor{reply: "SELL 10"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	assert.Empty(t, broker.submitted)
	entry := lastEntry(t, jrnl, "AAPL")
	assert.Equal(t, "skipped", entry.Status)
	assert.Equal(t, "no shares owned", entry.Reason)
}

func TestProcessSymbol_SellClampedToOwned(t *testing.T) {
	cfg := testConfig()
	portfolio := freshPortfolio()
	portfolio.Positions["AAPL"] = core.PositionSnapshot{
		Symbol:        "AAPL",
		QuantityOwned: decimal.NewFromInt(4),
		MarketValue:   decimal.NewFromInt(600),
	}
	broker := &mockBroker{
		portfolio: portfolio,
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	e, _ := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "80")},
		&mockAdvisor{reply: "SELL 10"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	require.Len(t, broker.submitted, 1)
	assert.Equal(t, core.SideSell, broker.submitted[0].Side)
	assert.True(t, broker.submitted[0].Quantity.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, core.RepresentationIntegral, broker.submitted[0].Representation)
}

func TestProcessSymbol_BlockedByConcentrationLimit(t *testing.T) {
	cfg := testConfig()
	// 20% of $10,000 at $150 allows 13.33 shares; 14 already held.
	portfolio := freshPortfolio()
	portfolio.Positions["AAPL"] = core.PositionSnapshot{
		Symbol:        "AAPL",
		QuantityOwned: decimal.NewFromInt(14),
		MarketValue:   decimal.NewFromInt(2100),
	}
	broker := &mockBroker{
		portfolio: portfolio,
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	e, jrnl := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "25")},
		&mockAdvisor{reply: "BUY $1000"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	assert.Empty(t, broker.submitted)
	entry := lastEntry(t, jrnl, "AAPL")
	assert.True(t, entry.Blocked)
	assert.Equal(t, "percentage limit", entry.Reason)
}

func TestProcessSymbol_InsufficientFunds(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.Enabled = false
	portfolio := freshPortfolio()
	portfolio.Cash = decimal.NewFromInt(40)
	broker := &mockBroker{
		portfolio: portfolio,
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(50)},
	}
	e, jrnl := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "25")},
		&mockAdvisor{reply: "BUY 1"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	assert.Empty(t, broker.submitted)
	entry := lastEntry(t, jrnl, "AAPL")
	assert.Equal(t, "skipped", entry.Status)
	assert.Contains(t, entry.Error, "insufficient funds")
}

func TestProcessSymbol_DryRunSkipsSubmission(t *testing.T) {
	cfg := testConfig()
	cfg.App.DryRun = true
	broker := &mockBroker{
		portfolio: freshPortfolio(),
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	e, jrnl := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "25")},
		&mockAdvisor{reply: "BUY $1000"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	assert.Empty(t, broker.submitted)
	entry := lastEntry(t, jrnl, "AAPL")
	assert.Equal(t, "dry_run", entry.Status)
	assert.True(t, entry.DryRun)
	assert.Equal(t, "6.666667", entry.SubmittedQty.String())
}

func TestProcessSymbol_IndicatorFailureSkipsSymbol(t *testing.T) {
	cfg := testConfig()
	broker := &mockBroker{
		portfolio: freshPortfolio(),
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	e, jrnl := newTestEngine(t, cfg, broker,
		&mockIndicators{err: apperrors.ErrIndicatorUnavailable},
		&mockAdvisor{reply: "BUY $1000"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	assert.Empty(t, broker.submitted)
	entry := lastEntry(t, jrnl, "AAPL")
	assert.Equal(t, "skipped", entry.Status)
	assert.Equal(t, "indicator fetch failed", entry.Reason)
}

func TestProcessSymbol_TransientIndicatorErrorIsRetried(t *testing.T) {
	cfg := testConfig()
	broker := &mockBroker{
		portfolio: freshPortfolio(),
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	ind := &mockIndicators{
		set:       rsiSet("AAPL", "25"),
		err:       apperrors.ErrServerUnavailable,
		failFirst: true,
	}
	e, _ := newTestEngine(t, cfg, broker, ind, &mockAdvisor{reply: "BUY $1000"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	assert.Equal(t, 2, ind.calls, "first transient failure retried")
	assert.Len(t, broker.submitted, 1)
}

func TestProcessSymbol_SubmissionFailureIsJournaled(t *testing.T) {
	cfg := testConfig()
	broker := &mockBroker{
		portfolio: freshPortfolio(),
		quote:     core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
		submitErr: apperrors.ErrInvalidOrderParam,
	}
	e, jrnl := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "25")},
		&mockAdvisor{reply: "BUY $1000"})

	e.processSymbol(context.Background(), time.Now(), "AAPL", broker.portfolio)

	assert.Empty(t, broker.submitted)
	entry := lastEntry(t, jrnl, "AAPL")
	assert.Equal(t, "failed", entry.Status)
	assert.NotEmpty(t, entry.Error)
}

func TestProcessSymbol_NilPortfolioFailsOpen(t *testing.T) {
	cfg := testConfig()
	broker := &mockBroker{
		quote: core.PriceQuote{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}
	e, _ := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "25")},
		&mockAdvisor{reply: "BUY 1"})

	// Without a portfolio snapshot the limiter fails open, but the buying
	// power check sees zero cash and stops the buy.
	e.processSymbol(context.Background(), time.Now(), "AAPL", nil)
	assert.Empty(t, broker.submitted)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := testConfig()
	broker := &mockBroker{portfolio: freshPortfolio()}
	e, _ := newTestEngine(t, cfg, broker,
		&mockIndicators{set: rsiSet("AAPL", "50")},
		&mockAdvisor{reply: "NOTHING"})

	// Pin the clock to a Saturday so no cycle runs.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	e.now = func() time.Time {
		return time.Date(2026, time.August, 29, 12, 0, 0, 0, loc)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, broker.submitted)
}
