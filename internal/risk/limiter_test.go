package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"trade_bot/internal/config"
	"trade_bot/internal/core"
	"trade_bot/pkg/logging"
)

func testLimiter(enabled bool, pct, maxShares int64) *Limiter {
	return NewLimiter(config.RiskLimitConfig{
		Enabled:             enabled,
		MaxPositionValuePct: decimal.NewFromInt(pct),
		MaxPositionShares:   decimal.NewFromInt(maxShares),
	}, logging.Nop())
}

func portfolioWith(equity int64, symbol string, owned, marketValue int64) *core.PortfolioState {
	return &core.PortfolioState{
		TotalEquity: decimal.NewFromInt(equity),
		Positions: map[string]core.PositionSnapshot{
			symbol: {
				Symbol:        symbol,
				QuantityOwned: decimal.NewFromInt(owned),
				MarketValue:   decimal.NewFromInt(marketValue),
			},
		},
	}
}

func priceAt(symbol string, price int64) core.PriceQuote {
	return core.PriceQuote{Symbol: symbol, Price: decimal.NewFromInt(price)}
}

// Equity $10,000, 10 AAPL shares held at $150, 20% cap: the percentage
// limit allows 13.33 shares total, so a 6.6667-share buy is trimmed to
// roughly 3.33 shares.
func TestLimit_TrimsToPercentageHeadroom(t *testing.T) {
	l := testLimiter(true, 20, 1000)
	portfolio := portfolioWith(10000, "AAPL", 10, 1500)

	v := l.Limit(decimal.RequireFromString("6.6667"), core.SideBuy, "AAPL", portfolio, priceAt("AAPL", 150))

	assert.False(t, v.Blocked)
	assert.Equal(t, ReasonPercentLimit, v.Reason)
	assert.True(t, v.AllowedQty.GreaterThan(decimal.RequireFromString("3.3")), "got %s", v.AllowedQty)
	assert.True(t, v.AllowedQty.LessThan(decimal.RequireFromString("3.34")), "got %s", v.AllowedQty)
}

func TestLimit_BlocksWhenNoHeadroom(t *testing.T) {
	// 20% of $10,000 at $150 allows 13.33 shares; 14 already held.
	l := testLimiter(true, 20, 1000)
	portfolio := portfolioWith(10000, "AAPL", 14, 2100)

	v := l.Limit(decimal.NewFromInt(1), core.SideBuy, "AAPL", portfolio, priceAt("AAPL", 150))

	assert.True(t, v.Blocked)
	assert.True(t, v.AllowedQty.IsZero())
	assert.Equal(t, ReasonPercentLimit, v.Reason)
}

func TestLimit_AbsoluteShareCapBinds(t *testing.T) {
	// Percentage cap allows 66.67 shares but the share cap is 5.
	l := testLimiter(true, 100, 5)
	portfolio := portfolioWith(10000, "AAPL", 2, 300)

	v := l.Limit(decimal.NewFromInt(10), core.SideBuy, "AAPL", portfolio, priceAt("AAPL", 150))

	assert.False(t, v.Blocked)
	assert.Equal(t, ReasonShareLimit, v.Reason)
	assert.True(t, v.AllowedQty.Equal(decimal.NewFromInt(3)), "got %s", v.AllowedQty)
}

// When both limits cap to the same share count, the percentage limit is
// reported.
func TestLimit_TieReportsPercentageLimit(t *testing.T) {
	// 15% of $10,000 at $150 is exactly 10 shares, same as the share cap.
	l := testLimiter(true, 15, 10)
	portfolio := portfolioWith(10000, "AAPL", 10, 1500)

	v := l.Limit(decimal.NewFromInt(1), core.SideBuy, "AAPL", portfolio, priceAt("AAPL", 150))

	assert.True(t, v.Blocked)
	assert.Equal(t, ReasonPercentLimit, v.Reason)
}

func TestLimit_WithinLimitsPassesUntouched(t *testing.T) {
	l := testLimiter(true, 20, 1000)
	portfolio := portfolioWith(10000, "AAPL", 0, 0)

	proposed := decimal.NewFromInt(2)
	v := l.Limit(proposed, core.SideBuy, "AAPL", portfolio, priceAt("AAPL", 150))

	assert.False(t, v.Blocked)
	assert.Empty(t, v.Reason)
	assert.True(t, v.AllowedQty.Equal(proposed))
}

func TestLimit_SellPassesThrough(t *testing.T) {
	l := testLimiter(true, 1, 1)
	portfolio := portfolioWith(10000, "AAPL", 500, 75000)

	proposed := decimal.NewFromInt(500)
	v := l.Limit(proposed, core.SideSell, "AAPL", portfolio, priceAt("AAPL", 150))

	assert.False(t, v.Blocked)
	assert.True(t, v.AllowedQty.Equal(proposed))
}

func TestLimit_DisabledPassesThrough(t *testing.T) {
	l := testLimiter(false, 20, 10)
	portfolio := portfolioWith(10000, "AAPL", 1000, 150000)

	proposed := decimal.NewFromInt(100)
	v := l.Limit(proposed, core.SideBuy, "AAPL", portfolio, priceAt("AAPL", 150))

	assert.False(t, v.Blocked)
	assert.True(t, v.AllowedQty.Equal(proposed))
}

// Missing portfolio or price data must never block trading.
func TestLimit_FailsOpenOnMissingData(t *testing.T) {
	l := testLimiter(true, 20, 10)
	proposed := decimal.NewFromInt(100)

	v := l.Limit(proposed, core.SideBuy, "AAPL", nil, priceAt("AAPL", 150))
	assert.False(t, v.Blocked)
	assert.True(t, v.AllowedQty.Equal(proposed))

	portfolio := portfolioWith(10000, "AAPL", 10, 1500)
	v = l.Limit(proposed, core.SideBuy, "AAPL", portfolio, priceAt("AAPL", 0))
	assert.False(t, v.Blocked)
	assert.True(t, v.AllowedQty.Equal(proposed))
}

func TestLimit_SymbolWithNoPosition(t *testing.T) {
	l := testLimiter(true, 20, 1000)
	portfolio := portfolioWith(10000, "AAPL", 10, 1500)

	// TSLA has no existing position; full percentage headroom applies.
	v := l.Limit(decimal.NewFromInt(5), core.SideBuy, "TSLA", portfolio, priceAt("TSLA", 200))
	assert.False(t, v.Blocked)
	assert.True(t, v.AllowedQty.Equal(decimal.NewFromInt(5)))
}
