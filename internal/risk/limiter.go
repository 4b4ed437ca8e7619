// Package risk enforces position concentration limits on buy orders.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"trade_bot/internal/config"
	"trade_bot/internal/core"
)

const (
	// ReasonPercentLimit marks the portfolio-percentage cap as binding.
	ReasonPercentLimit = "percentage limit"
	// ReasonShareLimit marks the absolute share cap as binding.
	ReasonShareLimit = "share limit"
)

// Verdict is the limiter's decision for one proposed order.
type Verdict struct {
	AllowedQty decimal.Decimal
	Blocked    bool
	Reason     string
}

// Limiter caps buy orders so no single position grows past a configured
// share of total equity or an absolute share count. It is a soft control:
// when portfolio or price data is unavailable it fails open and lets the
// proposed quantity through rather than halting trading on a data outage.
type Limiter struct {
	cfg    config.RiskLimitConfig
	logger core.ILogger
}

// NewLimiter creates a position concentration limiter.
func NewLimiter(cfg config.RiskLimitConfig, logger core.ILogger) *Limiter {
	return &Limiter{cfg: cfg, logger: logger}
}

// Limit evaluates a proposed order quantity against the concentration
// limits. Sell orders reduce concentration and pass through unchanged, as
// does everything when the limiter is disabled.
func (l *Limiter) Limit(proposedQty decimal.Decimal, side core.Side, symbol string, portfolio *core.PortfolioState, price core.PriceQuote) Verdict {
	pass := Verdict{AllowedQty: proposedQty}

	if side != core.SideBuy || !l.cfg.Enabled {
		return pass
	}

	// Fail open on missing data.
	if portfolio == nil || portfolio.TotalEquity.LessThanOrEqual(decimal.Zero) {
		l.logger.Warn("portfolio state unavailable, skipping concentration check", "symbol", symbol)
		return pass
	}
	if price.Price.LessThanOrEqual(decimal.Zero) {
		l.logger.Warn("price unavailable, skipping concentration check", "symbol", symbol)
		return pass
	}

	owned := portfolio.Position(symbol).QuantityOwned

	maxValueByPct := portfolio.TotalEquity.Mul(l.cfg.MaxPositionValuePct).Div(decimal.NewFromInt(100))
	maxSharesByPct := maxValueByPct.Div(price.Price)

	// Percentage limit is computed first and wins ties.
	binding := ReasonPercentLimit
	maxShares := maxSharesByPct
	if !maxSharesByPct.LessThanOrEqual(l.cfg.MaxPositionShares) {
		binding = ReasonShareLimit
		maxShares = l.cfg.MaxPositionShares
	}

	headroom := maxShares.Sub(owned)
	if headroom.LessThanOrEqual(decimal.Zero) {
		l.logger.Info("order blocked by concentration limit",
			"symbol", symbol,
			"reason", binding,
			"owned", owned.String(),
			"max_shares", maxShares.String())
		return Verdict{AllowedQty: decimal.Zero, Blocked: true, Reason: binding}
	}

	if proposedQty.GreaterThan(headroom) {
		l.logger.Info("order quantity reduced by concentration limit",
			"symbol", symbol,
			"reason", binding,
			"proposed", proposedQty.String(),
			"allowed", headroom.String())
		return Verdict{AllowedQty: headroom, Reason: binding}
	}

	return pass
}

// Describe reports the configured limits, for startup logging.
func (l *Limiter) Describe() string {
	if !l.cfg.Enabled {
		return "concentration limits disabled"
	}
	return fmt.Sprintf("max %s%% of equity, max %s shares per position",
		l.cfg.MaxPositionValuePct, l.cfg.MaxPositionShares)
}
