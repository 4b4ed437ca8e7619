// Package core defines the shared types and collaborator interfaces for
// the trading decision engine.
package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// IBroker defines the portfolio/brokerage collaborator. The engine only
// consumes its typed results; no business logic lives behind it.
type IBroker interface {
	GetPortfolioState(ctx context.Context) (*PortfolioState, error)
	GetPriceQuote(ctx context.Context, symbol string) (PriceQuote, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderConfirmation, error)
}

// IIndicatorSource supplies named technical values per symbol.
type IIndicatorSource interface {
	Fetch(ctx context.Context, symbol string) (IndicatorSet, error)
}

// AdvisorContext carries the account context handed to the recommendation
// source alongside the indicator values.
type AdvisorContext struct {
	Symbol      string
	Indicators  IndicatorSet
	Price       decimal.Decimal
	SharesOwned decimal.Decimal
	Wallet      decimal.Decimal
}

// IAdvisor returns a free-text recommendation constrained to
// "BUY <amount>", "SELL <amount>", or "NOTHING".
type IAdvisor interface {
	Recommend(ctx context.Context, actx AdvisorContext) (string, error)
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
