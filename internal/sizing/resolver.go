// Package sizing converts trade intents into broker-ready order quantities.
package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"trade_bot/internal/core"
	apperrors "trade_bot/pkg/errors"
)

// Resolve turns an intent's amount into a share quantity. Dollar amounts
// divide through at full decimal precision; rounding to the broker's
// fractional increment happens later in Format. An unspecified amount maps
// to fallbackQty.
func Resolve(intent core.TradeIntent, price core.PriceQuote, fallbackQty decimal.Decimal) (decimal.Decimal, error) {
	if price.Price.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("quote for %s is %s: %w",
			price.Symbol, price.Price, apperrors.ErrInvalidPrice)
	}

	switch intent.AmountKind {
	case core.AmountShares:
		return intent.Amount, nil
	case core.AmountDollars:
		return intent.Amount.Div(price.Price), nil
	default:
		return fallbackQty, nil
	}
}
