package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"trade_bot/internal/core"
	apperrors "trade_bot/pkg/errors"
)

// fractionalPlaces is the smallest fractional-share increment the brokerage
// accepts.
const fractionalPlaces = 6

// FormattedQuantity is a quantity normalized for order submission.
type FormattedQuantity struct {
	Value          decimal.Decimal
	Representation core.QuantityRepresentation
}

// Format normalizes a resolved share quantity. Whole numbers are tagged
// integral; everything else is rounded half-up to six decimal places and
// tagged fractional. Formatting is idempotent: formatting an already
// formatted value yields the same result.
func Format(qty decimal.Decimal) FormattedQuantity {
	if qty.Equal(qty.Truncate(0)) {
		return FormattedQuantity{Value: qty.Truncate(0), Representation: core.RepresentationIntegral}
	}
	rounded := qty.Round(fractionalPlaces)
	if rounded.Equal(rounded.Truncate(0)) {
		// Rounding can land exactly on a whole share.
		return FormattedQuantity{Value: rounded.Truncate(0), Representation: core.RepresentationIntegral}
	}
	return FormattedQuantity{Value: rounded, Representation: core.RepresentationFractional}
}

// CheckBuyingPower verifies a BUY's notional value fits within available
// cash. SELL orders free cash and always pass. The returned error wraps
// ErrInsufficientFunds and carries the shortfall for logging.
func CheckBuyingPower(side core.Side, qty decimal.Decimal, price core.PriceQuote, cash decimal.Decimal) error {
	if side != core.SideBuy {
		return nil
	}
	cost := qty.Mul(price.Price)
	if cost.GreaterThan(cash) {
		shortfall := cost.Sub(cash)
		return fmt.Errorf("order for %s costs %s but only %s cash available (short %s): %w",
			price.Symbol, cost.StringFixed(2), cash.StringFixed(2), shortfall.StringFixed(2),
			apperrors.ErrInsufficientFunds)
	}
	return nil
}
