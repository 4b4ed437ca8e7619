// Package intent parses free-text trade recommendations into typed intents.
//
// The recommendation source is constrained to emit one of
//
//	BUY <amount> | SELL <amount> | NOTHING
//
// where <amount> is a $-prefixed dollar figure (BUY only) or a bare share
// count. Anything outside that grammar degrades to a NOTHING intent; parsing
// never fails a trading cycle.
package intent

import (
	"strings"

	"github.com/shopspring/decimal"

	"trade_bot/internal/core"
)

// Parse converts a recommendation string into a TradeIntent. It never
// returns an error: unrecognized leading tokens yield SideNothing, and a
// malformed or missing amount yields AmountUnspecified so the caller can
// apply its configured fallback quantity.
func Parse(text string) core.TradeIntent {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return core.TradeIntent{Side: core.SideNothing}
	}

	var side core.Side
	switch strings.ToUpper(fields[0]) {
	case "BUY":
		side = core.SideBuy
	case "SELL":
		side = core.SideSell
	case "NOTHING":
		return core.TradeIntent{Side: core.SideNothing}
	default:
		return core.TradeIntent{Side: core.SideNothing}
	}

	if len(fields) < 2 {
		return core.TradeIntent{Side: side, AmountKind: core.AmountUnspecified}
	}

	kind, amount := parseAmount(side, fields[1])
	return core.TradeIntent{Side: side, AmountKind: kind, Amount: amount}
}

// parseAmount interprets the amount token. A $ prefix marks a dollar figure,
// but only BUY carries dollar semantics: SELL amounts are always share
// counts, $-prefixed or not. Thousands separators are stripped before
// parsing, so "$50,000" reads as 50000.
func parseAmount(side core.Side, token string) (core.AmountKind, decimal.Decimal) {
	dollars := strings.HasPrefix(token, "$")
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(token)

	value, err := decimal.NewFromString(cleaned)
	if err != nil || value.LessThanOrEqual(decimal.Zero) {
		return core.AmountUnspecified, decimal.Decimal{}
	}

	if dollars && side == core.SideBuy {
		return core.AmountDollars, value
	}
	return core.AmountShares, value
}
