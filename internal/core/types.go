package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade decision.
type Side int

const (
	SideNothing Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "NOTHING"
	}
}

// AmountKind tags how a trade intent's amount is denominated.
type AmountKind int

const (
	AmountUnspecified AmountKind = iota
	AmountDollars
	AmountShares
)

func (k AmountKind) String() string {
	switch k {
	case AmountDollars:
		return "DOLLARS"
	case AmountShares:
		return "SHARES"
	default:
		return "UNSPECIFIED"
	}
}

// TradeIntent is the structured form of an advisory recommendation.
// Side == SideNothing means Amount and AmountKind carry no meaning.
type TradeIntent struct {
	Side       Side
	AmountKind AmountKind
	Amount     decimal.Decimal
}

// PriceQuote is a point-in-time price for a symbol.
type PriceQuote struct {
	Symbol string
	Price  decimal.Decimal
	AsOf   time.Time
}

// PositionSnapshot describes one held position within a portfolio snapshot.
type PositionSnapshot struct {
	Symbol        string
	QuantityOwned decimal.Decimal
	MarketValue   decimal.Decimal
}

// PortfolioState is a read-only snapshot of the account, rebuilt every
// trading cycle. The engine never mutates it; order effects show up in
// the next cycle's snapshot.
type PortfolioState struct {
	TotalEquity decimal.Decimal
	Cash        decimal.Decimal
	BuyingPower decimal.Decimal
	Positions   map[string]PositionSnapshot
}

// Position returns the snapshot for symbol, zero-valued if absent.
func (p *PortfolioState) Position(symbol string) PositionSnapshot {
	if p == nil {
		return PositionSnapshot{}
	}
	if pos, ok := p.Positions[symbol]; ok {
		return pos
	}
	return PositionSnapshot{Symbol: symbol}
}

// QuantityRepresentation distinguishes whole-share from fractional orders.
type QuantityRepresentation int

const (
	RepresentationIntegral QuantityRepresentation = iota
	RepresentationFractional
)

func (r QuantityRepresentation) String() string {
	if r == RepresentationFractional {
		return "FRACTIONAL"
	}
	return "INTEGRAL"
}

// OrderRequest is the terminal output of the decision pipeline. Ownership
// passes to the brokerage collaborator once submitted.
type OrderRequest struct {
	Symbol         string
	Side           Side
	Quantity       decimal.Decimal
	Representation QuantityRepresentation
	ClientOrderID  string
}

// OrderConfirmation is the brokerage's acknowledgement of a submitted order.
type OrderConfirmation struct {
	OrderID       string
	ClientOrderID string
	Status        string
	SubmittedAt   time.Time
}

// IndicatorSet holds the named technical values fetched for one symbol.
// Absent values are simply missing from the map, never zero.
type IndicatorSet struct {
	Symbol string
	Values map[string]decimal.Decimal
}

// RSI returns the relative strength index value if present.
func (s IndicatorSet) RSI() (decimal.Decimal, bool) {
	v, ok := s.Values["rsi"]
	return v, ok
}
