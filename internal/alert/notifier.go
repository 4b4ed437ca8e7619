package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"trade_bot/internal/core"
)

// DayPhase marks which end of the trading day a summary covers.
type DayPhase string

const (
	DayStart DayPhase = "start"
	DayEnd   DayPhase = "end"
)

// Notifier translates trading events into alerts. All methods are
// fire-and-forget.
type Notifier struct {
	manager *AlertManager
}

func NewNotifier(manager *AlertManager) *Notifier {
	return &Notifier{manager: manager}
}

// OrderPlaced announces a filled order submission.
func (n *Notifier) OrderPlaced(ctx context.Context, symbol string, side core.Side, qty, price decimal.Decimal) {
	verb := "BOUGHT"
	icon := "🟢"
	if side == core.SideSell {
		verb = "SOLD"
		icon = "🔴"
	}

	msg := fmt.Sprintf("%s %s %s shares of **%s** at **$%s** per share (Total: **$%s**)",
		icon, verb, formatShares(qty), symbol,
		price.StringFixed(2), formatMoney(qty.Mul(price)))

	n.manager.Alert(ctx, "Order Placed", msg, Info, map[string]string{
		"symbol": symbol,
		"side":   side.String(),
		"qty":    qty.String(),
	})
}

// OrderBlocked announces an order stopped by the concentration limiter.
func (n *Notifier) OrderBlocked(ctx context.Context, symbol, reason string, proposed decimal.Decimal) {
	msg := fmt.Sprintf("Buy of %s shares of **%s** blocked: %s",
		formatShares(proposed), symbol, reason)
	n.manager.Alert(ctx, "Order Blocked", msg, Warning, map[string]string{
		"symbol": symbol,
		"reason": reason,
	})
}

// ErrorOccurred reports a trading error worth human attention.
func (n *Notifier) ErrorOccurred(ctx context.Context, title string, err error) {
	msg := err.Error()
	if len(msg) > 1000 {
		msg = msg[:997] + "..."
	}
	n.manager.Alert(ctx, title, msg, Error, nil)
}

// DaySummary posts the wallet total and open positions at the start or end
// of a trading day.
func (n *Notifier) DaySummary(ctx context.Context, phase DayPhase, walletTotal decimal.Decimal, positions map[string]decimal.Decimal) {
	title := "Trading Day Started 🌅"
	if phase == DayEnd {
		title = "Trading Day Ended 🌙"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current Wallet Total: **$%s**\n", formatMoney(walletTotal))

	held := make([]string, 0, len(positions))
	for symbol, shares := range positions {
		if shares.GreaterThan(decimal.Zero) {
			held = append(held, symbol)
		}
	}
	sort.Strings(held)

	if len(held) == 0 {
		b.WriteString("No stocks currently owned")
	} else {
		b.WriteString("Stocks Owned:")
		for _, symbol := range held {
			fmt.Fprintf(&b, "\n• %s: %s shares", symbol, formatShares(positions[symbol]))
		}
	}

	n.manager.Alert(ctx, title, b.String(), Info, nil)
}

// formatShares renders whole-share counts without decimals and fractional
// counts with two places.
func formatShares(qty decimal.Decimal) string {
	if qty.Equal(qty.Truncate(0)) {
		return groupThousands(qty.Truncate(0).String())
	}
	return qty.StringFixed(2)
}

// formatMoney renders an amount with two decimal places and thousands
// separators.
func formatMoney(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	return groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	if len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
