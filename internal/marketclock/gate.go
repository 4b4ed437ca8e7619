package marketclock

import (
	"fmt"
	"time"

	"trade_bot/internal/config"
)

var earlyCloseClock = config.Clock{Hour: 13, Minute: 0}

// Gate decides whether trading is allowed at a point in time. All
// evaluation happens in the exchange's calendar timezone regardless of the
// process timezone. The session window is inclusive of its start and
// exclusive of its end.
type Gate struct {
	loc   *time.Location
	start config.Clock
	end   config.Clock
}

// NewGate builds a gate from the schedule configuration.
func NewGate(cfg config.ScheduleConfig) (*Gate, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	start, end, err := cfg.SessionWindow()
	if err != nil {
		return nil, err
	}
	return &Gate{loc: loc, start: start, end: end}, nil
}

// Location returns the gate's calendar timezone.
func (g *Gate) Location() *time.Location {
	return g.loc
}

// sessionEnd returns the closing clock for a date, honoring early closes.
func (g *Gate) sessionEnd(local time.Time) config.Clock {
	if IsEarlyClose(local) && earlyCloseClock.Before(g.end) {
		return earlyCloseClock
	}
	return g.end
}

func (g *Gate) at(local time.Time, c config.Clock) time.Time {
	y, m, d := local.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, g.loc)
}

// IsOpen reports whether now falls inside the trading session.
func (g *Gate) IsOpen(now time.Time) bool {
	local := now.In(g.loc)
	if !IsTradingDay(local) {
		return false
	}
	start := g.at(local, g.start)
	end := g.at(local, g.sessionEnd(local))
	return !local.Before(start) && local.Before(end)
}

// NextOpen returns the start of the next trading session at or after now.
func (g *Gate) NextOpen(now time.Time) time.Time {
	local := now.In(g.loc)
	candidate := local
	if !local.Before(g.at(local, g.start)) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	for !IsTradingDay(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return g.at(candidate, g.start)
}

// NextMinute returns the start of the minute following now. The trading
// loop sleeps until this instant so cycles stay aligned to minute
// boundaries.
func NextMinute(now time.Time) time.Time {
	return now.Truncate(time.Minute).Add(time.Minute)
}
