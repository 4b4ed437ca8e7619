// Package marketclock gates trading on the US equity market calendar.
//
// Holiday and early-close rules follow the NYSE schedule: fixed-date
// holidays shift to the nearest weekday when they land on a weekend, and
// the market closes at 13:00 Eastern on the day before Independence Day,
// the day after Thanksgiving, and Christmas Eve.
package marketclock

import "time"

// nthWeekday returns the date of the nth given weekday of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the date of the last given weekday of a month.
func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// easterSunday computes Easter Sunday via the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// observed shifts a weekend holiday to the adjacent weekday: Saturday
// observes Friday, Sunday observes Monday.
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func holidaysForYear(year int) []time.Time {
	date := func(month time.Month, day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
	return []time.Time{
		observed(date(time.January, 1)),                  // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),   // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),  // Presidents' Day
		easterSunday(year).AddDate(0, 0, -2),             // Good Friday
		lastWeekday(year, time.May, time.Monday),         // Memorial Day
		observed(date(time.June, 19)),                    // Juneteenth
		observed(date(time.July, 4)),                     // Independence Day
		nthWeekday(year, time.September, time.Monday, 1), // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date(time.December, 25)),                // Christmas Day
	}
}

// IsMarketHoliday reports whether the date of t is a US market holiday.
func IsMarketHoliday(t time.Time) bool {
	for _, h := range holidaysForYear(t.Year()) {
		if sameDate(t, h) {
			return true
		}
	}
	return false
}

// IsEarlyClose reports whether the market closes at 13:00 Eastern on the
// date of t.
func IsEarlyClose(t time.Time) bool {
	year := t.Year()
	dayBeforeIndependence := time.Date(year, time.July, 3, 0, 0, 0, 0, time.UTC)
	blackFriday := nthWeekday(year, time.November, time.Thursday, 4).AddDate(0, 0, 1)
	christmasEve := time.Date(year, time.December, 24, 0, 0, 0, 0, time.UTC)

	return sameDate(t, dayBeforeIndependence) ||
		sameDate(t, blackFriday) ||
		sameDate(t, christmasEve)
}

// IsTradingDay reports whether the date of t is a regular trading day.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !IsMarketHoliday(t)
}
