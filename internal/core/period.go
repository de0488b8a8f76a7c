package core

import "time"

// Period identifies one budget scope: a calendar month of a year.
type Period struct {
	Month int // 1-12
	Year  int
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1970 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

// Bounds returns the inclusive window of the period: the first instant of the
// month through the last calendar day at 23:59:59, both in UTC. The last day
// is derived from the calendar, so month lengths and leap years are handled
// by time.Date normalization.
func (p Period) Bounds() (from, to time.Time) {
	from = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	to = from.AddDate(0, 1, 0).Add(-time.Second)
	return from, to
}

// Previous returns the period one month earlier, rolling over year boundaries.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// PeriodOf returns the period the given instant falls in, evaluated in UTC.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// CurrentPeriod returns the period of the current instant.
func CurrentPeriod() Period {
	return PeriodOf(time.Now())
}

// Contains reports whether the instant falls inside the period's bounds.
func (p Period) Contains(t time.Time) bool {
	from, to := p.Bounds()
	t = t.UTC()
	return !t.Before(from) && !t.After(to)
}
