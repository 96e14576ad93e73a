package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granular calendar date
// =============================================================================

// Date is a calendar date at day granularity, always UTC. All billing math
// works on dates, never on wall-clock instants.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return d.Before(o) || d.Equal(o) }
func (d Date) AfterOrEqual(o Date) bool  { return d.After(o) || d.Equal(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) MonthOfYear() time.Month { return d.Time.Month() }
func (d Date) DayOfMonth() int   { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }
func (d Date) Month() Month      { return Month{Year: d.Time.Year(), Month: d.Time.Month()} }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// =============================================================================
// MONTH - Year-month billing period
// =============================================================================

// Month is a billing period. The zero value means "no period" (used for
// an account that has never been billed).
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// ParseMonth parses "2006-01". An empty string is the zero Month.
func ParseMonth(s string) (Month, error) {
	if s == "" {
		return Month{}, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m Month) Next() Month     { return m.AddMonths(1) }
func (m Month) Previous() Month { return m.AddMonths(-1) }

func (m Month) AddMonths(n int) Month {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) After(o Month) bool  { return o.Before(m) }
func (m Month) Equal(o Month) bool  { return m.Year == o.Year && m.Month == o.Month }
func (m Month) BeforeOrEqual(o Month) bool { return m.Before(o) || m.Equal(o) }
func (m Month) AfterOrEqual(o Month) bool  { return m.After(o) || m.Equal(o) }

// MonthsUntil returns how many calendar months separate m from o
// (positive when o is later).
func (m Month) MonthsUntil(o Month) int {
	return (o.Year-m.Year)*12 + int(o.Month-m.Month)
}

// Start returns the first day of the month.
func (m Month) Start() Date { return NewDate(m.Year, m.Month, 1) }

// End returns the last day of the month.
func (m Month) End() Date {
	return Date{Time: time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// MonthsBetween returns every month in [from, to] inclusive, oldest first.
// Empty when to precedes from.
func MonthsBetween(from, to Month) []Month {
	var months []Month
	for current := from; current.BeforeOrEqual(to); current = current.Next() {
		months = append(months, current)
	}
	return months
}
