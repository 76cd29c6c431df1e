package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Identity of a simulation step
// =============================================================================

type TimePoint struct {
	Time        time.Time
	Granularity Granularity
}

type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityMonth
)

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Granularity: GranularityDay}
}

func NewMonthPoint(year int, month time.Month) TimePoint {
	return TimePoint{Time: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), Granularity: GranularityMonth}
}

// ParseTimePoint reads a YYYY-MM-DD date.
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return NewTimePoint(t.Year(), t.Month(), t.Day()), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool  { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool  { return tp.normalize().After(other.normalize()) }

func (tp TimePoint) normalize() time.Time {
	switch tp.Granularity {
	case GranularityMonth:
		return time.Date(tp.Time.Year(), tp.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint {
	return TimePoint{Time: tp.Time.AddDate(0, 0, n), Granularity: tp.Granularity}
}
func (tp TimePoint) AddMonths(n int) TimePoint {
	return TimePoint{Time: tp.Time.AddDate(0, n, 0), Granularity: tp.Granularity}
}

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// DaysInMonth returns the number of days in the point's calendar month.
func (tp TimePoint) DaysInMonth() int {
	return time.Date(tp.Year(), tp.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (tp TimePoint) String() string {
	switch tp.Granularity {
	case GranularityMonth:
		return tp.Time.Format("2006-01")
	default:
		return tp.Time.Format("2006-01-02")
	}
}

// =============================================================================
// CLOCK - Simulation clock as seen by activities
// =============================================================================

// Clock exposes the identity of the current simulation step.
type Clock interface {
	Today() TimePoint
}

// MonthlyClock advances one calendar month per step.
type MonthlyClock struct {
	start   TimePoint
	current TimePoint
	steps   int
}

// NewMonthlyClock starts at the month containing start.
func NewMonthlyClock(start TimePoint) *MonthlyClock {
	m := NewMonthPoint(start.Year(), start.Month())
	return &MonthlyClock{start: m, current: m}
}

func (c *MonthlyClock) Today() TimePoint { return c.current }

// Steps returns how many times the clock has advanced.
func (c *MonthlyClock) Steps() int { return c.steps }

// Advance moves to the next month and returns it.
func (c *MonthlyClock) Advance() TimePoint {
	c.current = c.current.AddMonths(1)
	c.steps++
	return c.current
}

// Reset returns the clock to its start month.
func (c *MonthlyClock) Reset() {
	c.current = c.start
	c.steps = 0
}

// FixedClock always reports the same step.
type FixedClock struct {
	At TimePoint
}

func (c FixedClock) Today() TimePoint { return c.At }
