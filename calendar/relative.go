package calendar

import "time"

// Clock supplies today's date. Production code uses SystemClock; tests pin
// the date with FixedClock.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Today() Date { return DateFromTime(time.Now().UTC()) }

// FixedClock always returns the same date.
type FixedClock struct {
	Date Date
}

func (c FixedClock) Today() Date { return c.Date }

// RelativeTime names a period relative to today: Amount 0 is the current
// period, -1 the previous one.
type RelativeTime struct {
	Unit   Granularity
	Amount int
}

func Current(unit Granularity) RelativeTime { return RelativeTime{Unit: unit, Amount: 0} }
func Last(unit Granularity) RelativeTime    { return RelativeTime{Unit: unit, Amount: -1} }

// PeriodEndFromRelativeTime resolves rel against the clock's today.
func PeriodEndFromRelativeTime(rel RelativeTime, clock Clock) (Date, error) {
	return Shift(clock.Today(), rel.Unit, rel.Amount)
}
