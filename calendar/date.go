/*
Package calendar is the date and period arithmetic behind invoice numbering.

A period is identified by its last calendar day (its "period end"). Under a
monthly cadence that is the last day of the month; under a bi-weekly cadence
each month has two periods, ending on the 15th (14th in February) and on the
last day of the month.

Everything here is a pure value computation. There is no I/O and no holiday
calendar: working days are Monday to Friday.
*/
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE
// =============================================================================

// Date is a calendar date without time of day or time zone. The zero Date is
// not a valid date; build one with NewDate or ParseDate.
type Date struct {
	year  Year
	month Month
	day   Day
}

// NewDate builds a date, checking that the day exists in the given month.
func NewDate(year Year, month Month, day Day) (Date, error) {
	if year < 0 {
		return Date{}, &InvalidDateError{Underlying: fmt.Sprintf("year %d is negative", year)}
	}
	if month < January || month > December {
		return Date{}, &InvalidDateError{Underlying: fmt.Sprintf("month %d out of range", month)}
	}
	if day < 1 || day > month.LastDay(year) {
		return Date{}, &InvalidDateError{
			Underlying: fmt.Sprintf("day %d does not exist in %s %04d", day, month, year),
		}
	}
	return Date{year: year, month: month, day: day}, nil
}

// MustDate is NewDate for literals known to be valid. It panics otherwise.
func MustDate(year Year, month Month, day Day) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// DateFromTime truncates t, in its own location, to a Date.
func DateFromTime(t time.Time) Date {
	return Date{year: Year(t.Year()), month: Month(t.Month()), day: Day(t.Day())}
}

func (d Date) Year() Year   { return d.year }
func (d Date) Month() Month { return d.month }
func (d Date) Day() Day     { return d.day }
func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(int(d.year), time.Month(d.month), int(d.day), 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// Comparison

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.year != other.year:
		return cmpInt(int(d.year), int(other.year))
	case d.month != other.month:
		return cmpInt(int(d.month), int(other.month))
	default:
		return cmpInt(int(d.day), int(other.day))
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }
func (d Date) Equal(other Date) bool  { return d == other }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Arithmetic

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date {
	return Date{year: d.year, month: d.month, day: d.month.LastDay(d.year)}
}

// FirstHalfEnd returns the last day of the first half of d's month: the
// 14th in February, the 15th otherwise.
func (d Date) FirstHalfEnd() Date {
	return Date{year: d.year, month: d.month, day: firstHalfLastDay(d.month)}
}

func firstHalfLastDay(m Month) Day {
	if m == February {
		return 14
	}
	return 15
}

func (d Date) AdvanceDays(n int) Date { return DateFromTime(d.Time().AddDate(0, 0, n)) }

// Advance returns the due date for an invoice dated d.
func (d Date) Advance(terms PaymentTerms) Date { return d.AdvanceDays(terms.DueIn) }

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// IsWorkday reports whether d falls Monday to Friday.
func (d Date) IsWorkday() bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// =============================================================================
// PARSING
// =============================================================================

// ParseDate accepts the following forms:
//
//	2025-05-23            a plain date
//	2025-05               the last day of the month
//	2025-05-first         the end of the first half (also "first-half")
//	2025-05-second        the last day of the month (also "second-half")
//
// A numeric third part is always read as a day of the month.
func ParseDate(s string) (Date, error) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) < 2 {
		return Date{}, &FailedToParseDateError{
			Underlying: fmt.Sprintf("expected YYYY-MM-DD, YYYY-MM or YYYY-MM-<half>, got %q", s),
		}
	}

	year, err := ParseYear(parts[0])
	if err != nil {
		return Date{}, err
	}
	month, err := ParseMonth(parts[1])
	if err != nil {
		return Date{}, err
	}
	base := Date{year: year, month: month, day: 1}

	if len(parts) == 2 {
		return base.EndOfMonth(), nil
	}

	third := parts[2]
	if n, convErr := strconv.Atoi(third); convErr == nil {
		day, err := NewDay(n)
		if err != nil {
			return Date{}, err
		}
		return NewDate(year, month, day)
	}

	switch strings.ToLower(third) {
	case "first", "first-half":
		return base.FirstHalfEnd(), nil
	case "second", "second-half":
		return base.EndOfMonth(), nil
	}
	return Date{}, &FailedToParseDateError{
		Underlying: fmt.Sprintf("%q is neither a day nor a half of the month", third),
	}
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
