package calendar

import (
	"strconv"
	"time"
)

// =============================================================================
// YEAR
// =============================================================================

// Year is a calendar year, e.g. 2025. Years are never negative.
type Year int

// ParseYear parses a decimal year such as "2025".
func ParseYear(s string) (Year, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, &FailedToParseYearError{InvalidString: s}
	}
	return Year(n), nil
}

// IsLeap reports whether February has 29 days in this year.
func (y Year) IsLeap() bool {
	return (y%4 == 0 && y%100 != 0) || y%400 == 0
}

// =============================================================================
// MONTH
// =============================================================================

// Month is a month ordinal, January = 1.
type Month int

const (
	January Month = iota + 1
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// NewMonth validates a month ordinal.
func NewMonth(n int) (Month, error) {
	if n < 1 || n > 12 {
		return 0, &InvalidMonthError{Month: n, Reason: "month must be between 1 and 12"}
	}
	return Month(n), nil
}

// ParseMonth parses a numeric month such as "05" or "5".
func ParseMonth(s string) (Month, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &InvalidMonthError{Month: -1, Reason: "not a number: " + s}
	}
	return NewMonth(n)
}

// LastDay returns the number of days of the month in the given year.
func (m Month) LastDay(year Year) Day {
	switch m {
	case April, June, September, November:
		return 30
	case February:
		if year.IsLeap() {
			return 29
		}
		return 28
	default:
		return 31
	}
}

func (m Month) String() string {
	if m < January || m > December {
		return "Month(" + strconv.Itoa(int(m)) + ")"
	}
	return time.Month(m).String()
}

// =============================================================================
// DAY
// =============================================================================

// Day is a day of the month. It is only checked against its month when a
// Date is built.
type Day int

// NewDay validates a day number against the longest possible month.
func NewDay(n int) (Day, error) {
	if n < 1 || n > 31 {
		return 0, &InvalidDayError{Day: n, Reason: "day must be between 1 and 31"}
	}
	return Day(n), nil
}

// ParseDay parses a numeric day such as "07".
func ParseDay(s string) (Day, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &InvalidDayError{Day: -1, Reason: "not a number: " + s}
	}
	return NewDay(n)
}
