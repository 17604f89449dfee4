/*
errors.go - Error types for calendar primitives and period arithmetic

PURPOSE:
  Every failure in this package is a validation or logic error caused by
  user-controlled input. Nothing here is transient, so nothing is retryable.

ERROR CATEGORIES:
  1. Parsing/validation - bad year, month, day, date or period text
  2. Ordering           - start period after end period
  3. Cadence mismatch   - month billing under a twice-monthly cadence

USAGE:
  Match sentinels with errors.Is, and use errors.As when the offending
  value is needed for a message:

    if errors.Is(err, calendar.ErrStartPeriodAfterEndPeriod) { ... }

    var bad *calendar.InvalidDateError
    if errors.As(err, &bad) { log(bad.Underlying) }

SEE ALSO:
  - billing/errors.go: invoice-number and quantity errors
*/
package calendar

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFailedToParseYear is returned when a year string is not a non-negative integer.
	ErrFailedToParseYear = errors.New("failed to parse year")

	// ErrInvalidMonth is returned for month ordinals outside 1-12.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidDay is returned for day numbers outside 1-31.
	ErrInvalidDay = errors.New("invalid day")

	// ErrInvalidDate is returned when a (year, month, day) triple does not exist,
	// or when period arithmetic lands before year zero.
	ErrInvalidDate = errors.New("invalid date")

	// ErrFailedToParseDate is returned when text matches none of the date formats.
	ErrFailedToParseDate = errors.New("failed to parse date")

	// ErrInvalidPeriod is returned for unusable period labels or period units.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrStartPeriodAfterEndPeriod is returned when counting periods backwards.
	ErrStartPeriodAfterEndPeriod = errors.New("start period is after end period")

	// ErrCannotInvoiceForMonthWhenCadenceIsBiWeekly is returned when a whole
	// month is billed while invoicing twice per month.
	ErrCannotInvoiceForMonthWhenCadenceIsBiWeekly = errors.New("cannot invoice for month when cadence is bi-weekly")

	// ErrUnknownGranularity is returned when parsing an unsupported billing unit.
	ErrUnknownGranularity = errors.New("unknown granularity")

	// ErrUnknownCadence is returned when parsing an unsupported invoicing frequency.
	ErrUnknownCadence = errors.New("unknown cadence")

	// ErrFailedToParsePaymentTerms is returned for payment terms other than "Net N".
	ErrFailedToParsePaymentTerms = errors.New("failed to parse payment terms")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the offending value
// =============================================================================

// FailedToParseYearError carries the text that was not a year.
type FailedToParseYearError struct {
	InvalidString string
}

func (e *FailedToParseYearError) Error() string {
	return fmt.Sprintf("Failed to parse year: %s", e.InvalidString)
}

func (e *FailedToParseYearError) Unwrap() error { return ErrFailedToParseYear }

// InvalidMonthError carries the rejected month ordinal.
type InvalidMonthError struct {
	Month  int
	Reason string
}

func (e *InvalidMonthError) Error() string {
	return fmt.Sprintf("Invalid month: %d, reason: %s", e.Month, e.Reason)
}

func (e *InvalidMonthError) Unwrap() error { return ErrInvalidMonth }

// InvalidDayError carries the rejected day number.
type InvalidDayError struct {
	Day    int
	Reason string
}

func (e *InvalidDayError) Error() string {
	return fmt.Sprintf("Invalid day: %d, reason: %s", e.Day, e.Reason)
}

func (e *InvalidDayError) Unwrap() error { return ErrInvalidDay }

// InvalidDateError describes why a date could not be built.
type InvalidDateError struct {
	Underlying string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("Invalid date, underlying: %s", e.Underlying)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// FailedToParseDateError describes why date text could not be parsed.
type FailedToParseDateError struct {
	Underlying string
}

func (e *FailedToParseDateError) Error() string {
	return fmt.Sprintf("Failed to parse date, because: %s", e.Underlying)
}

func (e *FailedToParseDateError) Unwrap() error { return ErrFailedToParseDate }

// InvalidPeriodError carries the rejected period text and, when parsing
// failed further down, the error that caused it.
type InvalidPeriodError struct {
	BadValue   string
	Underlying error
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("Invalid Period, bad value: %s", e.BadValue)
}

func (e *InvalidPeriodError) Unwrap() []error {
	if e.Underlying == nil {
		return []error{ErrInvalidPeriod}
	}
	return []error{ErrInvalidPeriod, e.Underlying}
}

// StartPeriodAfterEndPeriodError carries both normalized period-end dates.
type StartPeriodAfterEndPeriodError struct {
	Start Date
	End   Date
}

func (e *StartPeriodAfterEndPeriodError) Error() string {
	return fmt.Sprintf("Start period ('%s') is after end period ('%s')", e.Start, e.End)
}

func (e *StartPeriodAfterEndPeriodError) Unwrap() error { return ErrStartPeriodAfterEndPeriod }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error was caused by invalid input to this
// package. All calendar errors are.
func IsClientError(err error) bool {
	return errors.Is(err, ErrFailedToParseYear) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidDay) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrFailedToParseDate) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrStartPeriodAfterEndPeriod) ||
		errors.Is(err, ErrCannotInvoiceForMonthWhenCadenceIsBiWeekly) ||
		errors.Is(err, ErrUnknownGranularity) ||
		errors.Is(err, ErrUnknownCadence) ||
		errors.Is(err, ErrFailedToParsePaymentTerms)
}
