/*
errors.go - Error types for invoice numbering, quantities and invoice inputs

PURPOSE:
  Failures raised by the invoice rules. All of them stem from a bad target
  date, a bad label or an inconsistent profile, so all are client errors.
  Calendar-level failures (bad dates, backwards periods) are returned
  unchanged from the calendar package.

SEE ALSO:
  - calendar/errors.go: date parsing and period arithmetic errors
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/warp/period-engine/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRecordsOffMustNotContainOffsetPeriod is returned when the anchor's
	// own period has been recorded as a period off.
	ErrRecordsOffMustNotContainOffsetPeriod = errors.New("records off must not contain offset period")

	// ErrOffsetPeriodMustNotBeInRecordOfPeriodsOff is the profile-validation
	// form of the rule above.
	ErrOffsetPeriodMustNotBeInRecordOfPeriodsOff = errors.New("offset period must not be in the record of periods off")

	// ErrTargetPeriodMustNotBeInRecordOfPeriodsOff is returned when billing a
	// period that was recorded as off.
	ErrTargetPeriodMustNotBeInRecordOfPeriodsOff = errors.New("target period is in the record of periods off")

	// ErrGranularityTooCoarse is returned when the billing unit is larger than
	// one period.
	ErrGranularityTooCoarse = errors.New("granularity too coarse")

	// ErrInvalidGranularityForTimeOff is returned when time off is expressed
	// in a different unit than the service.
	ErrInvalidGranularityForTimeOff = errors.New("invalid granularity for time off")

	// ErrCannotExpenseForMonthWhenCadenceIsBiWeekly is returned for a
	// "YYYY-MM" label under a bi-weekly cadence.
	ErrCannotExpenseForMonthWhenCadenceIsBiWeekly = errors.New("cannot expense for month when cadence is bi-weekly")

	// ErrCannotExpenseForFortnightWhenCadenceIsMonthly is returned for a
	// half-month label under a monthly cadence.
	ErrCannotExpenseForFortnightWhenCadenceIsMonthly = errors.New("cannot expense for fortnight when cadence is monthly")

	// ErrTargetPeriodMustHaveExpenses is returned when preparing an expense
	// invoice for a period without recorded expenses.
	ErrTargetPeriodMustHaveExpenses = errors.New("target period has no expenses")

	// ErrNegativeTimeOff is returned for time off below zero.
	ErrNegativeTimeOff = errors.New("time off must not be negative")

	// ErrTimeOffExceedsQuantity is returned when more time off is declared
	// than the period contains.
	ErrTimeOffExceedsQuantity = errors.New("time off exceeds the quantity in period")

	// ErrInvalidInvoiceNumber is returned for negative or non-numeric invoice numbers.
	ErrInvalidInvoiceNumber = errors.New("invalid invoice number")

	// ErrDataVersionMismatch is returned for profiles written by an
	// incompatible schema version.
	ErrDataVersionMismatch = errors.New("data version mismatch")

	// ErrDuplicateExpenseID is returned when an expense item reuses the ID
	// of another item in the same profile.
	ErrDuplicateExpenseID = errors.New("duplicate expense id")

	// ErrInvalidProfile is returned when a required profile field is missing.
	ErrInvalidProfile = errors.New("invalid profile")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type RecordsOffMustNotContainOffsetPeriodError struct {
	OffsetPeriod calendar.Date
}

func (e *RecordsOffMustNotContainOffsetPeriodError) Error() string {
	return fmt.Sprintf("Records off must not contain offset period: %s", e.OffsetPeriod)
}

func (e *RecordsOffMustNotContainOffsetPeriodError) Unwrap() error {
	return ErrRecordsOffMustNotContainOffsetPeriod
}

type OffsetPeriodMustNotBeInRecordOfPeriodsOffError struct {
	OffsetPeriod calendar.Date
	Cadence      calendar.Cadence
}

func (e *OffsetPeriodMustNotBeInRecordOfPeriodsOffError) Error() string {
	return fmt.Sprintf("Offset period must not be in the record of periods off: %s, period kind: %s",
		e.OffsetPeriod, e.Cadence)
}

func (e *OffsetPeriodMustNotBeInRecordOfPeriodsOffError) Unwrap() error {
	return ErrOffsetPeriodMustNotBeInRecordOfPeriodsOff
}

type TargetPeriodMustNotBeInRecordOfPeriodsOffError struct {
	TargetPeriod calendar.Date
}

func (e *TargetPeriodMustNotBeInRecordOfPeriodsOffError) Error() string {
	return fmt.Sprintf("Target period %s is in the record of periods off, but it must not be.", e.TargetPeriod)
}

func (e *TargetPeriodMustNotBeInRecordOfPeriodsOffError) Unwrap() error {
	return ErrTargetPeriodMustNotBeInRecordOfPeriodsOff
}

// GranularityTooCoarseError names the unit, the largest unit allowed for the
// cadence, and the period being billed.
type GranularityTooCoarseError struct {
	Granularity    calendar.Granularity
	MaxGranularity calendar.Granularity
	TargetPeriod   calendar.Date
}

func (e *GranularityTooCoarseError) Error() string {
	return fmt.Sprintf("Granularity too coarse '%s', max is: '%s', for period: '%s'",
		e.Granularity, e.MaxGranularity, e.TargetPeriod)
}

func (e *GranularityTooCoarseError) Unwrap() error { return ErrGranularityTooCoarse }

type InvalidGranularityForTimeOffError struct {
	TimeOff     calendar.Granularity
	ServiceFees calendar.Granularity
}

func (e *InvalidGranularityForTimeOffError) Error() string {
	return fmt.Sprintf("Invalid granularity for time off: '%s', expected: '%s', use the same time unit for time off as you specified in service fees.",
		e.TimeOff, e.ServiceFees)
}

func (e *InvalidGranularityForTimeOffError) Unwrap() error { return ErrInvalidGranularityForTimeOff }

type TargetPeriodMustHaveExpensesError struct {
	TargetPeriod calendar.Date
}

func (e *TargetPeriodMustHaveExpensesError) Error() string {
	return fmt.Sprintf("Target period %s has no expenses, record expenses before invoicing them.", e.TargetPeriod)
}

func (e *TargetPeriodMustHaveExpensesError) Unwrap() error { return ErrTargetPeriodMustHaveExpenses }

type DataVersionMismatchError struct {
	Found    int
	Expected int
}

func (e *DataVersionMismatchError) Error() string {
	return fmt.Sprintf("Data version mismatch: found %d, expected %d", e.Found, e.Expected)
}

func (e *DataVersionMismatchError) Unwrap() error { return ErrDataVersionMismatch }

type DuplicateExpenseIDError struct {
	ID string
}

func (e *DuplicateExpenseIDError) Error() string {
	return fmt.Sprintf("Expense item ID '%s' is already in use, leave the ID empty to have one generated.", e.ID)
}

func (e *DuplicateExpenseIDError) Unwrap() error { return ErrDuplicateExpenseID }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid input, either to
// the invoice rules or to the calendar beneath them.
func IsClientError(err error) bool {
	return calendar.IsClientError(err) ||
		errors.Is(err, ErrRecordsOffMustNotContainOffsetPeriod) ||
		errors.Is(err, ErrOffsetPeriodMustNotBeInRecordOfPeriodsOff) ||
		errors.Is(err, ErrTargetPeriodMustNotBeInRecordOfPeriodsOff) ||
		errors.Is(err, ErrGranularityTooCoarse) ||
		errors.Is(err, ErrInvalidGranularityForTimeOff) ||
		errors.Is(err, ErrCannotExpenseForMonthWhenCadenceIsBiWeekly) ||
		errors.Is(err, ErrCannotExpenseForFortnightWhenCadenceIsMonthly) ||
		errors.Is(err, ErrTargetPeriodMustHaveExpenses) ||
		errors.Is(err, ErrNegativeTimeOff) ||
		errors.Is(err, ErrTimeOffExceedsQuantity) ||
		errors.Is(err, ErrInvalidInvoiceNumber) ||
		errors.Is(err, ErrDataVersionMismatch) ||
		errors.Is(err, ErrDuplicateExpenseID) ||
		errors.Is(err, ErrInvalidProfile)
}
