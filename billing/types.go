/*
Package billing turns calendar periods into invoice numbers and billable
quantities.

CORE CONCEPTS:
  - Anchor: the last known-good (invoice number, period end) pair. Every
    later number is counted forward from it.
  - RecordOfPeriodsOff: periods with no invoice at all. They do not consume
    an invoice number.
  - Quantity: an amount of a billing unit (hours, days, fortnights, months).
  - Profile: everything needed to prepare an invoice for one vendor/client
    relationship.

All functions here are pure. Persistence and logging live in the invoicing
package.

EXAMPLE:

	anchor := billing.Anchor{Offset: 100, Period: calendar.MustDate(2025, 12, 31)}
	n, err := billing.CalculateInvoiceNumber(anchor, calendar.MustDate(2026, 2, 10),
		calendar.CadenceMonthly, false, billing.NewRecordOfPeriodsOff())
	// n == 102
*/
package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/period-engine/calendar"
)

// =============================================================================
// INVOICE NUMBER & ANCHOR
// =============================================================================

type InvoiceNumber int

func ParseInvoiceNumber(s string) (InvoiceNumber, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInvoiceNumber, s)
	}
	return InvoiceNumber(n), nil
}

func (n InvoiceNumber) String() string { return strconv.Itoa(int(n)) }

// Anchor pins Offset to the period containing Period. It only changes by an
// explicit re-anchoring.
type Anchor struct {
	Offset InvoiceNumber
	Period calendar.Date
}

// =============================================================================
// RECORD OF PERIODS OFF
// =============================================================================

// RecordOfPeriodsOff is an insertion-ordered set of period-end dates. A nil
// record is empty.
type RecordOfPeriodsOff struct {
	dates []calendar.Date
	index map[calendar.Date]struct{}
}

func NewRecordOfPeriodsOff(dates ...calendar.Date) *RecordOfPeriodsOff {
	r := &RecordOfPeriodsOff{index: make(map[calendar.Date]struct{}, len(dates))}
	for _, d := range dates {
		r.Insert(d)
	}
	return r
}

// Insert adds date unless it is already present and reports whether it was added.
func (r *RecordOfPeriodsOff) Insert(date calendar.Date) bool {
	if r.index == nil {
		r.index = make(map[calendar.Date]struct{})
	}
	if _, ok := r.index[date]; ok {
		return false
	}
	r.index[date] = struct{}{}
	r.dates = append(r.dates, date)
	return true
}

// Contains checks for the exact date.
func (r *RecordOfPeriodsOff) Contains(date calendar.Date) bool {
	if r == nil {
		return false
	}
	_, ok := r.index[date]
	return ok
}

// ContainsPeriod reports whether any recorded date falls in the same period
// as date under the given cadence.
func (r *RecordOfPeriodsOff) ContainsPeriod(date calendar.Date, cadence calendar.Cadence) bool {
	period := calendar.Normalize(date, cadence)
	for _, d := range r.Dates() {
		if calendar.Normalize(d, cadence) == period {
			return true
		}
	}
	return false
}

// Dates returns a copy of the recorded dates in insertion order.
func (r *RecordOfPeriodsOff) Dates() []calendar.Date {
	if r == nil {
		return nil
	}
	out := make([]calendar.Date, len(r.dates))
	copy(out, r.dates)
	return out
}

func (r *RecordOfPeriodsOff) Len() int {
	if r == nil {
		return 0
	}
	return len(r.dates)
}

// Retain keeps only the dates for which keep returns true.
func (r *RecordOfPeriodsOff) Retain(keep func(calendar.Date) bool) {
	if r == nil {
		return
	}
	kept := r.dates[:0]
	for _, d := range r.dates {
		if keep(d) {
			kept = append(kept, d)
		} else {
			delete(r.index, d)
		}
	}
	r.dates = kept
}

func (r *RecordOfPeriodsOff) Clone() *RecordOfPeriodsOff {
	return NewRecordOfPeriodsOff(r.Dates()...)
}

func (r *RecordOfPeriodsOff) MarshalJSON() ([]byte, error) {
	dates := r.Dates()
	if dates == nil {
		dates = []calendar.Date{}
	}
	return json.Marshal(dates)
}

func (r *RecordOfPeriodsOff) UnmarshalJSON(data []byte) error {
	var dates []calendar.Date
	if err := json.Unmarshal(data, &dates); err != nil {
		return err
	}
	*r = *NewRecordOfPeriodsOff(dates...)
	return nil
}

// =============================================================================
// QUANTITY - An amount of a billing unit
// =============================================================================

type Quantity struct {
	Value decimal.Decimal
	Unit  calendar.Granularity
}

func NewQuantity(value int64, unit calendar.Granularity) Quantity {
	return Quantity{Value: decimal.NewFromInt(value), Unit: unit}
}

func (q Quantity) Add(other Quantity) Quantity { return Quantity{Value: q.Value.Add(other.Value), Unit: q.Unit} }
func (q Quantity) Sub(other Quantity) Quantity { return Quantity{Value: q.Value.Sub(other.Value), Unit: q.Unit} }
func (q Quantity) IsNegative() bool            { return q.Value.IsNegative() }
func (q Quantity) IsZero() bool                { return q.Value.IsZero() }

func (q Quantity) String() string { return q.Value.String() + " " + q.Unit.String() }

// TimeOff is time not worked inside a billed period. It must use the same
// unit as the service it reduces.
type TimeOff Quantity

func NewTimeOff(value decimal.Decimal, unit calendar.Granularity) TimeOff {
	return TimeOff{Value: value, Unit: unit}
}

// ValidateFor checks the time off against the service's billing unit.
func (t TimeOff) ValidateFor(service calendar.Granularity) error {
	if t.Unit != service {
		return &InvalidGranularityForTimeOffError{TimeOff: t.Unit, ServiceFees: service}
	}
	if t.Value.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeTimeOff, Quantity(t))
	}
	return nil
}
