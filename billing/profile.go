/*
profile.go - Invoice inputs: parties, service fees, periods off and expenses

PURPOSE:
  A Profile holds everything persisted between invoices for one
  vendor/client relationship. It is the input to Prepare and the unit the
  invoicing service stores.

INVARIANTS:
  - Information.Anchor's period is never in Information.PeriodsOff.
  - ServiceFees never bill whole months under a bi-weekly cadence.
  - Expenses are keyed by period-end date for the fee cadence.

SEE ALSO:
  - prepare.go: turns a Profile and a Request into a Plan
  - factory/profile.go: JSON/YAML documents for profiles
*/
package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/period-engine/calendar"
)

// DataVersion is the profile schema version this package reads and writes.
const DataVersion = 1

// =============================================================================
// RATE & SERVICE FEES
// =============================================================================

type Rate struct {
	Granularity calendar.Granularity
	UnitPrice   decimal.Decimal
}

func MonthlyRate(price decimal.Decimal) Rate {
	return Rate{Granularity: calendar.GranularityMonth, UnitPrice: price}
}

func DailyRate(price decimal.Decimal) Rate {
	return Rate{Granularity: calendar.GranularityDay, UnitPrice: price}
}

func HourlyRate(price decimal.Decimal) Rate {
	return Rate{Granularity: calendar.GranularityHour, UnitPrice: price}
}

type ServiceFees struct {
	Name    string
	Rate    Rate
	Cadence calendar.Cadence
}

func (f ServiceFees) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: service fees name is required", ErrInvalidProfile)
	}
	if f.Rate.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price %s is negative", ErrInvalidProfile, f.Rate.UnitPrice)
	}
	return f.Cadence.Validate(f.Rate.Granularity)
}

// =============================================================================
// PARTIES & INFORMATION
// =============================================================================

// Company is a vendor or a client.
type Company struct {
	Name               string
	ContactPerson      string
	OrganisationNumber string
	VATNumber          string
	Address            []string
	Email              string
}

type Information struct {
	Anchor        Anchor
	PeriodsOff    *RecordOfPeriodsOff
	PurchaseOrder string
	FooterText    string
}

// Validate checks that the anchor's period was not recorded as off.
func (i Information) Validate(cadence calendar.Cadence) error {
	if i.PeriodsOff.ContainsPeriod(i.Anchor.Period, cadence) {
		return &OffsetPeriodMustNotBeInRecordOfPeriodsOffError{
			OffsetPeriod: calendar.Normalize(i.Anchor.Period, cadence),
			Cadence:      cadence,
		}
	}
	return nil
}

// InsertPeriodOff records the period containing date as off and returns the
// normalized period end. Recording the same period twice is a no-op.
func (i *Information) InsertPeriodOff(date calendar.Date, cadence calendar.Cadence) (calendar.Date, error) {
	period := calendar.Normalize(date, cadence)
	if period == calendar.Normalize(i.Anchor.Period, cadence) {
		return calendar.Date{}, &OffsetPeriodMustNotBeInRecordOfPeriodsOffError{OffsetPeriod: period, Cadence: cadence}
	}
	if i.PeriodsOff == nil {
		i.PeriodsOff = NewRecordOfPeriodsOff()
	}
	if !i.PeriodsOff.ContainsPeriod(period, cadence) {
		i.PeriodsOff.Insert(period)
	}
	return period, nil
}

// =============================================================================
// EXPENSES
// =============================================================================

type ExpenseItem struct {
	ID              string
	Name            string
	UnitPrice       decimal.Decimal
	Currency        string
	Quantity        decimal.Decimal
	TransactionDate calendar.Date
}

func (e ExpenseItem) Total() decimal.Decimal { return e.UnitPrice.Mul(e.Quantity) }

// sameExceptQuantity ignores ID and Quantity.
func (e ExpenseItem) sameExceptQuantity(other ExpenseItem) bool {
	return e.Name == other.Name &&
		e.UnitPrice.Equal(other.UnitPrice) &&
		e.Currency == other.Currency &&
		e.TransactionDate == other.TransactionDate
}

// ExpensedPeriods groups expense items by period-end date.
type ExpensedPeriods struct {
	byPeriod map[calendar.Date][]ExpenseItem
}

func NewExpensedPeriods() *ExpensedPeriods {
	return &ExpensedPeriods{byPeriod: make(map[calendar.Date][]ExpenseItem)}
}

// Insert adds items to the period. An item identical to an existing one
// except for its quantity is merged into it by adding the quantities.
func (e *ExpensedPeriods) Insert(period calendar.Date, items ...ExpenseItem) {
	if e.byPeriod == nil {
		e.byPeriod = make(map[calendar.Date][]ExpenseItem)
	}
	existing := e.byPeriod[period]
next:
	for _, item := range items {
		for i := range existing {
			if existing[i].sameExceptQuantity(item) {
				existing[i].Quantity = existing[i].Quantity.Add(item.Quantity)
				continue next
			}
		}
		existing = append(existing, item)
	}
	e.byPeriod[period] = existing
}

// Get returns a copy of the items recorded for the period.
func (e *ExpensedPeriods) Get(period calendar.Date) ([]ExpenseItem, error) {
	var items []ExpenseItem
	if e != nil {
		items = e.byPeriod[period]
	}
	if len(items) == 0 {
		return nil, &TargetPeriodMustHaveExpensesError{TargetPeriod: period}
	}
	out := make([]ExpenseItem, len(items))
	copy(out, items)
	return out, nil
}

// Periods returns the period ends with expenses, oldest first.
func (e *ExpensedPeriods) Periods() []calendar.Date {
	if e == nil {
		return nil
	}
	out := make([]calendar.Date, 0, len(e.byPeriod))
	for p := range e.byPeriod {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// EnsureIDs gives every item without an ID one from newID.
func (e *ExpensedPeriods) EnsureIDs(newID func() string) {
	if e == nil {
		return
	}
	for _, items := range e.byPeriod {
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = newID()
			}
		}
	}
}

// HasID reports whether any period holds an item with the given ID.
func (e *ExpensedPeriods) HasID(id string) bool {
	if e == nil || id == "" {
		return false
	}
	for _, items := range e.byPeriod {
		for _, item := range items {
			if item.ID == id {
				return true
			}
		}
	}
	return false
}

// CheckIDs fails on the first non-empty ID shared by two items.
func (e *ExpensedPeriods) CheckIDs() error {
	if e == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, period := range e.Periods() {
		for _, item := range e.byPeriod[period] {
			if item.ID == "" {
				continue
			}
			if seen[item.ID] {
				return &DuplicateExpenseIDError{ID: item.ID}
			}
			seen[item.ID] = true
		}
	}
	return nil
}

func (e *ExpensedPeriods) Len() int {
	if e == nil {
		return 0
	}
	return len(e.byPeriod)
}

func (e *ExpensedPeriods) Clone() *ExpensedPeriods {
	out := NewExpensedPeriods()
	if e == nil {
		return out
	}
	for p, items := range e.byPeriod {
		out.byPeriod[p] = append([]ExpenseItem(nil), items...)
	}
	return out
}

// =============================================================================
// PROFILE
// =============================================================================

type Profile struct {
	ID           string
	Version      int
	Vendor       Company
	Client       Company
	Information  Information
	ServiceFees  ServiceFees
	PaymentTerms calendar.PaymentTerms
	Currency     string
	Expenses     *ExpensedPeriods
}

func (p Profile) Cadence() calendar.Cadence { return p.ServiceFees.Cadence }

func (p Profile) Validate() error {
	if p.Version != DataVersion {
		return &DataVersionMismatchError{Found: p.Version, Expected: DataVersion}
	}
	if strings.TrimSpace(p.Vendor.Name) == "" {
		return fmt.Errorf("%w: vendor name is required", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.Client.Name) == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidProfile)
	}
	if p.Information.Anchor.Period.IsZero() {
		return fmt.Errorf("%w: anchor period is required", ErrInvalidProfile)
	}
	if p.Information.Anchor.Offset < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInvoiceNumber, p.Information.Anchor.Offset)
	}
	if err := p.ServiceFees.Validate(); err != nil {
		return err
	}
	if err := p.Expenses.CheckIDs(); err != nil {
		return err
	}
	return p.Information.Validate(p.Cadence())
}

// Clone returns a copy sharing no mutable state with p.
func (p Profile) Clone() Profile {
	out := p
	out.Vendor.Address = append([]string(nil), p.Vendor.Address...)
	out.Client.Address = append([]string(nil), p.Client.Address...)
	out.Information.PeriodsOff = p.Information.PeriodsOff.Clone()
	out.Expenses = p.Expenses.Clone()
	return out
}
