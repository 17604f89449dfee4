package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/period-engine/calendar"
)

// =============================================================================
// REQUEST
// =============================================================================

// Items selects what an invoice bills: ServiceItems or ExpenseItems.
type Items interface {
	isItems()
}

// ServiceItems bills the service fees, minus optional time off.
type ServiceItems struct {
	TimeOff *TimeOff
}

// ExpenseItems bills the expenses recorded for the period.
type ExpenseItems struct{}

func (ServiceItems) isItems() {}
func (ExpenseItems) isItems() {}

type Request struct {
	Date  calendar.Date
	Items Items
}

func (r Request) IsExpenses() bool {
	_, ok := r.Items.(ExpenseItems)
	return ok
}

// =============================================================================
// PLAN - Everything a renderer needs
// =============================================================================

type LineItem struct {
	Name            string
	UnitPrice       decimal.Decimal
	Currency        string
	Quantity        decimal.Decimal
	Unit            string
	TransactionDate calendar.Date
}

func (l LineItem) Total() decimal.Decimal { return l.UnitPrice.Mul(l.Quantity) }

type Plan struct {
	Number        InvoiceNumber
	InvoiceDate   calendar.Date
	DueDate       calendar.Date
	PeriodStart   calendar.Date
	PeriodEnd     calendar.Date
	IsExpenses    bool
	Vendor        Company
	Client        Company
	PurchaseOrder string
	FooterText    string
	Currency      string
	LineItems     []LineItem
}

func (p Plan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.LineItems {
		total = total.Add(l.Total())
	}
	return total
}

// FileName is the name the rendered invoice is saved under, e.g.
// "2025-05-31_Acme_Corp_expenses_invoice_107.pdf".
func (p Plan) FileName() string {
	suffix := ""
	if p.IsExpenses {
		suffix = "_expenses"
	}
	vendor := strings.ReplaceAll(strings.TrimSpace(p.Vendor.Name), " ", "_")
	return fmt.Sprintf("%s_%s%s_invoice_%d.pdf", p.InvoiceDate, vendor, suffix, p.Number)
}

// =============================================================================
// PREPARE
// =============================================================================

// Prepare computes the invoice for the period containing req.Date. The
// invoice is dated on the last day of that period.
func Prepare(profile Profile, req Request) (Plan, error) {
	if err := profile.Validate(); err != nil {
		return Plan{}, err
	}

	cadence := profile.Cadence()
	info := profile.Information
	start, end := calendar.PeriodBounds(req.Date, cadence)

	number, err := CalculateInvoiceNumber(info.Anchor, end, cadence, req.IsExpenses(), info.PeriodsOff)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Number:        number,
		InvoiceDate:   end,
		DueDate:       end.Advance(profile.PaymentTerms),
		PeriodStart:   start,
		PeriodEnd:     end,
		IsExpenses:    req.IsExpenses(),
		Vendor:        profile.Vendor,
		Client:        profile.Client,
		PurchaseOrder: info.PurchaseOrder,
		FooterText:    info.FooterText,
		Currency:      profile.Currency,
	}

	switch items := req.Items.(type) {
	case ExpenseItems:
		expenses, err := profile.Expenses.Get(end)
		if err != nil {
			return Plan{}, err
		}
		for _, e := range expenses {
			plan.LineItems = append(plan.LineItems, LineItem{
				Name:            e.Name,
				UnitPrice:       e.UnitPrice,
				Currency:        e.Currency,
				Quantity:        e.Quantity,
				TransactionDate: e.TransactionDate,
			})
		}
	case ServiceItems, nil:
		var timeOff *TimeOff
		if s, ok := items.(ServiceItems); ok {
			timeOff = s.TimeOff
		}
		fees := profile.ServiceFees
		q, err := BillableQuantity(end, fees.Rate.Granularity, cadence, info.PeriodsOff, timeOff)
		if err != nil {
			return Plan{}, err
		}
		plan.LineItems = []LineItem{{
			Name:            fees.Name,
			UnitPrice:       fees.Rate.UnitPrice,
			Currency:        profile.Currency,
			Quantity:        q.Value,
			Unit:            q.Unit.String(),
			TransactionDate: end,
		}}
	default:
		return Plan{}, fmt.Errorf("%w: unsupported invoice items %T", ErrInvalidProfile, items)
	}
	return plan, nil
}
