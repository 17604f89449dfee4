/*
Package factory converts JSON and YAML profile documents to billing.Profile.

PURPOSE:
  Profiles are edited by people: as YAML files next to the CLI, or as JSON
  bodies posted to the API. The factory parses either form, fills defaults
  and validates the result through billing.Profile.Validate.

JSON SCHEMA:
  {
    "id": "acme-globex",
    "version": 1,
    "vendor": {"name": "Acme Corp", "address": ["1 Road", "Springfield"]},
    "client": {"name": "Globex"},
    "information": {
      "offset": 100,
      "period": "2024-01-31",
      "periods_off": ["2024-03", "2024-04"],
      "purchase_order": "PO-7"
    },
    "service_fees": {
      "name": "Consulting",
      "granularity": "day",
      "unit_price": "500",
      "cadence": "monthly"
    },
    "payment_terms": "Net 30",
    "currency": "EUR",
    "expenses": [
      {"period": "2024-08", "items": [{"name": "Train", "unit_price": "120", "quantity": "1",
        "currency": "EUR", "transaction_date": "2024-08-20"}]}
    ]
  }

  YAML uses the same keys.

DEFAULTS:
  - version: current data version
  - payment_terms: Net 30
  - cadence: monthly
  - periods off and expense periods accept any period label and are
    normalized for the cadence

USAGE:
  f := factory.NewProfileFactory()
  profile, err := f.ParseProfile(factory.MonthlyDailyRateJSON("acme", "Acme Corp", "Globex", 100, "2024-01-31", "500"))

SEE ALSO:
  - billing/profile.go: Profile type definition
  - presets.go: ready-made profile documents
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// ProfileJSON is the JSON/YAML representation of a profile.
type ProfileJSON struct {
	ID           string               `json:"id,omitempty" yaml:"id,omitempty"`
	Version      int                  `json:"version,omitempty" yaml:"version,omitempty"`
	Vendor       CompanyJSON          `json:"vendor" yaml:"vendor"`
	Client       CompanyJSON          `json:"client" yaml:"client"`
	Information  InformationJSON      `json:"information" yaml:"information"`
	ServiceFees  ServiceFeesJSON      `json:"service_fees" yaml:"service_fees"`
	PaymentTerms string               `json:"payment_terms,omitempty" yaml:"payment_terms,omitempty"`
	Currency     string               `json:"currency" yaml:"currency"`
	Expenses     []ExpensedPeriodJSON `json:"expenses,omitempty" yaml:"expenses,omitempty"`
}

type CompanyJSON struct {
	Name               string   `json:"name" yaml:"name"`
	ContactPerson      string   `json:"contact_person,omitempty" yaml:"contact_person,omitempty"`
	OrganisationNumber string   `json:"organisation_number,omitempty" yaml:"organisation_number,omitempty"`
	VATNumber          string   `json:"vat_number,omitempty" yaml:"vat_number,omitempty"`
	Address            []string `json:"address,omitempty" yaml:"address,omitempty"`
	Email              string   `json:"email,omitempty" yaml:"email,omitempty"`
}

type InformationJSON struct {
	Offset        int      `json:"offset" yaml:"offset"`
	Period        string   `json:"period" yaml:"period"`
	PeriodsOff    []string `json:"periods_off,omitempty" yaml:"periods_off,omitempty"`
	PurchaseOrder string   `json:"purchase_order,omitempty" yaml:"purchase_order,omitempty"`
	FooterText    string   `json:"footer_text,omitempty" yaml:"footer_text,omitempty"`
}

type ServiceFeesJSON struct {
	Name        string `json:"name" yaml:"name"`
	Granularity string `json:"granularity" yaml:"granularity"`
	UnitPrice   string `json:"unit_price" yaml:"unit_price"`
	Cadence     string `json:"cadence,omitempty" yaml:"cadence,omitempty"`
}

type ExpensedPeriodJSON struct {
	Period string            `json:"period" yaml:"period"`
	Items  []ExpenseItemJSON `json:"items" yaml:"items"`
}

type ExpenseItemJSON struct {
	ID              string `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string `json:"name" yaml:"name"`
	UnitPrice       string `json:"unit_price" yaml:"unit_price"`
	Currency        string `json:"currency" yaml:"currency"`
	Quantity        string `json:"quantity" yaml:"quantity"`
	TransactionDate string `json:"transaction_date" yaml:"transaction_date"`
}

// =============================================================================
// FACTORY
// =============================================================================

type ProfileFactory struct{}

func NewProfileFactory() *ProfileFactory {
	return &ProfileFactory{}
}

// ParseProfile parses and validates a JSON profile document.
func (f *ProfileFactory) ParseProfile(jsonStr string) (billing.Profile, error) {
	var pj ProfileJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return billing.Profile{}, fmt.Errorf("invalid profile JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// ParseProfileYAML parses and validates a YAML profile document.
func (f *ProfileFactory) ParseProfileYAML(data []byte) (billing.Profile, error) {
	var pj ProfileJSON
	if err := yaml.Unmarshal(data, &pj); err != nil {
		return billing.Profile{}, fmt.Errorf("invalid profile YAML: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts a decoded document into a validated profile.
func (f *ProfileFactory) FromJSON(pj ProfileJSON) (billing.Profile, error) {
	p, err := f.build(pj)
	if err != nil {
		return billing.Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return billing.Profile{}, err
	}
	return p, nil
}

func (f *ProfileFactory) build(pj ProfileJSON) (billing.Profile, error) {
	p := billing.Profile{
		ID:           pj.ID,
		Version:      pj.Version,
		Vendor:       parseCompany(pj.Vendor),
		Client:       parseCompany(pj.Client),
		PaymentTerms: calendar.DefaultPaymentTerms,
		Currency:     pj.Currency,
		Expenses:     billing.NewExpensedPeriods(),
	}
	if p.Version == 0 {
		p.Version = billing.DataVersion
	}
	if pj.PaymentTerms != "" {
		terms, err := calendar.ParsePaymentTerms(pj.PaymentTerms)
		if err != nil {
			return billing.Profile{}, err
		}
		p.PaymentTerms = terms
	}

	fees, err := parseServiceFees(pj.ServiceFees)
	if err != nil {
		return billing.Profile{}, err
	}
	p.ServiceFees = fees
	cadence := fees.Cadence

	anchorPeriod, err := calendar.ParseDate(pj.Information.Period)
	if err != nil {
		return billing.Profile{}, fmt.Errorf("information.period: %w", err)
	}
	if pj.Information.Offset < 0 {
		return billing.Profile{}, fmt.Errorf("%w: %d", billing.ErrInvalidInvoiceNumber, pj.Information.Offset)
	}
	p.Information = billing.Information{
		Anchor: billing.Anchor{
			Offset: billing.InvoiceNumber(pj.Information.Offset),
			Period: calendar.Normalize(anchorPeriod, cadence),
		},
		PeriodsOff:    billing.NewRecordOfPeriodsOff(),
		PurchaseOrder: pj.Information.PurchaseOrder,
		FooterText:    pj.Information.FooterText,
	}
	for _, label := range pj.Information.PeriodsOff {
		period, err := billing.ParsePeriodLabelForCadence(label, cadence)
		if err != nil {
			return billing.Profile{}, fmt.Errorf("information.periods_off: %w", err)
		}
		p.Information.PeriodsOff.Insert(period)
	}

	for _, ep := range pj.Expenses {
		period, err := billing.ParsePeriodLabelForCadence(ep.Period, cadence)
		if err != nil {
			return billing.Profile{}, fmt.Errorf("expenses.period: %w", err)
		}
		for _, ij := range ep.Items {
			item, err := ParseExpenseItem(ij)
			if err != nil {
				return billing.Profile{}, err
			}
			p.Expenses.Insert(period, item)
		}
	}
	return p, nil
}

// ToJSON converts a profile back to its document form.
func (f *ProfileFactory) ToJSON(p billing.Profile) ProfileJSON {
	info := p.Information
	pj := ProfileJSON{
		ID:      p.ID,
		Version: p.Version,
		Vendor:  CompanyToJSON(p.Vendor),
		Client:  CompanyToJSON(p.Client),
		Information: InformationJSON{
			Offset:        int(info.Anchor.Offset),
			Period:        info.Anchor.Period.String(),
			PurchaseOrder: info.PurchaseOrder,
			FooterText:    info.FooterText,
		},
		ServiceFees: ServiceFeesJSON{
			Name:        p.ServiceFees.Name,
			Granularity: p.ServiceFees.Rate.Granularity.String(),
			UnitPrice:   p.ServiceFees.Rate.UnitPrice.String(),
			Cadence:     p.ServiceFees.Cadence.String(),
		},
		PaymentTerms: p.PaymentTerms.String(),
		Currency:     p.Currency,
	}
	for _, d := range info.PeriodsOff.Dates() {
		pj.Information.PeriodsOff = append(pj.Information.PeriodsOff, d.String())
	}
	for _, period := range p.Expenses.Periods() {
		items, _ := p.Expenses.Get(period)
		ep := ExpensedPeriodJSON{Period: period.String()}
		for _, item := range items {
			ep.Items = append(ep.Items, ExpenseItemJSON{
				ID:              item.ID,
				Name:            item.Name,
				UnitPrice:       item.UnitPrice.String(),
				Currency:        item.Currency,
				Quantity:        item.Quantity.String(),
				TransactionDate: item.TransactionDate.String(),
			})
		}
		pj.Expenses = append(pj.Expenses, ep)
	}
	return pj
}

// MarshalProfile renders a profile as indented JSON.
func (f *ProfileFactory) MarshalProfile(p billing.Profile) ([]byte, error) {
	return json.MarshalIndent(f.ToJSON(p), "", "  ")
}

// MarshalProfileYAML renders a profile as YAML.
func (f *ProfileFactory) MarshalProfileYAML(p billing.Profile) ([]byte, error) {
	return yaml.Marshal(f.ToJSON(p))
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

func parseCompany(cj CompanyJSON) billing.Company {
	return billing.Company{
		Name:               cj.Name,
		ContactPerson:      cj.ContactPerson,
		OrganisationNumber: cj.OrganisationNumber,
		VATNumber:          cj.VATNumber,
		Address:            cj.Address,
		Email:              cj.Email,
	}
}

// CompanyToJSON converts a vendor or client to its document form.
func CompanyToJSON(c billing.Company) CompanyJSON {
	return CompanyJSON{
		Name:               c.Name,
		ContactPerson:      c.ContactPerson,
		OrganisationNumber: c.OrganisationNumber,
		VATNumber:          c.VATNumber,
		Address:            c.Address,
		Email:              c.Email,
	}
}

func parseServiceFees(fj ServiceFeesJSON) (billing.ServiceFees, error) {
	granularity, err := calendar.ParseGranularity(fj.Granularity)
	if err != nil {
		return billing.ServiceFees{}, fmt.Errorf("service_fees.granularity: %w", err)
	}
	price, err := decimal.NewFromString(fj.UnitPrice)
	if err != nil {
		return billing.ServiceFees{}, fmt.Errorf("%w: service_fees.unit_price %q", billing.ErrInvalidProfile, fj.UnitPrice)
	}
	cadence := calendar.CadenceMonthly
	if fj.Cadence != "" {
		if cadence, err = calendar.ParseCadence(fj.Cadence); err != nil {
			return billing.ServiceFees{}, fmt.Errorf("service_fees.cadence: %w", err)
		}
	}
	return billing.ServiceFees{
		Name:    fj.Name,
		Rate:    billing.Rate{Granularity: granularity, UnitPrice: price},
		Cadence: cadence,
	}, nil
}

// ParseExpenseItem converts one expense item document.
func ParseExpenseItem(ij ExpenseItemJSON) (billing.ExpenseItem, error) {
	price, err := decimal.NewFromString(ij.UnitPrice)
	if err != nil {
		return billing.ExpenseItem{}, fmt.Errorf("%w: expense unit_price %q", billing.ErrInvalidProfile, ij.UnitPrice)
	}
	quantity, err := decimal.NewFromString(ij.Quantity)
	if err != nil {
		return billing.ExpenseItem{}, fmt.Errorf("%w: expense quantity %q", billing.ErrInvalidProfile, ij.Quantity)
	}
	date, err := calendar.ParseDate(ij.TransactionDate)
	if err != nil {
		return billing.ExpenseItem{}, fmt.Errorf("expense transaction_date: %w", err)
	}
	return billing.ExpenseItem{
		ID:              ij.ID,
		Name:            ij.Name,
		UnitPrice:       price,
		Currency:        ij.Currency,
		Quantity:        quantity,
		TransactionDate: date,
	}, nil
}
