/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

Dates travel as YYYY-MM-DD strings, money and quantities as decimal
strings. Profiles reuse factory.ProfileJSON so the API and profile files
share one schema.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/profile.go: ProfileJSON type
*/
package api

import (
	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
	"github.com/warp/period-engine/factory"
)

// =============================================================================
// PERIOD ARITHMETIC
// =============================================================================

// PeriodDTO describes one billing period.
type PeriodDTO struct {
	Cadence   string `json:"cadence"`
	Start     string `json:"start"`
	PeriodEnd string `json:"period_end"`
}

type ElapsedDTO struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Cadence string `json:"cadence"`
	Elapsed int    `json:"elapsed"`
}

type ShiftDTO struct {
	From   string `json:"from"`
	Unit   string `json:"unit"`
	Amount int    `json:"amount"`
	To     string `json:"to"`
}

type WorkingDaysDTO struct {
	PeriodDTO
	WorkingDays int `json:"working_days"`
}

// =============================================================================
// PROFILES
// =============================================================================

type ProfileDTO = factory.ProfileJSON

type AnchorRequest struct {
	Offset int    `json:"offset"`
	Period string `json:"period"`
}

type PeriodOffRequest struct {
	Label string `json:"label"`
}

// RecordedDTO acknowledges a period off or expenses being recorded.
type RecordedDTO struct {
	ProfileID string `json:"profile_id"`
	PeriodEnd string `json:"period_end"`
	Items     int    `json:"items,omitempty"`
}

type RecordExpensesRequest struct {
	Label string                    `json:"label"`
	Items []factory.ExpenseItemJSON `json:"items"`
}

type InvoiceNumberDTO struct {
	ProfileID string `json:"profile_id"`
	Date      string `json:"date"`
	Expenses  bool   `json:"expenses"`
	Number    int    `json:"number"`
}

type QuantityDTO struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// PrepareRequest names the invoice to prepare. Date wins over Relative;
// with neither, today is used.
type PrepareRequest struct {
	Date     string       `json:"date,omitempty"`
	Relative string       `json:"relative,omitempty"`
	Expenses bool         `json:"expenses"`
	TimeOff  *QuantityDTO `json:"time_off,omitempty"`
}

type LineItemDTO struct {
	Name            string `json:"name"`
	UnitPrice       string `json:"unit_price"`
	Currency        string `json:"currency"`
	Quantity        string `json:"quantity"`
	Unit            string `json:"unit,omitempty"`
	TransactionDate string `json:"transaction_date"`
	Total           string `json:"total"`
}

type PlanDTO struct {
	Number        int                 `json:"number"`
	InvoiceDate   string              `json:"invoice_date"`
	DueDate       string              `json:"due_date"`
	PeriodStart   string              `json:"period_start"`
	PeriodEnd     string              `json:"period_end"`
	Expenses      bool                `json:"expenses"`
	Vendor        factory.CompanyJSON `json:"vendor"`
	Client        factory.CompanyJSON `json:"client"`
	PurchaseOrder string              `json:"purchase_order,omitempty"`
	FooterText    string              `json:"footer_text,omitempty"`
	Currency      string              `json:"currency"`
	LineItems     []LineItemDTO       `json:"line_items"`
	Total         string              `json:"total"`
	FileName      string              `json:"file_name"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProfileID   string `json:"profile_id"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPeriodDTO(date calendar.Date, cadence calendar.Cadence) PeriodDTO {
	start, end := calendar.PeriodBounds(date, cadence)
	return PeriodDTO{
		Cadence:   cadence.String(),
		Start:     start.String(),
		PeriodEnd: end.String(),
	}
}

func toQuantityDTO(q billing.Quantity) QuantityDTO {
	return QuantityDTO{Value: q.Value.String(), Unit: q.Unit.String()}
}

func toPlanDTO(plan billing.Plan) PlanDTO {
	items := make([]LineItemDTO, len(plan.LineItems))
	for i, l := range plan.LineItems {
		items[i] = LineItemDTO{
			Name:            l.Name,
			UnitPrice:       l.UnitPrice.String(),
			Currency:        l.Currency,
			Quantity:        l.Quantity.String(),
			Unit:            l.Unit,
			TransactionDate: l.TransactionDate.String(),
			Total:           l.Total().String(),
		}
	}
	return PlanDTO{
		Number:        int(plan.Number),
		InvoiceDate:   plan.InvoiceDate.String(),
		DueDate:       plan.DueDate.String(),
		PeriodStart:   plan.PeriodStart.String(),
		PeriodEnd:     plan.PeriodEnd.String(),
		Expenses:      plan.IsExpenses,
		Vendor:        factory.CompanyToJSON(plan.Vendor),
		Client:        factory.CompanyToJSON(plan.Client),
		PurchaseOrder: plan.PurchaseOrder,
		FooterText:    plan.FooterText,
		Currency:      plan.Currency,
		LineItems:     items,
		Total:         plan.Total().String(),
		FileName:      plan.FileName(),
	}
}
