/*
handlers.go - HTTP API handlers for the invoice period engine

PURPOSE:
  Exposes period arithmetic and the invoicing service over REST. Handles
  HTTP request/response and JSON serialization, and delegates to the
  calendar and billing packages through invoicing.Service.

ENDPOINTS:
  Periods (stateless):
    GET    /api/periods/normalize?date&cadence
    GET    /api/periods/elapsed?start&end&cadence
    GET    /api/periods/shift?period&unit&amount
    GET    /api/periods/relative?unit&amount
    GET    /api/periods/label?label&cadence
    GET    /api/periods/working-days?date&cadence

  Profiles:
    GET    /api/profiles                     List profiles
    POST   /api/profiles                     Create profile from JSON
    GET    /api/profiles/{id}                Get profile
    DELETE /api/profiles/{id}                Delete profile
    PUT    /api/profiles/{id}/anchor         Replace the anchor
    POST   /api/profiles/{id}/periods-off    Record a period off
    POST   /api/profiles/{id}/expenses       Record expenses

  Invoices:
    GET    /api/profiles/{id}/invoice-number?date|relative&expenses
    GET    /api/profiles/{id}/quantity?date|relative
    POST   /api/profiles/{id}/prepare

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON {error, details}:
  - 400: Invalid input, including every calendar and billing rule violation
  - 404: Profile not found
  - 409: Profile ID already taken
  - 500: Internal errors (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
	"github.com/warp/period-engine/factory"
	"github.com/warp/period-engine/invoicing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *invoicing.Service
	Profiles *factory.ProfileFactory
	logger   *zap.Logger
}

func NewHandler(service *invoicing.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:  service,
		Profiles: factory.NewProfileFactory(),
		logger:   logger.Named("api"),
	}
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// NormalizePeriod returns the period containing date.
func (h *Handler) NormalizePeriod(w http.ResponseWriter, r *http.Request) {
	date, cadence, err := dateAndCadence(r, "date")
	if err != nil {
		h.writeServiceError(w, "Invalid period query", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(date, cadence))
}

// ElapsedPeriods counts the periods from start to end.
func (h *Handler) ElapsedPeriods(w http.ResponseWriter, r *http.Request) {
	start, cadence, err := dateAndCadence(r, "start")
	if err != nil {
		h.writeServiceError(w, "Invalid start", err)
		return
	}
	end, err := calendar.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		h.writeServiceError(w, "Invalid end", err)
		return
	}

	elapsed, err := calendar.ElapsedPeriodsSince(start, end, cadence)
	if err != nil {
		h.writeServiceError(w, "Failed to count periods", err)
		return
	}
	writeJSON(w, http.StatusOK, ElapsedDTO{
		Start:   calendar.Normalize(start, cadence).String(),
		End:     calendar.Normalize(end, cadence).String(),
		Cadence: cadence.String(),
		Elapsed: elapsed,
	})
}

// ShiftPeriod moves a period end by a signed number of months or fortnights.
func (h *Handler) ShiftPeriod(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := calendar.ParseDate(q.Get("period"))
	if err != nil {
		h.writeServiceError(w, "Invalid period", err)
		return
	}
	unit, amount, err := unitAndAmount(r)
	if err != nil {
		h.writeServiceError(w, "Invalid shift", err)
		return
	}

	shifted, err := calendar.Shift(period, unit, amount)
	if err != nil {
		h.writeServiceError(w, "Failed to shift period", err)
		return
	}
	writeJSON(w, http.StatusOK, ShiftDTO{From: period.String(), Unit: unit.String(), Amount: amount, To: shifted.String()})
}

// RelativePeriod resolves a period relative to today.
func (h *Handler) RelativePeriod(w http.ResponseWriter, r *http.Request) {
	unit, amount, err := unitAndAmount(r)
	if err != nil {
		h.writeServiceError(w, "Invalid relative time", err)
		return
	}
	rel := calendar.RelativeTime{Unit: unit, Amount: amount}
	date, err := h.Service.ResolveDate(invoicing.Target{Relative: &rel})
	if err != nil {
		h.writeServiceError(w, "Failed to resolve relative time", err)
		return
	}
	cadence, err := calendar.CadenceForUnit(unit)
	if err != nil {
		h.writeServiceError(w, "Failed to resolve relative time", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(date, cadence))
}

// ParseLabel reads a period label such as 2025-05-first for a cadence.
func (h *Handler) ParseLabel(w http.ResponseWriter, r *http.Request) {
	cadence, err := queryCadence(r)
	if err != nil {
		h.writeServiceError(w, "Invalid cadence", err)
		return
	}
	date, err := billing.ParsePeriodLabelForCadence(r.URL.Query().Get("label"), cadence)
	if err != nil {
		h.writeServiceError(w, "Invalid label", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(date, cadence))
}

// WorkingDays counts the weekdays in the period containing date.
func (h *Handler) WorkingDays(w http.ResponseWriter, r *http.Request) {
	date, cadence, err := dateAndCadence(r, "date")
	if err != nil {
		h.writeServiceError(w, "Invalid period query", err)
		return
	}
	writeJSON(w, http.StatusOK, WorkingDaysDTO{
		PeriodDTO:   toPeriodDTO(date, cadence),
		WorkingDays: calendar.WorkingDaysInPeriod(calendar.Normalize(date, cadence), cadence),
	})
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// ListProfiles returns all profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.Profiles(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list profiles", err)
		return
	}

	dtos := make([]ProfileDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = h.Profiles.ToJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProfile creates a profile from its JSON document.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	profile, err := h.Profiles.FromJSON(req)
	if err != nil {
		h.writeServiceError(w, "Invalid profile", err)
		return
	}
	created, err := h.Service.CreateProfile(r.Context(), profile)
	if err != nil {
		h.writeServiceError(w, "Failed to create profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Profiles.ToJSON(created))
}

// GetProfile returns a single profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Profiles.ToJSON(profile))
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reanchor replaces the profile's anchor.
func (h *Handler) Reanchor(w http.ResponseWriter, r *http.Request) {
	var req AnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := calendar.ParseDate(req.Period)
	if err != nil {
		h.writeServiceError(w, "Invalid anchor period", err)
		return
	}

	anchor := billing.Anchor{Offset: billing.InvoiceNumber(req.Offset), Period: period}
	updated, err := h.Service.Reanchor(r.Context(), chi.URLParam(r, "id"), anchor)
	if err != nil {
		h.writeServiceError(w, "Failed to re-anchor profile", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Profiles.ToJSON(updated))
}

// RecordPeriodOff marks a period as having no invoice.
func (h *Handler) RecordPeriodOff(w http.ResponseWriter, r *http.Request) {
	var req PeriodOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := chi.URLParam(r, "id")
	period, err := h.Service.RecordPeriodOff(r.Context(), id, req.Label)
	if err != nil {
		h.writeServiceError(w, "Failed to record period off", err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordedDTO{ProfileID: id, PeriodEnd: period.String()})
}

// RecordExpenses adds expense items to a period.
func (h *Handler) RecordExpenses(w http.ResponseWriter, r *http.Request) {
	var req RecordExpensesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "At least one expense item is required", nil)
		return
	}

	items := make([]billing.ExpenseItem, len(req.Items))
	for i, ij := range req.Items {
		item, err := factory.ParseExpenseItem(ij)
		if err != nil {
			h.writeServiceError(w, "Invalid expense item", err)
			return
		}
		items[i] = item
	}

	id := chi.URLParam(r, "id")
	period, err := h.Service.RecordExpenses(r.Context(), id, req.Label, items)
	if err != nil {
		h.writeServiceError(w, "Failed to record expenses", err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordedDTO{ProfileID: id, PeriodEnd: period.String(), Items: len(items)})
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// GetInvoiceNumber returns the number of the invoice for a period.
func (h *Handler) GetInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	expenses := false
	if v := q.Get("expenses"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expenses flag", err)
			return
		}
		expenses = parsed
	}
	date, err := h.targetDate(r, id, q.Get("date"), q.Get("relative"))
	if err != nil {
		h.writeServiceError(w, "Invalid target period", err)
		return
	}

	number, err := h.Service.InvoiceNumber(r.Context(), id, date, expenses)
	if err != nil {
		h.writeServiceError(w, "Failed to calculate invoice number", err)
		return
	}
	writeJSON(w, http.StatusOK, InvoiceNumberDTO{ProfileID: id, Date: date.String(), Expenses: expenses, Number: int(number)})
}

// GetQuantity returns the billable quantity for a period before time off.
func (h *Handler) GetQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	date, err := h.targetDate(r, id, q.Get("date"), q.Get("relative"))
	if err != nil {
		h.writeServiceError(w, "Invalid target period", err)
		return
	}
	quantity, err := h.Service.Quantity(r.Context(), id, date)
	if err != nil {
		h.writeServiceError(w, "Failed to calculate quantity", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuantityDTO(quantity))
}

// PrepareInvoice computes the full invoice for a period without rendering it.
func (h *Handler) PrepareInvoice(w http.ResponseWriter, r *http.Request) {
	var req PrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := chi.URLParam(r, "id")
	date, err := h.targetDate(r, id, req.Date, req.Relative)
	if err != nil {
		h.writeServiceError(w, "Invalid target period", err)
		return
	}

	var items billing.Items = billing.ExpenseItems{}
	if !req.Expenses {
		services := billing.ServiceItems{}
		if req.TimeOff != nil {
			value, err := decimal.NewFromString(req.TimeOff.Value)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid time_off value", err)
				return
			}
			unit, err := calendar.ParseGranularity(req.TimeOff.Unit)
			if err != nil {
				h.writeServiceError(w, "Invalid time_off unit", err)
				return
			}
			timeOff := billing.NewTimeOff(value, unit)
			services.TimeOff = &timeOff
		}
		items = services
	}

	plan, err := h.Service.Prepare(r.Context(), id, billing.Request{Date: date, Items: items})
	if err != nil {
		h.writeServiceError(w, "Failed to prepare invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

// targetDate resolves an explicit date, or else "current"/"last" in the
// profile's cadence, or else today.
func (h *Handler) targetDate(r *http.Request, id, dateText, relativeText string) (calendar.Date, error) {
	var target invoicing.Target
	switch {
	case dateText != "":
		date, err := calendar.ParseDate(dateText)
		if err != nil {
			return calendar.Date{}, err
		}
		target.Date = &date
	case relativeText != "":
		period, err := invoicing.ParseTargetPeriod(relativeText)
		if err != nil {
			return calendar.Date{}, err
		}
		profile, err := h.Service.Profile(r.Context(), id)
		if err != nil {
			return calendar.Date{}, err
		}
		rel := period.RelativeTimeFor(profile.Cadence())
		target.Relative = &rel
	}
	return h.Service.ResolveDate(target)
}

// =============================================================================
// HELPERS
// =============================================================================

func queryCadence(r *http.Request) (calendar.Cadence, error) {
	v := r.URL.Query().Get("cadence")
	if v == "" {
		return calendar.CadenceMonthly, nil
	}
	return calendar.ParseCadence(v)
}

func dateAndCadence(r *http.Request, dateParam string) (calendar.Date, calendar.Cadence, error) {
	cadence, err := queryCadence(r)
	if err != nil {
		return calendar.Date{}, 0, err
	}
	date, err := calendar.ParseDate(r.URL.Query().Get(dateParam))
	if err != nil {
		return calendar.Date{}, 0, err
	}
	return date, cadence, nil
}

func unitAndAmount(r *http.Request) (calendar.Granularity, int, error) {
	q := r.URL.Query()
	unit, err := calendar.ParseGranularity(q.Get("unit"))
	if err != nil {
		return 0, 0, err
	}
	amount := 0
	if v := q.Get("amount"); v != "" {
		amount, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, &calendar.InvalidPeriodError{BadValue: v, Underlying: err}
		}
	}
	return unit, amount, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError picks the status from the error's kind.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case invoicing.IsNotFound(err):
		return http.StatusNotFound
	case invoicing.IsConflict(err):
		return http.StatusConflict
	case billing.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
