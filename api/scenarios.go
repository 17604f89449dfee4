/*
scenarios.go - Demo profiles for trying the API

PURPOSE:
  Seeds realistic profiles so the invoice endpoints can be explored
  without writing a profile document first. Loading a scenario replaces
  any profile with the same ID; other profiles are left alone.

AVAILABLE SCENARIOS:
  monthly-consultant:   Day rate billed monthly, two months off, travel expenses
  biweekly-contractor:  Hour rate billed twice a month, one half-month off

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "monthly-consultant"}

SEE ALSO:
  - factory/presets.go: Profile JSON presets
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
	"github.com/warp/period-engine/factory"
	"github.com/warp/period-engine/invoicing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "monthly-consultant",
			Name:        "Monthly Consultant",
			Description: "Day rate invoiced monthly, March and April 2024 off, travel expenses in August",
			ProfileID:   "monthly-consultant",
		},
		load: loadMonthlyConsultant,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "biweekly-contractor",
			Name:        "Bi-weekly Contractor",
			Description: "Hour rate invoiced every half month, second half of February 2025 off",
			ProfileID:   "biweekly-contractor",
		},
		load: loadBiWeeklyContractor,
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario (re)creates the scenario's profile.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for _, s := range scenarios {
		if s.ID != req.ScenarioID {
			continue
		}
		ctx := r.Context()
		if err := h.Service.DeleteProfile(ctx, s.ProfileID); err != nil && !invoicing.IsNotFound(err) {
			h.writeServiceError(w, "Failed to reset scenario profile", err)
			return
		}
		if err := s.load(ctx, h); err != nil {
			h.writeServiceError(w, "Failed to load scenario", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": s.ID})
		return
	}
	writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) createFromJSON(ctx context.Context, doc string) error {
	profile, err := h.Profiles.ParseProfile(doc)
	if err != nil {
		return err
	}
	_, err = h.Service.CreateProfile(ctx, profile)
	return err
}

func loadMonthlyConsultant(ctx context.Context, h *Handler) error {
	const id = "monthly-consultant"
	doc := factory.MonthlyDailyRateJSON(id, "Acme Consulting", "Globex Corporation", 100, "2024-01-31", "650")
	if err := h.createFromJSON(ctx, doc); err != nil {
		return err
	}
	for _, label := range []string{"2024-03", "2024-04"} {
		if _, err := h.Service.RecordPeriodOff(ctx, id, label); err != nil {
			return err
		}
	}
	_, err := h.Service.RecordExpenses(ctx, id, "2024-08", []billing.ExpenseItem{
		{
			Name:            "Train Stockholm-Gothenburg",
			UnitPrice:       decimal.NewFromInt(95),
			Currency:        "EUR",
			Quantity:        decimal.NewFromInt(2),
			TransactionDate: calendar.MustDate(2024, 8, 12),
		},
		{
			Name:            "Hotel",
			UnitPrice:       decimal.RequireFromString("129.50"),
			Currency:        "EUR",
			Quantity:        decimal.NewFromInt(3),
			TransactionDate: calendar.MustDate(2024, 8, 13),
		},
	})
	return err
}

func loadBiWeeklyContractor(ctx context.Context, h *Handler) error {
	const id = "biweekly-contractor"
	doc := factory.BiWeeklyHourlyRateJSON(id, "Jane Doe Development", "Initech", 10, "2025-01-15", "90")
	if err := h.createFromJSON(ctx, doc); err != nil {
		return err
	}
	_, err := h.Service.RecordPeriodOff(ctx, id, "2025-02-second")
	return err
}
