package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/period-engine/api"
	"github.com/warp/period-engine/calendar"
	"github.com/warp/period-engine/factory"
	"github.com/warp/period-engine/invoicing"
	"github.com/warp/period-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
	logs   *observer.ObservedLogs
}

// newTestServer pins today to 2024-09-10.
func newTestServer(t *testing.T) *testServer {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	svc := invoicing.NewService(memory.New(), logger,
		invoicing.WithClock(calendar.FixedClock{Date: calendar.MustDate(2024, 9, 10)}))
	router := api.NewRouter(api.NewHandler(svc, logger), []string{"http://localhost:5173"})
	return &testServer{t: t, router: router, logs: logs}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) loadScenario(id string) {
	rec := s.do(http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: id})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

// =============================================================================
// PERIOD ENDPOINTS
// =============================================================================

func TestPeriods_Normalize(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/periods/normalize?date=2025-02-10&cadence=biweekly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.PeriodDTO](t, rec)
	assert.Equal(t, api.PeriodDTO{Cadence: "biweekly", Start: "2025-02-01", PeriodEnd: "2025-02-14"}, got)

	// cadence defaults to monthly
	rec = s.do(http.MethodGet, "/api/periods/normalize?date=2025-02-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-02-28", decode[api.PeriodDTO](t, rec).PeriodEnd)

	rec = s.do(http.MethodGet, "/api/periods/normalize?date=2025-02-30", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPeriods_Elapsed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/periods/elapsed?start=2025-12-31&end=2026-02-28&cadence=monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[api.ElapsedDTO](t, rec).Elapsed)

	rec = s.do(http.MethodGet, "/api/periods/elapsed?start=2026-03-01&end=2026-02-28", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[api.ErrorResponse](t, rec).Details, "Start period ('2026-03-31') is after end period ('2026-02-28')")
}

func TestPeriods_ShiftAndRelative(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/periods/shift?period=2025-01-31&unit=month&amount=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-02-28", decode[api.ShiftDTO](t, rec).To)

	rec = s.do(http.MethodGet, "/api/periods/shift?period=2025-01-31&unit=day&amount=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/periods/relative?unit=month&amount=-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-08-31", decode[api.PeriodDTO](t, rec).PeriodEnd)

	rec = s.do(http.MethodGet, "/api/periods/relative?unit=fortnight", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-09-15", decode[api.PeriodDTO](t, rec).PeriodEnd)
}

func TestPeriods_LabelAndWorkingDays(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/periods/label?label=2025-05-1&cadence=biweekly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-05-15", decode[api.PeriodDTO](t, rec).PeriodEnd)

	rec = s.do(http.MethodGet, "/api/periods/label?label=2025-05&cadence=biweekly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/periods/working-days?date=2025-05-20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 22, decode[api.WorkingDaysDTO](t, rec).WorkingDays)
}

// =============================================================================
// PROFILE ENDPOINTS
// =============================================================================

func TestProfiles_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	doc := factory.MonthlyDailyRateJSON("acme", "Acme Corp", "Globex", 100, "2024-01-10", "500")

	// GIVEN: a created profile
	rec := s.do(http.MethodPost, "/api/profiles", doc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.ProfileDTO](t, rec)
	assert.Equal(t, "2024-01-31", created.Information.Period)

	// THEN: the same ID conflicts and unknown IDs are not found
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/profiles", doc).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/profiles/nobody", nil).Code)

	rec = s.do(http.MethodGet, "/api/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.ProfileDTO](t, rec), 1)

	// WHEN: deleted
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/profiles/acme", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/profiles/acme", nil).Code)
}

func TestProfiles_CreateRejectsInvalidDocument(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/profiles", `{"vendor": {"name": "A"}, "client": {"name": "B"}, "currency": "EUR",
		"information": {"offset": 1, "period": "2025-05-15"},
		"service_fees": {"name": "X", "granularity": "month", "unit_price": "1", "cadence": "biweekly"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[api.ErrorResponse](t, rec).Details, "cannot invoice for month when cadence is bi-weekly")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/profiles", "{").Code)
}

func TestProfiles_PeriodsOffAndReanchor(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario("monthly-consultant")

	rec := s.do(http.MethodPost, "/api/profiles/monthly-consultant/periods-off", api.PeriodOffRequest{Label: "2024-07-04"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2024-07-31", decode[api.RecordedDTO](t, rec).PeriodEnd)

	// the anchor period can never be off
	rec = s.do(http.MethodPost, "/api/profiles/monthly-consultant/periods-off", api.PeriodOffRequest{Label: "2024-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/profiles/monthly-consultant/anchor", api.AnchorRequest{Offset: 200, Period: "2024-04-09"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[api.ProfileDTO](t, rec)
	assert.Equal(t, "2024-04-30", updated.Information.Period)
	assert.Equal(t, []string{"2024-07-31"}, updated.Information.PeriodsOff)
}

// =============================================================================
// INVOICE ENDPOINTS
// =============================================================================

func TestInvoiceNumber(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario("monthly-consultant")
	base := "/api/profiles/monthly-consultant/invoice-number"

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"services in August", "?date=2024-08-31", 105},
		{"expenses in August", "?date=2024-08-15&expenses=true", 106},
		{"last month from 2024-09-10", "?relative=last", 105},
		{"today", "", 106},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, base+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decode[api.InvoiceNumberDTO](t, rec).Number)
		})
	}

	// nothing is numbered before the anchor
	rec := s.do(http.MethodGet, base+"?date=2023-12-31", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, base+"?relative=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuantity(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario("biweekly-contractor")

	rec := s.do(http.MethodGet, "/api/profiles/biweekly-contractor/quantity?date=2025-05-20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.QuantityDTO{Value: "88", Unit: "hour"}, decode[api.QuantityDTO](t, rec))

	rec = s.do(http.MethodGet, "/api/profiles/biweekly-contractor/quantity?date=2025-02-20", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(decode[api.ErrorResponse](t, rec).Details, "2025-02-28"))
}

func TestPrepareInvoice(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario("monthly-consultant")
	path := "/api/profiles/monthly-consultant/prepare"

	// Services with two days off
	rec := s.do(http.MethodPost, path, api.PrepareRequest{
		Date:    "2024-08-31",
		TimeOff: &api.QuantityDTO{Value: "2", Unit: "day"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[api.PlanDTO](t, rec)
	assert.Equal(t, 105, plan.Number)
	assert.Equal(t, "2024-09-30", plan.DueDate)
	require.Len(t, plan.LineItems, 1)
	assert.Equal(t, "20", plan.LineItems[0].Quantity)
	assert.Equal(t, "13000", plan.Total)
	assert.Equal(t, "2024-08-31_Acme_Consulting_invoice_105.pdf", plan.FileName)

	// Expenses recorded by the scenario
	rec = s.do(http.MethodPost, path, api.PrepareRequest{Relative: "last", Expenses: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan = decode[api.PlanDTO](t, rec)
	assert.Equal(t, 106, plan.Number)
	assert.Len(t, plan.LineItems, 2)
	assert.Equal(t, "578.5", plan.Total)

	// No expenses in July
	rec = s.do(http.MethodPost, path, api.PrepareRequest{Date: "2024-07-31", Expenses: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Time off in a coarser unit than the rate
	rec = s.do(http.MethodPost, path, api.PrepareRequest{Date: "2024-08-31", TimeOff: &api.QuantityDTO{Value: "1", Unit: "month"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordExpenses(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario("biweekly-contractor")

	rec := s.do(http.MethodPost, "/api/profiles/biweekly-contractor/expenses", api.RecordExpensesRequest{
		Label: "2025-05-first",
		Items: []factory.ExpenseItemJSON{{
			Name: "Coffee", UnitPrice: "3.5", Currency: "USD", Quantity: "4", TransactionDate: "2025-05-06",
		}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, api.RecordedDTO{ProfileID: "biweekly-contractor", PeriodEnd: "2025-05-15", Items: 1}, decode[api.RecordedDTO](t, rec))

	rec = s.do(http.MethodPost, "/api/profiles/biweekly-contractor/expenses", api.RecordExpensesRequest{Label: "2025-05-first"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRouter_LogsRequests(t *testing.T) {
	s := newTestServer(t)

	s.do(http.MethodGet, "/api/profiles/nobody", nil)

	entries := s.logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/profiles/nobody", fields["path"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
