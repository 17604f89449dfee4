package invoicing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
	"github.com/warp/period-engine/factory"
	"github.com/warp/period-engine/invoicing"
	"github.com/warp/period-engine/store/memory"
	"github.com/warp/period-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T, today calendar.Date) (*invoicing.Service, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	svc := invoicing.NewService(memory.New(), zap.New(core), invoicing.WithClock(calendar.FixedClock{Date: today}))
	return svc, logs
}

func createMonthly(t *testing.T, svc *invoicing.Service) billing.Profile {
	p, err := factory.NewProfileFactory().ParseProfile(
		factory.MonthlyDailyRateJSON("acme", "Acme Corp", "Globex", 100, "2024-01-31", "500"))
	require.NoError(t, err)
	created, err := svc.CreateProfile(context.Background(), p)
	require.NoError(t, err)
	return created
}

func createBiWeekly(t *testing.T, svc *invoicing.Service) billing.Profile {
	p, err := factory.NewProfileFactory().ParseProfile(
		factory.BiWeeklyHourlyRateJSON("jane", "Jane Doe", "Initech", 10, "2025-01-15", "90"))
	require.NoError(t, err)
	created, err := svc.CreateProfile(context.Background(), p)
	require.NoError(t, err)
	return created
}

// =============================================================================
// PROFILE LIFECYCLE
// =============================================================================

func TestService_CreateProfile(t *testing.T) {
	ctx := context.Background()
	svc, logs := newTestService(t, calendar.MustDate(2024, 8, 15))

	created := createMonthly(t, svc)
	assert.Equal(t, "acme", created.ID)

	// Same ID again conflicts
	_, err := svc.CreateProfile(ctx, created)
	assert.ErrorIs(t, err, invoicing.ErrProfileExists)
	assert.True(t, invoicing.IsConflict(err))

	// Missing ID gets generated
	anon := created.Clone()
	anon.ID = ""
	anon, err = svc.CreateProfile(ctx, anon)
	require.NoError(t, err)
	assert.Len(t, anon.ID, 36)

	all, err := svc.Profiles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	entries := logs.FilterMessage("profile created").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "acme", entries[0].ContextMap()["profile_id"])
	assert.Equal(t, "monthly", entries[0].ContextMap()["cadence"])
}

func TestService_DeleteProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, calendar.MustDate(2024, 8, 15))
	createMonthly(t, svc)

	require.NoError(t, svc.DeleteProfile(ctx, "acme"))

	_, err := svc.Profile(ctx, "acme")
	assert.True(t, invoicing.IsNotFound(err))
	assert.ErrorIs(t, svc.DeleteProfile(ctx, "acme"), invoicing.ErrProfileNotFound)
}

// =============================================================================
// RECORDING PERIODS OFF & EXPENSES
// =============================================================================

func TestService_RecordPeriodOff_ShiftsLaterNumbers(t *testing.T) {
	ctx := context.Background()
	svc, logs := newTestService(t, calendar.MustDate(2024, 8, 15))
	createMonthly(t, svc)
	august := calendar.MustDate(2024, 8, 31)

	before, err := svc.InvoiceNumber(ctx, "acme", august, false)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceNumber(107), before)

	// WHEN: March and April are recorded off (April twice)
	for _, label := range []string{"2024-03", "2024-04", "2024-04-18"} {
		_, err := svc.RecordPeriodOff(ctx, "acme", label)
		require.NoError(t, err)
	}

	// THEN: August moves back by two
	after, err := svc.InvoiceNumber(ctx, "acme", august, false)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceNumber(105), after)

	p, err := svc.Profile(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Information.PeriodsOff.Len())
	assert.Len(t, logs.FilterMessage("period off recorded").All(), 3)
}

func TestService_RecordPeriodOff_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, calendar.MustDate(2024, 8, 15))
	createMonthly(t, svc)
	createBiWeekly(t, svc)

	_, err := svc.RecordPeriodOff(ctx, "acme", "2024-01-05")
	assert.ErrorIs(t, err, billing.ErrOffsetPeriodMustNotBeInRecordOfPeriodsOff)

	_, err = svc.RecordPeriodOff(ctx, "acme", "2024-05-first")
	assert.ErrorIs(t, err, billing.ErrCannotExpenseForFortnightWhenCadenceIsMonthly)

	_, err = svc.RecordPeriodOff(ctx, "jane", "2025-03")
	assert.ErrorIs(t, err, billing.ErrCannotExpenseForMonthWhenCadenceIsBiWeekly)

	_, err = svc.RecordPeriodOff(ctx, "nobody", "2025-03")
	assert.True(t, invoicing.IsNotFound(err))

	// Nothing was persisted by the failed attempts
	p, err := svc.Profile(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Information.PeriodsOff.Len())
}

func TestService_RecordExpenses(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, calendar.MustDate(2025, 5, 20))
	createBiWeekly(t, svc)

	period, err := svc.RecordExpenses(ctx, "jane", "2025-05-first", []billing.ExpenseItem{{
		Name:            "Coffee",
		UnitPrice:       decimal.RequireFromString("3.5"),
		Currency:        "USD",
		Quantity:        decimal.NewFromInt(4),
		TransactionDate: calendar.MustDate(2025, 5, 6),
	}})
	require.NoError(t, err)
	assert.Equal(t, calendar.MustDate(2025, 5, 15), period)

	plan, err := svc.Prepare(ctx, "jane", billing.Request{Date: period, Items: billing.ExpenseItems{}})
	require.NoError(t, err)
	// 2025-01-15 -> 2025-05-15 is 8 halves, plus one for expenses
	assert.Equal(t, billing.InvoiceNumber(19), plan.Number)
	assert.True(t, decimal.NewFromInt(14).Equal(plan.Total()))

	p, err := svc.Profile(ctx, "jane")
	require.NoError(t, err)
	items, err := p.Expenses.Get(period)
	require.NoError(t, err)
	assert.Len(t, items[0].ID, 36)
}

func TestService_RecordExpenses_RejectsReusedIDs(t *testing.T) {
	stores := map[string]func(t *testing.T) invoicing.ProfileStore{
		"memory": func(*testing.T) invoicing.ProfileStore { return memory.New() },
		"sqlite": func(t *testing.T) invoicing.ProfileStore {
			store, err := sqlite.New(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
	train := func(id string) billing.ExpenseItem {
		return billing.ExpenseItem{
			ID:              id,
			Name:            "Train",
			UnitPrice:       decimal.NewFromInt(120),
			Currency:        "EUR",
			Quantity:        decimal.NewFromInt(1),
			TransactionDate: calendar.MustDate(2024, 8, 20),
		}
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			// GIVEN: a profile holding expense x1 in August
			ctx := context.Background()
			svc := invoicing.NewService(newStore(t), zap.NewNop())
			createMonthly(t, svc)
			_, err := svc.RecordExpenses(ctx, "acme", "2024-08", []billing.ExpenseItem{train("x1")})
			require.NoError(t, err)

			// WHEN: x1 is posted again for another period
			_, err = svc.RecordExpenses(ctx, "acme", "2024-09", []billing.ExpenseItem{train("x1")})

			// THEN: it is a client error and nothing is recorded
			assert.ErrorIs(t, err, billing.ErrDuplicateExpenseID)
			assert.True(t, billing.IsClientError(err))
			p, err := svc.Profile(ctx, "acme")
			require.NoError(t, err)
			assert.Equal(t, []calendar.Date{calendar.MustDate(2024, 8, 31)}, p.Expenses.Periods())

			// Repeated IDs within one batch are rejected too
			_, err = svc.RecordExpenses(ctx, "acme", "2024-09", []billing.ExpenseItem{train("y1"), train("y1")})
			assert.ErrorIs(t, err, billing.ErrDuplicateExpenseID)

			// Fresh IDs still go through
			_, err = svc.RecordExpenses(ctx, "acme", "2024-09", []billing.ExpenseItem{train("y1"), train("")})
			require.NoError(t, err)
		})
	}
}

// =============================================================================
// RE-ANCHORING
// =============================================================================

func TestService_Reanchor_DropsPeriodsOffAtOrBeforeAnchor(t *testing.T) {
	ctx := context.Background()
	svc, logs := newTestService(t, calendar.MustDate(2024, 8, 15))
	createMonthly(t, svc)
	for _, label := range []string{"2024-03", "2024-04", "2024-07"} {
		_, err := svc.RecordPeriodOff(ctx, "acme", label)
		require.NoError(t, err)
	}

	// WHEN: anchoring at invoice 200 in mid-April
	p, err := svc.Reanchor(ctx, "acme", billing.Anchor{Offset: 200, Period: calendar.MustDate(2024, 4, 9)})
	require.NoError(t, err)

	// THEN: the anchor is normalized and only July stays off
	assert.Equal(t, calendar.MustDate(2024, 4, 30), p.Information.Anchor.Period)
	assert.Equal(t, []calendar.Date{calendar.MustDate(2024, 7, 31)}, p.Information.PeriodsOff.Dates())

	n, err := svc.InvoiceNumber(ctx, "acme", calendar.MustDate(2024, 8, 31), false)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceNumber(203), n)

	entry := logs.FilterMessage("profile re-anchored").All()
	require.Len(t, entry, 1)
	assert.EqualValues(t, 2, entry[0].ContextMap()["dropped_periods_off"])
}

func TestService_Reanchor_RequiresPeriod(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, calendar.MustDate(2024, 8, 15))
	createMonthly(t, svc)

	_, err := svc.Reanchor(ctx, "acme", billing.Anchor{Offset: 200})
	assert.ErrorIs(t, err, billing.ErrInvalidProfile)

	// THEN: the stored anchor is untouched
	p, err := svc.Profile(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, calendar.MustDate(2024, 1, 31), p.Information.Anchor.Period)
	assert.Equal(t, billing.InvoiceNumber(100), p.Information.Anchor.Offset)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestService_ResolveDate(t *testing.T) {
	svc, _ := newTestService(t, calendar.MustDate(2025, 5, 20))

	explicit := calendar.MustDate(2025, 1, 2)
	d, err := svc.ResolveDate(invoicing.Target{Date: &explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, d)

	last := calendar.Last(calendar.GranularityMonth)
	d, err = svc.ResolveDate(invoicing.Target{Relative: &last})
	require.NoError(t, err)
	assert.Equal(t, calendar.MustDate(2025, 4, 30), d)

	d, err = svc.ResolveDate(invoicing.Target{})
	require.NoError(t, err)
	assert.Equal(t, calendar.MustDate(2025, 5, 20), d)

	day := calendar.RelativeTime{Unit: calendar.GranularityDay, Amount: -1}
	_, err = svc.ResolveDate(invoicing.Target{Relative: &day})
	assert.ErrorIs(t, err, calendar.ErrInvalidPeriod)
}

func TestService_Quantity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, calendar.MustDate(2025, 5, 20))
	createBiWeekly(t, svc)

	q, err := svc.Quantity(ctx, "jane", calendar.MustDate(2025, 5, 20))
	require.NoError(t, err)
	assert.Equal(t, "88 hour", q.String())
}
