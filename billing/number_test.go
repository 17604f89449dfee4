package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
)

// =============================================================================
// INVOICE NUMBER TESTS
// =============================================================================

func TestCalculateInvoiceNumber(t *testing.T) {
	anchor2024 := billing.Anchor{Offset: 100, Period: calendar.MustDate(2024, 1, 31)}
	spring := billing.NewRecordOfPeriodsOff(calendar.MustDate(2024, 3, 31), calendar.MustDate(2024, 4, 30))

	tests := []struct {
		name       string
		anchor     billing.Anchor
		target     calendar.Date
		cadence    calendar.Cadence
		isExpenses bool
		periodsOff *billing.RecordOfPeriodsOff
		want       billing.InvoiceNumber
	}{
		{
			name:    "two months after anchor across a year",
			anchor:  billing.Anchor{Offset: 100, Period: calendar.MustDate(2025, 12, 31)},
			target:  calendar.MustDate(2026, 2, 28),
			cadence: calendar.CadenceMonthly,
			want:    102,
		},
		{
			name:       "services skip periods off",
			anchor:     anchor2024,
			target:     calendar.MustDate(2024, 8, 31),
			cadence:    calendar.CadenceMonthly,
			periodsOff: spring,
			want:       105,
		},
		{
			name:       "expenses take the next number",
			anchor:     anchor2024,
			target:     calendar.MustDate(2024, 8, 31),
			cadence:    calendar.CadenceMonthly,
			isExpenses: true,
			periodsOff: spring,
			want:       106,
		},
		{
			name:    "same period as anchor",
			anchor:  anchor2024,
			target:  calendar.MustDate(2024, 1, 3),
			cadence: calendar.CadenceMonthly,
			want:    100,
		},
		{
			name:    "periods off outside the window are ignored",
			anchor:  anchor2024,
			target:  calendar.MustDate(2024, 5, 31),
			cadence: calendar.CadenceMonthly,
			periodsOff: billing.NewRecordOfPeriodsOff(
				calendar.MustDate(2023, 12, 31),
				calendar.MustDate(2024, 9, 30),
			),
			want: 104,
		},
		{
			name:    "entries in the same period count once",
			anchor:  anchor2024,
			target:  calendar.MustDate(2024, 5, 31),
			cadence: calendar.CadenceMonthly,
			periodsOff: billing.NewRecordOfPeriodsOff(
				calendar.MustDate(2024, 3, 5),
				calendar.MustDate(2024, 3, 31),
			),
			want: 103,
		},
		{
			name:    "bi-weekly counts halves",
			anchor:  billing.Anchor{Offset: 10, Period: calendar.MustDate(2025, 1, 15)},
			target:  calendar.MustDate(2025, 2, 20),
			cadence: calendar.CadenceBiWeekly,
			want:    13,
		},
		{
			name:       "bi-weekly skips a february first half",
			anchor:     billing.Anchor{Offset: 10, Period: calendar.MustDate(2025, 1, 15)},
			target:     calendar.MustDate(2025, 2, 20),
			cadence:    calendar.CadenceBiWeekly,
			periodsOff: billing.NewRecordOfPeriodsOff(calendar.MustDate(2025, 2, 14)),
			want:       12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := billing.CalculateInvoiceNumber(tt.anchor, tt.target, tt.cadence, tt.isExpenses, tt.periodsOff)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateInvoiceNumber_AnchorPeriodOff(t *testing.T) {
	// GIVEN: the anchor's own month was recorded as off (mid-month entry)
	anchor := billing.Anchor{Offset: 7, Period: calendar.MustDate(2025, 3, 31)}
	off := billing.NewRecordOfPeriodsOff(calendar.MustDate(2025, 3, 12))

	// WHEN: computing any number
	_, err := billing.CalculateInvoiceNumber(anchor, calendar.MustDate(2025, 6, 30), calendar.CadenceMonthly, false, off)

	// THEN: the record is rejected
	var offErr *billing.RecordsOffMustNotContainOffsetPeriodError
	require.ErrorAs(t, err, &offErr)
	assert.Equal(t, calendar.MustDate(2025, 3, 31), offErr.OffsetPeriod)
	assert.Equal(t, "Records off must not contain offset period: 2025-03-31", err.Error())
}

func TestCalculateInvoiceNumber_TargetBeforeAnchor(t *testing.T) {
	anchor := billing.Anchor{Offset: 7, Period: calendar.MustDate(2025, 3, 31)}

	_, err := billing.CalculateInvoiceNumber(anchor, calendar.MustDate(2025, 1, 10), calendar.CadenceMonthly, false, nil)

	assert.ErrorIs(t, err, calendar.ErrStartPeriodAfterEndPeriod)
	assert.True(t, billing.IsClientError(err))
}

func TestCalculateInvoiceNumber_NeverDecreases(t *testing.T) {
	// GIVEN: a year of bi-weekly invoicing with a few periods off
	anchor := billing.Anchor{Offset: 1, Period: calendar.MustDate(2025, 1, 15)}
	off := billing.NewRecordOfPeriodsOff(
		calendar.MustDate(2025, 3, 31),
		calendar.MustDate(2025, 7, 15),
		calendar.MustDate(2025, 7, 31),
	)

	// THEN: walking day by day, numbers never go down
	prev := billing.InvoiceNumber(0)
	for d := anchor.Period; d.Year() == 2025; d = d.AdvanceDays(1) {
		n, err := billing.CalculateInvoiceNumber(anchor, d, calendar.CadenceBiWeekly, false, off)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, int(n), int(prev), d.String())
		prev = n
	}
	// 23 halves after the anchor, 3 of them off
	assert.Equal(t, billing.InvoiceNumber(21), prev)
}

// =============================================================================
// RECORD OF PERIODS OFF
// =============================================================================

func TestRecordOfPeriodsOff_KeepsInsertionOrder(t *testing.T) {
	r := billing.NewRecordOfPeriodsOff()

	assert.True(t, r.Insert(calendar.MustDate(2025, 5, 31)))
	assert.True(t, r.Insert(calendar.MustDate(2025, 2, 28)))
	assert.False(t, r.Insert(calendar.MustDate(2025, 5, 31)))

	assert.Equal(t, []calendar.Date{calendar.MustDate(2025, 5, 31), calendar.MustDate(2025, 2, 28)}, r.Dates())
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.ContainsPeriod(calendar.MustDate(2025, 2, 3), calendar.CadenceMonthly))
	assert.False(t, r.ContainsPeriod(calendar.MustDate(2025, 2, 3), calendar.CadenceBiWeekly))

	r.Retain(func(d calendar.Date) bool { return d.Month() == calendar.February })
	assert.Equal(t, []calendar.Date{calendar.MustDate(2025, 2, 28)}, r.Dates())
	assert.False(t, r.Contains(calendar.MustDate(2025, 5, 31)))
}

func TestParseInvoiceNumber(t *testing.T) {
	n, err := billing.ParseInvoiceNumber(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceNumber(42), n)

	_, err = billing.ParseInvoiceNumber("-1")
	assert.ErrorIs(t, err, billing.ErrInvalidInvoiceNumber)
}
