package factory

import "fmt"

// =============================================================================
// PROFILE PRESETS - Ready-made documents for common contracts
// =============================================================================

// MonthlyDailyRateJSON is a consultant billing working days, invoiced once a
// month on Net 30 terms.
func MonthlyDailyRateJSON(id, vendor, client string, offset int, anchorPeriod, dailyRate string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"vendor": {"name": %q},
		"client": {"name": %q},
		"information": {"offset": %d, "period": %q},
		"service_fees": {"name": "Consulting", "granularity": "day", "unit_price": %q, "cadence": "monthly"},
		"payment_terms": "Net 30",
		"currency": "EUR"
	}`, id, vendor, client, offset, anchorPeriod, dailyRate)
}

// BiWeeklyHourlyRateJSON is a contractor billing hours, invoiced twice a
// month on Net 15 terms.
func BiWeeklyHourlyRateJSON(id, vendor, client string, offset int, anchorPeriod, hourlyRate string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"vendor": {"name": %q},
		"client": {"name": %q},
		"information": {"offset": %d, "period": %q},
		"service_fees": {"name": "Development", "granularity": "hour", "unit_price": %q, "cadence": "biweekly"},
		"payment_terms": "Net 15",
		"currency": "USD"
	}`, id, vendor, client, offset, anchorPeriod, hourlyRate)
}
