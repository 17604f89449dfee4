package calendar

import (
	"fmt"
	"strings"
)

// =============================================================================
// GRANULARITY - The unit a service is billed in
// =============================================================================

// Granularity is ordered from finest to coarsest.
type Granularity int

const (
	GranularityHour Granularity = iota + 1
	GranularityDay
	GranularityFortnight
	GranularityMonth
)

// CoarserThan reports whether g is a larger unit than other.
func (g Granularity) CoarserThan(other Granularity) bool { return g > other }

func (g Granularity) String() string {
	switch g {
	case GranularityHour:
		return "hour"
	case GranularityDay:
		return "day"
	case GranularityFortnight:
		return "fortnight"
	case GranularityMonth:
		return "month"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// ParseGranularity accepts the names returned by String, case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hour", "hours", "hourly":
		return GranularityHour, nil
	case "day", "days", "daily":
		return GranularityDay, nil
	case "fortnight", "fortnights", "half-month":
		return GranularityFortnight, nil
	case "month", "months", "monthly":
		return GranularityMonth, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

func (g Granularity) MarshalText() ([]byte, error) {
	if g < GranularityHour || g > GranularityMonth {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGranularity, int(g))
	}
	return []byte(g.String()), nil
}

func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// =============================================================================
// CADENCE - How often invoices are issued
// =============================================================================

type Cadence int

const (
	// CadenceMonthly issues one invoice per calendar month. It is the zero value.
	CadenceMonthly Cadence = iota
	// CadenceBiWeekly issues two invoices per month, split after the 15th
	// (14th in February).
	CadenceBiWeekly
)

func (c Cadence) String() string {
	switch c {
	case CadenceMonthly:
		return "monthly"
	case CadenceBiWeekly:
		return "biweekly"
	default:
		return fmt.Sprintf("Cadence(%d)", int(c))
	}
}

func ParseCadence(s string) (Cadence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return CadenceMonthly, nil
	case "biweekly", "bi-weekly", "fortnightly":
		return CadenceBiWeekly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCadence, s)
}

// MaxGranularity is the coarsest unit that fits inside one period.
func (c Cadence) MaxGranularity() Granularity {
	if c == CadenceBiWeekly {
		return GranularityFortnight
	}
	return GranularityMonth
}

// PeriodUnit is the unit of one period, used when shifting period ends.
func (c Cadence) PeriodUnit() Granularity { return c.MaxGranularity() }

// Validate rejects billing a whole month under a bi-weekly cadence.
func (c Cadence) Validate(g Granularity) error {
	if c == CadenceBiWeekly && g == GranularityMonth {
		return ErrCannotInvoiceForMonthWhenCadenceIsBiWeekly
	}
	return nil
}

// CadenceForUnit returns the cadence whose period is exactly one unit. Only
// months and fortnights qualify.
func CadenceForUnit(unit Granularity) (Cadence, error) {
	switch unit {
	case GranularityMonth:
		return CadenceMonthly, nil
	case GranularityFortnight:
		return CadenceBiWeekly, nil
	}
	return 0, &InvalidPeriodError{BadValue: "period unit must be month or fortnight, got " + unit.String()}
}

func (c Cadence) MarshalText() ([]byte, error) {
	if c != CadenceMonthly && c != CadenceBiWeekly {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCadence, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Cadence) UnmarshalText(text []byte) error {
	parsed, err := ParseCadence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
