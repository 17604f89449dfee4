package billing

import (
	"strings"

	"github.com/warp/period-engine/calendar"
)

// labelAttempt tries to read one kind of period label. matched is false when
// the text is not that kind of label, so the next attempt should run.
type labelAttempt func(text string, cadence calendar.Cadence) (date calendar.Date, matched bool, err error)

// Order matters: "2025-05-1" is a half-month label, not May 1st.
var labelAttempts = []labelAttempt{
	parseHalfMonthLabel,
	parseMonthLabel,
}

// ParsePeriodLabelForCadence reads the label users type when recording
// periods off and expenses, and returns the end of the period it names.
//
//	2025-05-first, 2025-05-first-half, 2025-05-1     first half (bi-weekly only)
//	2025-05-second, 2025-05-second-half, 2025-05-2   second half (bi-weekly only)
//	2025-05                                          whole month (monthly only)
//	2025-05-23                                       any date, normalized
func ParsePeriodLabelForCadence(text string, cadence calendar.Cadence) (calendar.Date, error) {
	for _, attempt := range labelAttempts {
		date, matched, err := attempt(text, cadence)
		if err != nil {
			return calendar.Date{}, err
		}
		if matched {
			return calendar.Normalize(date, cadence), nil
		}
	}

	date, err := calendar.ParseDate(text)
	if err != nil {
		return calendar.Date{}, &calendar.InvalidPeriodError{BadValue: text, Underlying: err}
	}
	return calendar.Normalize(date, cadence), nil
}

func parseHalfMonthLabel(text string, cadence calendar.Cadence) (calendar.Date, bool, error) {
	parts := strings.SplitN(text, "-", 3)
	if len(parts) != 3 {
		return calendar.Date{}, false, nil
	}

	var first bool
	switch strings.ToLower(parts[2]) {
	case "first", "first-half", "1":
		first = true
	case "second", "second-half", "2":
	default:
		return calendar.Date{}, false, nil
	}

	monthEnd, ok := parseYearMonth(parts[0], parts[1])
	if !ok {
		return calendar.Date{}, false, nil
	}
	if cadence == calendar.CadenceMonthly {
		return calendar.Date{}, true, ErrCannotExpenseForFortnightWhenCadenceIsMonthly
	}
	if first {
		return monthEnd.FirstHalfEnd(), true, nil
	}
	return monthEnd, true, nil
}

func parseMonthLabel(text string, cadence calendar.Cadence) (calendar.Date, bool, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return calendar.Date{}, false, nil
	}
	monthEnd, ok := parseYearMonth(parts[0], parts[1])
	if !ok {
		return calendar.Date{}, false, nil
	}
	if cadence == calendar.CadenceBiWeekly {
		return calendar.Date{}, true, ErrCannotExpenseForMonthWhenCadenceIsBiWeekly
	}
	return monthEnd, true, nil
}

// parseYearMonth returns the last day of the month, or false when either
// part is invalid.
func parseYearMonth(yearText, monthText string) (calendar.Date, bool) {
	year, err := calendar.ParseYear(yearText)
	if err != nil {
		return calendar.Date{}, false
	}
	month, err := calendar.ParseMonth(monthText)
	if err != nil {
		return calendar.Date{}, false
	}
	first, err := calendar.NewDate(year, month, 1)
	if err != nil {
		return calendar.Date{}, false
	}
	return first.EndOfMonth(), true
}
