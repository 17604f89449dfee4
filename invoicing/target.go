package invoicing

import (
	"errors"
	"strings"

	"github.com/warp/period-engine/calendar"
)

// TargetPeriod picks the period to invoice relative to today, in whatever
// unit the profile's cadence uses.
type TargetPeriod int

const (
	TargetCurrent TargetPeriod = iota
	TargetLast
)

func (t TargetPeriod) String() string {
	if t == TargetLast {
		return "last"
	}
	return "current"
}

func ParseTargetPeriod(s string) (TargetPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "current":
		return TargetCurrent, nil
	case "last":
		return TargetLast, nil
	}
	return 0, &calendar.InvalidPeriodError{
		BadValue:   s,
		Underlying: errors.New("expected current or last"),
	}
}

// RelativeTimeFor converts the target to a relative time in the cadence's
// period unit.
func (t TargetPeriod) RelativeTimeFor(cadence calendar.Cadence) calendar.RelativeTime {
	unit := cadence.PeriodUnit()
	if t == TargetLast {
		return calendar.Last(unit)
	}
	return calendar.Current(unit)
}
