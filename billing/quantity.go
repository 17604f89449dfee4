package billing

import (
	"fmt"

	"github.com/warp/period-engine/calendar"
)

// HoursPerWorkday converts working days into billable hours.
const HoursPerWorkday = 8

// QuantityInPeriod returns how many units of granularity the period
// containing target holds.
//
// Checks run in this order:
//  1. the period must not be recorded as off
//  2. a bi-weekly cadence cannot bill whole months
//  3. the unit must fit inside one period
func QuantityInPeriod(
	target calendar.Date,
	granularity calendar.Granularity,
	cadence calendar.Cadence,
	periodsOff *RecordOfPeriodsOff,
) (Quantity, error) {
	period := calendar.Normalize(target, cadence)
	if periodsOff.ContainsPeriod(period, cadence) {
		return Quantity{}, &TargetPeriodMustNotBeInRecordOfPeriodsOffError{TargetPeriod: period}
	}
	if err := cadence.Validate(granularity); err != nil {
		return Quantity{}, err
	}
	if coarsest := cadence.MaxGranularity(); granularity.CoarserThan(coarsest) {
		return Quantity{}, &GranularityTooCoarseError{
			Granularity:    granularity,
			MaxGranularity: coarsest,
			TargetPeriod:   period,
		}
	}

	switch granularity {
	case calendar.GranularityMonth:
		return NewQuantity(1, granularity), nil
	case calendar.GranularityFortnight:
		if cadence == calendar.CadenceMonthly {
			return NewQuantity(2, granularity), nil
		}
		return NewQuantity(1, granularity), nil
	case calendar.GranularityDay:
		return NewQuantity(int64(calendar.WorkingDaysInPeriod(period, cadence)), granularity), nil
	case calendar.GranularityHour:
		return NewQuantity(int64(HoursPerWorkday*calendar.WorkingDaysInPeriod(period, cadence)), granularity), nil
	}
	return Quantity{}, fmt.Errorf("%w: %d", calendar.ErrUnknownGranularity, int(granularity))
}

// BillableQuantity is QuantityInPeriod minus the time off, if any.
func BillableQuantity(
	target calendar.Date,
	granularity calendar.Granularity,
	cadence calendar.Cadence,
	periodsOff *RecordOfPeriodsOff,
	timeOff *TimeOff,
) (Quantity, error) {
	q, err := QuantityInPeriod(target, granularity, cadence, periodsOff)
	if err != nil {
		return Quantity{}, err
	}
	if timeOff == nil {
		return q, nil
	}
	if err := timeOff.ValidateFor(granularity); err != nil {
		return Quantity{}, err
	}

	billable := q.Sub(Quantity(*timeOff))
	if billable.IsNegative() {
		return Quantity{}, fmt.Errorf("%w: %s off, %s in period", ErrTimeOffExceedsQuantity, Quantity(*timeOff), q)
	}
	return billable, nil
}
