package billing

import "github.com/warp/period-engine/calendar"

// CalculateInvoiceNumber counts periods forward from the anchor to the
// period containing target, skipping periods recorded as off. Expense
// invoices take the number after the service invoice of the same period.
//
//	number = anchor.Offset + elapsed periods - periods off in (anchor, target]
//
// Periods off at or before the anchor, or after the target, do not count.
// Several entries normalizing to the same period count once.
func CalculateInvoiceNumber(
	anchor Anchor,
	target calendar.Date,
	cadence calendar.Cadence,
	isExpenses bool,
	periodsOff *RecordOfPeriodsOff,
) (InvoiceNumber, error) {
	anchorPeriod := calendar.Normalize(anchor.Period, cadence)
	if periodsOff.ContainsPeriod(anchorPeriod, cadence) {
		return 0, &RecordsOffMustNotContainOffsetPeriodError{OffsetPeriod: anchorPeriod}
	}

	targetPeriod := calendar.Normalize(target, cadence)
	elapsed, err := calendar.ElapsedPeriodsSince(anchorPeriod, targetPeriod, cadence)
	if err != nil {
		return 0, err
	}

	skipped := make(map[calendar.Date]struct{})
	for _, d := range periodsOff.Dates() {
		p := calendar.Normalize(d, cadence)
		if p.After(anchorPeriod) && !p.After(targetPeriod) {
			skipped[p] = struct{}{}
		}
	}

	number := int(anchor.Offset) + elapsed - len(skipped)
	if isExpenses {
		number++
	}
	return InvoiceNumber(number), nil
}
