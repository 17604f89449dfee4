/*
period.go - Period normalization and period-count arithmetic

PURPOSE:
  Maps any date onto the end of the period that contains it, and counts or
  shifts whole periods by converting period ends to a serial number:

    month serial     = year*12 + (month-1)
    fortnight serial = year*24 + (month-1)*2 + half    (half: 0 first, 1 second)

  Consecutive periods have consecutive serials, across year boundaries too.

SEE ALSO:
  - relative.go: resolving "current"/"last" period against a clock
  - billing/number.go: invoice numbers built on ElapsedPeriodsSince
*/
package calendar

import "fmt"

// Normalize returns the end of the period that contains date.
func Normalize(date Date, cadence Cadence) Date {
	if cadence == CadenceBiWeekly {
		firstHalf := date.FirstHalfEnd()
		if date.day <= firstHalf.day {
			return firstHalf
		}
	}
	return date.EndOfMonth()
}

// PeriodBounds returns the first and last day of the period containing
// periodEnd.
func PeriodBounds(periodEnd Date, cadence Cadence) (start, end Date) {
	end = Normalize(periodEnd, cadence)
	start = Date{year: end.year, month: end.month, day: 1}
	if cadence == CadenceBiWeekly && end.day != firstHalfLastDay(end.month) {
		start.day = firstHalfLastDay(end.month) + 1
	}
	return start, end
}

func serial(periodEnd Date, cadence Cadence) int {
	y, m := int(periodEnd.year), int(periodEnd.month)
	if cadence == CadenceBiWeekly {
		half := 1
		if periodEnd.day == firstHalfLastDay(periodEnd.month) {
			half = 0
		}
		return y*24 + (m-1)*2 + half
	}
	return y*12 + (m - 1)
}

func fromSerial(s int, cadence Cadence) Date {
	if cadence == CadenceBiWeekly {
		y, r := s/24, s%24
		d := Date{year: Year(y), month: Month(r/2 + 1), day: 1}
		if r%2 == 0 {
			return d.FirstHalfEnd()
		}
		return d.EndOfMonth()
	}
	d := Date{year: Year(s / 12), month: Month(s%12 + 1), day: 1}
	return d.EndOfMonth()
}

// ElapsedPeriodsSince counts the periods from start's period to end's period.
// Both dates are normalized first, so any day inside a period may be passed.
func ElapsedPeriodsSince(start, end Date, cadence Cadence) (int, error) {
	startEnd := Normalize(start, cadence)
	endEnd := Normalize(end, cadence)
	if startEnd.After(endEnd) {
		return 0, &StartPeriodAfterEndPeriodError{Start: startEnd, End: endEnd}
	}
	return serial(endEnd, cadence) - serial(startEnd, cadence), nil
}

// Shift moves periodEnd by amount periods of the given unit. unit must be
// GranularityMonth or GranularityFortnight; amount may be negative.
func Shift(periodEnd Date, unit Granularity, amount int) (Date, error) {
	cadence, err := CadenceForUnit(unit)
	if err != nil {
		return Date{}, err
	}
	s := serial(Normalize(periodEnd, cadence), cadence) + amount
	if s < 0 {
		return Date{}, &InvalidDateError{
			Underlying: fmt.Sprintf("shifting %s by %d %s lands before year 0", periodEnd, amount, unit),
		}
	}
	return fromSerial(s, cadence), nil
}

// WorkingDaysInPeriod counts Monday-to-Friday days in the period containing
// periodEnd, bounds included.
func WorkingDaysInPeriod(periodEnd Date, cadence Cadence) int {
	start, end := PeriodBounds(periodEnd, cadence)
	count := 0
	for d := start.day; d <= end.day; d++ {
		if (Date{year: start.year, month: start.month, day: d}).IsWorkday() {
			count++
		}
	}
	return count
}
