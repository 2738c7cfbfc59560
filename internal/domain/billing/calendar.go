// Package billing holds the month-length-aware calendar arithmetic and the
// coverage fold. Dates are civil dates carried as time.Time at 00:00 UTC.
package billing

import "time"

// DateOf truncates t to its calendar date as seen in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LocalDate returns the calendar date of instant t in loc.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(t.In(loc))
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth is the first day of the following month minus one day.
func DaysInMonth(year int, month time.Month) int {
	return date(year, month, 1).AddDate(0, 1, -1).Day()
}

// AnchorInMonth clamps billingDay to the length of the month.
func AnchorInMonth(year int, month time.Month, billingDay int) time.Time {
	day := billingDay
	if dim := DaysInMonth(year, month); day > dim {
		day = dim
	}
	return date(year, month, day)
}

// AdvanceAnchor moves anchor by months calendar months and reclamps the day.
func AdvanceAnchor(anchor time.Time, months, billingDay int) time.Time {
	idx := int(anchor.Month()) - 1 + months
	year := anchor.Year() + idx/12
	idx %= 12
	if idx < 0 {
		idx += 12
		year--
	}
	return AnchorInMonth(year, time.Month(idx+1), billingDay)
}

// NextBillingStart returns the smallest anchor strictly after coveredThrough.
// It steps one month at a time, so a gap of N months costs N iterations.
func NextBillingStart(coveredThrough time.Time, billingDay int) time.Time {
	ct := DateOf(coveredThrough)
	anchor := AnchorInMonth(ct.Year(), ct.Month(), billingDay)
	for !anchor.After(ct) {
		anchor = AdvanceAnchor(anchor, 1, billingDay)
	}
	return anchor
}

// CoverageEndFromStart is the last covered day of months periods beginning at start.
func CoverageEndFromStart(start time.Time, months, billingDay int) time.Time {
	return AdvanceAnchor(start, months, billingDay).AddDate(0, 0, -1)
}

// CoverageStartForPayment picks the anchor a payment made on paidDate starts
// covering: this month's anchor when paid on or before it, else next month's.
func CoverageStartForPayment(paidDate time.Time, billingDay int) time.Time {
	pd := DateOf(paidDate)
	anchor := AnchorInMonth(pd.Year(), pd.Month(), billingDay)
	if pd.After(anchor) {
		return AdvanceAnchor(anchor, 1, billingDay)
	}
	return anchor
}

// CoverageUntilForPayment is the last day covered by a single payment.
func CoverageUntilForPayment(paidDate time.Time, months, billingDay int) time.Time {
	return CoverageEndFromStart(CoverageStartForPayment(paidDate, billingDay), months, billingDay)
}
