package types

import (
	"fmt"
	"time"
)

// NextBillingDate calculates the next billing date based on the given start time,
// billing period, and billing period unit (the frequency multiplier).
// For example:
// - If billing period is MONTHLY and unit is 2, we add two months.
// - If billing period is ANNUAL and unit is 1, we add one year.
// - If billing period is WEEKLY and unit is 3, we add 21 days (3 weeks).
// Month arithmetic clamps to the last valid day instead of overflowing, so
// Jan 31 + 1 month lands on Feb 28 (or 29), never Mar 2/3.
func NextBillingDate(start time.Time, unit int, period BillingPeriod) (time.Time, error) {
	if unit <= 0 {
		return start, fmt.Errorf("billing period unit must be a positive integer, got %d", unit)
	}

	switch period {
	case BILLING_PERIOD_DAILY:
		return start.AddDate(0, 0, unit), nil
	case BILLING_PERIOD_WEEKLY:
		return start.AddDate(0, 0, 7*unit), nil
	case BILLING_PERIOD_MONTHLY:
		return AddClampedDate(start, 0, unit), nil
	case BILLING_PERIOD_ANNUAL:
		return AddClampedDate(start, unit, 0), nil
	default:
		return start, fmt.Errorf("invalid billing period type: %s", period)
	}
}

// AddClampedDate adds years and months like time.AddDate but clamps the
// day-of-month to the last valid day of the resulting month instead of
// normalizing into the next one.
func AddClampedDate(t time.Time, years, months int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	newD := d
	if lastDay := lastDayOfMonth(newY, newM, t.Location()); newD > lastDay {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}

// ToDate truncates t to midnight in the given location. All billing boundary
// arithmetic operates on calendar dates in the account timezone.
func ToDate(t time.Time, loc *time.Location) time.Time {
	in := t.In(loc)
	return time.Date(in.Year(), in.Month(), in.Day(), 0, 0, 0, 0, loc)
}

// BCDDate returns the bill-cycle-day date within the month of ref, clamping
// the day to the last valid day of that month (BCD 31 in February → Feb 28/29).
func BCDDate(ref time.Time, bcd int, loc *time.Location) time.Time {
	day := bcd
	if last := lastDayOfMonth(ref.Year(), ref.Month(), loc); day > last {
		day = last
	}
	return time.Date(ref.Year(), ref.Month(), day, 0, 0, 0, 0, loc)
}

// NextBoundary returns the first billing boundary strictly after the given
// date. Monthly and annual boundaries anchor on the bill cycle day; annual
// boundaries additionally anchor on the month of the anchor date. Daily and
// weekly boundaries step from the anchor date and ignore the BCD.
func NextBoundary(after time.Time, anchor time.Time, bcd int, period BillingPeriod, loc *time.Location) time.Time {
	after = ToDate(after, loc)
	anchor = ToDate(anchor, loc)

	switch period {
	case BILLING_PERIOD_DAILY, BILLING_PERIOD_WEEKLY:
		step := 1
		if period == BILLING_PERIOD_WEEKLY {
			step = 7
		}
		candidate := anchor
		if after.After(anchor) {
			elapsed := int(after.Sub(anchor).Hours() / 24)
			candidate = anchor.AddDate(0, 0, (elapsed/step)*step)
		}
		for !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, step)
		}
		return candidate
	case BILLING_PERIOD_ANNUAL:
		candidate := BCDDate(time.Date(after.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc), bcd, loc)
		for !candidate.After(after) {
			candidate = BCDDate(time.Date(candidate.Year()+1, anchor.Month(), 1, 0, 0, 0, 0, loc), bcd, loc)
		}
		return candidate
	default: // MONTHLY
		candidate := BCDDate(after, bcd, loc)
		for !candidate.After(after) {
			candidate = BCDDate(time.Date(candidate.Year(), candidate.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0), bcd, loc)
		}
		return candidate
	}
}

// PrevBoundary returns the latest billing boundary on or before the given date
func PrevBoundary(t time.Time, anchor time.Time, bcd int, period BillingPeriod, loc *time.Location) time.Time {
	t = ToDate(t, loc)

	switch period {
	case BILLING_PERIOD_DAILY, BILLING_PERIOD_WEEKLY:
		next := NextBoundary(t, anchor, bcd, period, loc)
		step := 1
		if period == BILLING_PERIOD_WEEKLY {
			step = 7
		}
		return next.AddDate(0, 0, -step)
	case BILLING_PERIOD_ANNUAL:
		candidate := BCDDate(time.Date(t.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc), bcd, loc)
		if candidate.After(t) {
			candidate = BCDDate(time.Date(t.Year()-1, anchor.Month(), 1, 0, 0, 0, 0, loc), bcd, loc)
		}
		return candidate
	default: // MONTHLY
		candidate := BCDDate(t, bcd, loc)
		if candidate.After(t) {
			prevMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0)
			candidate = BCDDate(prevMonth, bcd, loc)
		}
		return candidate
	}
}

func lastDayOfMonth(year int, month time.Month, loc *time.Location) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	return firstOfNext.AddDate(0, 0, -1).Day()
}
