// Package dates provides the ISO-date arithmetic behind the historical and
// forecast query ranges. All arithmetic is calendar-correct UTC; dates are
// passed around as YYYY-MM-DD strings at package boundaries.
package dates

import (
	"fmt"
	"time"
)

const isoLayout = "2006-01-02"

// IsValid reports whether s is a strict YYYY-MM-DD string naming a real
// calendar date (e.g. "2025-02-30" is rejected).
func IsValid(s string) bool {
	if len(s) != len(isoLayout) {
		return false
	}
	_, err := time.Parse(isoLayout, s)
	return err == nil
}

// Today returns the current UTC date.
func Today() string {
	return time.Now().UTC().Format(isoLayout)
}

// AddDays shifts date by delta calendar days, rolling over month, year and
// leap-year boundaries.
func AddDays(date string, delta int) (string, error) {
	t, err := time.Parse(isoLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.AddDate(0, 0, delta).Format(isoLayout), nil
}

// HistoricalDates returns the same three-day calendar window (day before,
// day of, day after the anchor) for each of the preceding `years` years,
// oldest year first. Result length is 3*years.
//
// The day shift is applied before the year substitution, so an anchor near
// a year boundary rolls into the adjacent year correctly. A window day that
// lands on Feb 29 of a non-leap year normalizes to Mar 1 (time.Date
// normalization).
func HistoricalDates(anchor string, years int) ([]string, error) {
	base, err := time.Parse(isoLayout, anchor)
	if err != nil {
		return nil, fmt.Errorf("invalid anchor date %q: %w", anchor, err)
	}
	if years < 0 {
		return nil, fmt.Errorf("years must be >= 0, got %d", years)
	}

	out := make([]string, 0, 3*years)
	for offset := years; offset >= 1; offset-- {
		for _, delta := range []int{-1, 0, 1} {
			shifted := base.AddDate(0, 0, delta)
			d := time.Date(shifted.Year()-offset, shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
			out = append(out, d.Format(isoLayout))
		}
	}
	return out, nil
}

// ForecastDates returns the 2*radius+1 consecutive dates centered on the
// anchor, ascending. The anchor is always present at index radius.
func ForecastDates(anchor string, radius int) ([]string, error) {
	base, err := time.Parse(isoLayout, anchor)
	if err != nil {
		return nil, fmt.Errorf("invalid anchor date %q: %w", anchor, err)
	}
	if radius < 0 {
		return nil, fmt.Errorf("radius must be >= 0, got %d", radius)
	}

	out := make([]string, 0, 2*radius+1)
	for d := -radius; d <= radius; d++ {
		out = append(out, base.AddDate(0, 0, d).Format(isoLayout))
	}
	return out, nil
}
