package leave

import (
	"errors"
	"math"
	"time"
)

var (
	ErrEndBeforeStart = errors.New("end date before start date")
	ErrInvalidHalfDay = errors.New("invalid half-day range")
	ErrSpansYears     = errors.New("request spans calendar years")
)

// CalculateDays returns inclusive day count between start and end.
func CalculateDays(start, end time.Time) (float64, error) {
	start, end = dayOf(start), dayOf(end)
	if end.Before(start) {
		return 0, ErrEndBeforeStart
	}
	return math.Round(end.Sub(start).Hours()/24) + 1, nil
}

// CalculateRequestDays subtracts half a day for each half-day boundary. A
// single day cannot be both a starting and an ending half.
func CalculateRequestDays(start, end time.Time, startHalf, endHalf bool) (float64, error) {
	days, err := CalculateDays(start, end)
	if err != nil {
		return 0, err
	}
	if dayOf(start).Equal(dayOf(end)) && startHalf && endHalf {
		return 0, ErrInvalidHalfDay
	}
	if start.Year() != end.Year() {
		return 0, ErrSpansYears
	}
	if startHalf {
		days -= 0.5
	}
	if endHalf {
		days -= 0.5
	}
	if days <= 0 {
		return 0, ErrInvalidHalfDay
	}
	return days, nil
}

// ProratedDays scales an annual allowance by the part of year left after
// hire. Employees hired before the year get the full allowance.
func ProratedDays(annual float64, hire time.Time, year int) float64 {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)
	hire = dayOf(hire)
	if !hire.After(yearStart) {
		return annual
	}
	if !hire.Before(yearEnd) {
		return 0
	}
	remaining := yearEnd.Sub(hire).Hours()
	total := yearEnd.Sub(yearStart).Hours()
	// round to half days
	return math.Round(annual*remaining/total*2) / 2
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
