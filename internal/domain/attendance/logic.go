package attendance

import "time"

// WorkedMinutes is the time between clockIn and clockOut minus the part of
// each break that falls inside that window. Open breaks end at clockOut.
func WorkedMinutes(clockIn, clockOut time.Time, breaks []Break) int {
	if !clockOut.After(clockIn) {
		return 0
	}
	worked := clockOut.Sub(clockIn) - breakDuration(clockIn, clockOut, breaks)
	if worked < 0 {
		return 0
	}
	return int(worked / time.Minute)
}

func breakDuration(clockIn, clockOut time.Time, breaks []Break) time.Duration {
	var total time.Duration
	for _, b := range breaks {
		start := b.StartedAt
		end := clockOut
		if b.EndedAt != nil {
			end = *b.EndedAt
		}
		if start.Before(clockIn) {
			start = clockIn
		}
		if end.After(clockOut) {
			end = clockOut
		}
		if end.After(start) {
			total += end.Sub(start)
		}
	}
	return total
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
