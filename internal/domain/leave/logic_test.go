package leave

import (
	"errors"
	"testing"
	"time"
)

func TestCalculateDays(t *testing.T) {
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	days, err := CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	end = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	days, err = CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCalculateDaysInvalid(t *testing.T) {
	start := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)

	if _, err := CalculateDays(start, end); !errors.Is(err, ErrEndBeforeStart) {
		t.Fatalf("expected ErrEndBeforeStart, got %v", err)
	}
}

func TestCalculateRequestDays(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		startHalf bool
		endHalf   bool
		want      float64
		wantErr   error
	}{
		{name: "single full day", start: day(3), end: day(3), want: 1},
		{name: "single half day", start: day(3), end: day(3), startHalf: true, want: 0.5},
		{name: "both halves on one day", start: day(3), end: day(3), startHalf: true, endHalf: true, wantErr: ErrInvalidHalfDay},
		{name: "range with half boundaries", start: day(3), end: day(5), startHalf: true, endHalf: true, want: 2},
		{name: "across years", start: time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC), end: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), wantErr: ErrSpansYears},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalculateRequestDays(tc.start, tc.end, tc.startHalf, tc.endHalf)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v days, got %v", tc.want, got)
			}
		})
	}
}

func TestProratedDays(t *testing.T) {
	if got := ProratedDays(20, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), 2025); got != 20 {
		t.Fatalf("expected full allowance, got %v", got)
	}
	if got := ProratedDays(20, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC), 2025); got != 10 {
		t.Fatalf("expected half allowance, got %v", got)
	}
	if got := ProratedDays(20, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 2025); got != 0 {
		t.Fatalf("expected nothing for future hires, got %v", got)
	}
}
