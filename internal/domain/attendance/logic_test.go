package attendance

import (
	"testing"
	"time"
)

func TestWorkedMinutes(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 3, 3, h, m, 0, 0, time.UTC) }
	ptr := func(v time.Time) *time.Time { return &v }

	tests := []struct {
		name   string
		in     time.Time
		out    time.Time
		breaks []Break
		want   int
	}{
		{name: "no breaks", in: at(9, 0), out: at(17, 30), want: 510},
		{name: "lunch", in: at(9, 0), out: at(17, 0), breaks: []Break{{StartedAt: at(12, 0), EndedAt: ptr(at(12, 45))}}, want: 435},
		{name: "open break ends at clock out", in: at(9, 0), out: at(10, 0), breaks: []Break{{StartedAt: at(9, 30)}}, want: 30},
		{name: "break outside window is clipped", in: at(9, 0), out: at(10, 0), breaks: []Break{{StartedAt: at(8, 0), EndedAt: ptr(at(9, 15))}}, want: 45},
		{name: "clock out before clock in", in: at(10, 0), out: at(9, 0), want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := WorkedMinutes(tc.in, tc.out, tc.breaks); got != tc.want {
				t.Fatalf("expected %d minutes, got %d", tc.want, got)
			}
		})
	}
}
