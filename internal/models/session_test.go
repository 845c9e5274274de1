package models

import (
	"testing"
	"time"
)

func TestOverlapsHalfOpenWindows(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	hour := time.Hour

	cases := []struct {
		name           string
		bStart, bEnd   time.Time
		expectsOverlap bool
	}{
		{"identical windows", base, base.Add(hour), true},
		{"contained window", base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"partial overlap at end", base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"back to back after", base.Add(hour), base.Add(2 * hour), false},
		{"back to back before", base.Add(-hour), base, false},
		{"disjoint", base.Add(3 * hour), base.Add(4 * hour), false},
	}

	for _, tc := range cases {
		got := Overlaps(base, base.Add(hour), tc.bStart, tc.bEnd)
		if got != tc.expectsOverlap {
			t.Fatalf("%s: Overlaps = %v, want %v", tc.name, got, tc.expectsOverlap)
		}
		// Overlap is symmetric.
		if Overlaps(tc.bStart, tc.bEnd, base, base.Add(hour)) != got {
			t.Fatalf("%s: Overlaps is not symmetric", tc.name)
		}
	}
}
