package period

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekIndexMondayBoundaries(t *testing.T) {
	tests := []struct {
		day  time.Time
		want int
	}{
		{date(2001, 1, 1), 0}, // epoch Monday
		{date(2001, 1, 7), 0}, // following Sunday, same week
		{date(2001, 1, 8), 1}, // next Monday
		{date(2001, 1, 15), 2},
	}
	for _, tt := range tests {
		if got := WeekIndex(tt.day); got != tt.want {
			t.Errorf("WeekIndex(%s) = %d, want %d", tt.day.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestMonthIndexOffsets(t *testing.T) {
	// Index arithmetic must give offset 1 across any month boundary
	// regardless of month length.
	tests := []struct {
		a, b time.Time
		want int
	}{
		{date(2023, 1, 31), date(2023, 2, 1), 1},
		{date(2023, 2, 28), date(2023, 3, 1), 1},
		{date(2023, 12, 15), date(2024, 1, 15), 1},
		{date(2023, 1, 1), date(2023, 1, 31), 0},
		{date(2023, 1, 5), date(2023, 7, 5), 6},
	}
	for _, tt := range tests {
		if got := MonthIndex(tt.b) - MonthIndex(tt.a); got != tt.want {
			t.Errorf("month offset %s -> %s = %d, want %d",
				tt.a.Format("2006-01-02"), tt.b.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestQuarterIndex(t *testing.T) {
	if got := QuarterIndex(date(2023, 4, 1)) - QuarterIndex(date(2023, 3, 31)); got != 1 {
		t.Errorf("quarter boundary offset = %d, want 1", got)
	}
	if got := QuarterIndex(date(2023, 6, 30)) - QuarterIndex(date(2023, 4, 1)); got != 0 {
		t.Errorf("within-quarter offset = %d, want 0", got)
	}
}

func TestIndexStartRoundTrip(t *testing.T) {
	samples := []time.Time{
		date(2023, 1, 1), date(2023, 5, 17), date(2024, 2, 29), date(2025, 12, 31),
	}
	for _, period := range []string{Daily, Weekly, Monthly, Quarterly} {
		for _, ts := range samples {
			idx := Index(ts, period)
			start := Start(idx, period)
			if start.After(ts) {
				t.Errorf("%s Start(%d) = %s is after %s", period, idx, start, ts)
			}
			if again := Index(start, period); again != idx {
				t.Errorf("%s Index(Start(%d)) = %d", period, idx, again)
			}
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		ts     time.Time
		period string
		want   string
	}{
		{date(2023, 5, 17), Monthly, "2023-05"},
		{date(2023, 5, 17), Quarterly, "2023-Q2"},
		{date(2023, 5, 17), Daily, "2023-05-17"},
		{date(2023, 1, 2), Weekly, "2023-W01"}, // a Monday, ISO week 1
	}
	for _, tt := range tests {
		if got := Label(Index(tt.ts, tt.period), tt.period); got != tt.want {
			t.Errorf("Label(%s, %s) = %q, want %q", tt.ts.Format("2006-01-02"), tt.period, got, tt.want)
		}
	}
}
