// Package period provides calendar truncation and integer period
// arithmetic. Retention math subtracts period indices, never calendar
// day counts, so cohort offsets stay exact across month lengths.
package period

import (
	"fmt"
	"time"
)

const (
	Daily     = "daily"
	Weekly    = "weekly"
	Monthly   = "monthly"
	Quarterly = "quarterly"
)

// epoch is a Monday, so week indices align with ISO weeks.
var epoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// DayIndex returns days since the epoch.
func DayIndex(t time.Time) int {
	return int(t.Sub(epoch).Hours() / 24)
}

// WeekIndex returns whole weeks since the epoch Monday.
func WeekIndex(t time.Time) int {
	d := DayIndex(t)
	if d < 0 {
		return (d - 6) / 7
	}
	return d / 7
}

// MonthIndex returns months since year 0.
func MonthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// QuarterIndex returns quarters since year 0.
func QuarterIndex(t time.Time) int {
	return t.Year()*4 + (int(t.Month())-1)/3
}

// Index truncates t to the named period and returns its integer index.
func Index(t time.Time, period string) int {
	switch period {
	case Daily:
		return DayIndex(t)
	case Weekly:
		return WeekIndex(t)
	case Quarterly:
		return QuarterIndex(t)
	default:
		return MonthIndex(t)
	}
}

// Start returns the first instant of the indexed period.
func Start(index int, period string) time.Time {
	switch period {
	case Daily:
		return epoch.AddDate(0, 0, index)
	case Weekly:
		return epoch.AddDate(0, 0, index*7)
	case Quarterly:
		return time.Date(index/4, time.Month((index%4)*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(index/12, time.Month(index%12+1), 1, 0, 0, 0, 0, time.UTC)
	}
}

// Label renders a period index for table output, e.g. "2023-05",
// "2023-W14", "2023-Q2" or "2023-05-17".
func Label(index int, period string) string {
	start := Start(index, period)
	switch period {
	case Daily:
		return start.Format("2006-01-02")
	case Weekly:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case Quarterly:
		return fmt.Sprintf("%04d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	default:
		return start.Format("2006-01")
	}
}
