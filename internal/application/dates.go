package application

import "time"

// Days are bucketed in UTC.

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysAgo returns the start of the day n days before now.
func DaysAgo(now time.Time, n int) time.Time {
	return StartOfDay(now).AddDate(0, 0, -n)
}

func IsWeekday(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// WeekdaysInDateRange counts weekdays from the day of from (inclusive) to the day of to (exclusive).
func WeekdaysInDateRange(from, to time.Time) int64 {
	var count int64
	end := StartOfDay(to)
	for d := StartOfDay(from); d.Before(end); d = d.AddDate(0, 0, 1) {
		if IsWeekday(d) {
			count++
		}
	}
	return count
}
