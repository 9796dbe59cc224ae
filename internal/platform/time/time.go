// Package time contains time related helpers
package time

import "time"

// DayStart returns midnight UTC of the day containing t
func DayStart(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// HourStart returns the top of the UTC hour containing t
func HourStart(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
