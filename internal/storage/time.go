package storage

import "time"

// BucketStarts computes the UTC boundaries of the dashboard buckets for a
// given reference time: start of day, start of week (Monday) and start of
// month. Boundaries are computed once in Go and passed into backend-native
// queries so all adapters bucket identically.
func BucketStarts(now time.Time) (day, week, month time.Time) {
	now = now.UTC()
	day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	weekday := int(day.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	week = day.AddDate(0, 0, -(weekday - 1))

	month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return day, week, month
}
