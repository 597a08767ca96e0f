// Package occurrence expands an activity's date range into the calendar days
// it occurs on.
package occurrence

import (
	"time"

	"github.com/habitline/notification-scheduling/internal/domain"
)

// MaxDays bounds how many occurrence days a single activity materializes.
// Days past the cap are silently dropped.
const MaxDays = 30

// Days returns one date per calendar day from start through end inclusive,
// ascending, normalized to midnight UTC. An end before start is clamped to a
// single day rather than treated as an error. The wall clock is never
// consulted; filtering against "now" happens at materialization.
func Days(start, end time.Time) []time.Time {
	first := domain.NormalizeDay(start)
	last := domain.NormalizeDay(end)
	if last.Before(first) {
		last = first
	}

	days := make([]time.Time, 0, MaxDays)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if len(days) == MaxDays {
			break
		}
		days = append(days, d)
	}

	return days
}
