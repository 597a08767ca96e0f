package domain

import (
	"time"
)

// Activity is a user-defined, possibly recurring habit entry. Dates are
// calendar days normalized to midnight UTC; TimeOfDay is a wall-clock
// "15:04" string and may be empty for date-only activities.
type Activity struct {
	ID        string
	EntryID   string
	Title     string
	Note      string
	StartDate time.Time
	EndDate   *time.Time
	TimeOfDay string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveEndDate resolves the inclusive end of the recurrence range.
// A missing or inverted end date collapses to a single-day activity.
func (a *Activity) EffectiveEndDate() time.Time {
	start := NormalizeDay(a.StartDate)
	if a.EndDate == nil {
		return start
	}
	end := NormalizeDay(*a.EndDate)
	if end.Before(start) {
		return start
	}
	return end
}

// HasTimeOfDay reports whether the activity can produce notifications at all.
func (a *Activity) HasTimeOfDay() bool {
	return a.TimeOfDay != ""
}

// NormalizeDay strips the time component, keeping the calendar day in UTC.
func NormalizeDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func DayKey(t time.Time) string {
	return NormalizeDay(t).Format("2006-01-02")
}

func ParseDayKey(key string) (time.Time, error) {
	return time.Parse("2006-01-02", key)
}
