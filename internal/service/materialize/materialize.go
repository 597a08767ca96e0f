// Package materialize turns an activity definition into the concrete
// notification requests that should be registered for it.
package materialize

import (
	"fmt"
	"strings"
	"time"

	"github.com/habitline/notification-scheduling/internal/domain"
	"github.com/habitline/notification-scheduling/internal/service/occurrence"
)

// DefaultLeadMinutes is how far ahead of the main notification the reminder
// fires.
const DefaultLeadMinutes = 15

type Materializer struct {
	lead time.Duration
}

func New(leadMinutes int) *Materializer {
	if leadMinutes <= 0 {
		leadMinutes = DefaultLeadMinutes
	}
	return &Materializer{
		lead: time.Duration(leadMinutes) * time.Minute,
	}
}

// Notifications computes the notification requests for every future
// occurrence of the activity, relative to now.
//
// Per occurrence day: a main request firing at the activity's time of day,
// preceded by a reminder request at the lead offset. A day whose main instant
// is not strictly in the future is dropped entirely; a reminder whose own
// instant is in the past is dropped while the main is kept. An activity
// without a time of day yields no requests. Requests are ordered by ascending
// day, main before reminder within a day; callers must not rely on the order.
func (m *Materializer) Notifications(activity *domain.Activity, now time.Time) ([]domain.NotificationRequest, error) {
	if !activity.HasTimeOfDay() {
		return nil, nil
	}

	timeOfDay, err := time.Parse("15:04", activity.TimeOfDay)
	if err != nil {
		return nil, fmt.Errorf("parse time of day %q: %w", activity.TimeOfDay, domain.ErrInvalidTimeFormat)
	}

	days := occurrence.Days(activity.StartDate, activity.EffectiveEndDate())

	requests := make([]domain.NotificationRequest, 0, 2*len(days))
	for _, day := range days {
		mainFireAt := combine(day, timeOfDay)
		if !mainFireAt.After(now) {
			// A reminder for an already-past main event is meaningless,
			// so the whole day is skipped.
			continue
		}

		requests = append(requests, domain.NotificationRequest{
			Kind:   domain.NotificationKindMain,
			FireAt: mainFireAt,
			Title:  mainTitle(activity.Title),
			Body:   mainBody(activity),
			Tag:    m.tag(activity, domain.NotificationKindMain),
		})

		reminderFireAt := mainFireAt.Add(-m.lead)
		if reminderFireAt.After(now) {
			requests = append(requests, domain.NotificationRequest{
				Kind:   domain.NotificationKindReminder,
				FireAt: reminderFireAt,
				Title:  m.reminderTitle(activity.Title),
				Body:   m.reminderBody(activity.Title),
				Tag:    m.tag(activity, domain.NotificationKindReminder),
			})
		}
	}

	return requests, nil
}

// LeadMinutes reports the configured reminder lead time in whole minutes.
func (m *Materializer) LeadMinutes() int {
	return int(m.lead / time.Minute)
}

func (m *Materializer) tag(activity *domain.Activity, kind domain.NotificationKind) domain.NotificationTag {
	return domain.NotificationTag{
		ActivityID: activity.ID,
		EntryID:    activity.EntryID,
		Kind:       kind,
	}
}

func combine(day, timeOfDay time.Time) time.Time {
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		timeOfDay.Hour(), timeOfDay.Minute(), 0, 0,
		time.UTC,
	)
}

func mainTitle(title string) string {
	return fmt.Sprintf("Time for: %s", title)
}

func mainBody(activity *domain.Activity) string {
	if activity.Note != "" {
		return activity.Note
	}
	return fmt.Sprintf("It's time for your scheduled %s", strings.ToLower(activity.Title))
}

func (m *Materializer) reminderTitle(title string) string {
	return fmt.Sprintf("Reminder: %s in %d minutes", title, m.LeadMinutes())
}

func (m *Materializer) reminderBody(title string) string {
	return fmt.Sprintf("Your %s is scheduled to start in %d minutes", strings.ToLower(title), m.LeadMinutes())
}
