package schedule

import (
	"time"

	"github.com/habitline/notification-scheduling/internal/domain"
)

// ResultItem is the per-notification outcome of one registration run.
type ResultItem struct {
	Kind           domain.NotificationKind `json:"kind"`
	FireAt         time.Time               `json:"fire_at"`
	NotificationID string                  `json:"notification_id,omitempty"`
	Success        bool                    `json:"success"`
	Error          string                  `json:"error,omitempty"`
}

// Response summarizes one ScheduleActivityNotifications run.
type Response struct {
	ActivityID      string       `json:"activity_id"`
	RequestedCount  int          `json:"requested_count"`
	RegisteredCount int          `json:"registered_count"`
	FailedCount     int          `json:"failed_count"`
	Results         []ResultItem `json:"results"`
}

// RegisteredIDs returns the notification ids of successful registrations.
func (r *Response) RegisteredIDs() []string {
	ids := make([]string, 0, r.RegisteredCount)
	for _, item := range r.Results {
		if item.Success {
			ids = append(ids, item.NotificationID)
		}
	}
	return ids
}
