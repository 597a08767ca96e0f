package domain

import (
	"context"
	"time"
)

// ScheduleResultRecord captures the outcome of one notification registration
// or cancellation attempt for offline analysis.
type ScheduleResultRecord struct {
	RunID          string
	ActivityID     string
	Kind           string
	Phase          string
	FireAt         time.Time
	Outcome        string
	NotificationID string
	Error          string
}

type ScheduleResultRecorder interface {
	RecordRunResults(ctx context.Context, records []ScheduleResultRecord) error
	Close() error
}
