package schedulerecorder

import (
	"context"

	"github.com/habitline/notification-scheduling/internal/domain"
)

type noopRecorder struct{}

func NewNoopRecorder() domain.ScheduleResultRecorder {
	return &noopRecorder{}
}

func (n *noopRecorder) RecordRunResults(_ context.Context, _ []domain.ScheduleResultRecord) error {
	return nil
}

func (n *noopRecorder) Close() error {
	return nil
}
