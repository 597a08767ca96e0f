package notifier

import (
	"context"
	"errors"
)

//go:generate mockgen -source=notifier.go -destination=mock.go -package=notifier

// ErrUnavailable marks transport-level failures: the primitive itself could
// not be reached at all, as opposed to rejecting one request.
var ErrUnavailable = errors.New("notification service unavailable")

// Notifier is the OS/cloud notification primitive boundary. Cancel of an
// unknown id is success; implementations must not surface NotFound.
type Notifier interface {
	Schedule(ctx context.Context, n *Notification) (*ScheduleResponse, error)
	Cancel(ctx context.Context, notificationID string) error
	ListScheduled(ctx context.Context) ([]ScheduledNotification, error)
}
