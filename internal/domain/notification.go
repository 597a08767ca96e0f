package domain

import (
	"time"
)

type NotificationKind string

const (
	NotificationKindMain     NotificationKind = "main"
	NotificationKindReminder NotificationKind = "reminder"
)

func (k NotificationKind) String() string {
	return string(k)
}

func (k NotificationKind) IsValid() bool {
	return k == NotificationKindMain || k == NotificationKindReminder
}

// NotificationTag is attached to every registered notification so a full
// listing scan can recover which activity a notification belongs to.
type NotificationTag struct {
	ActivityID string           `json:"activity_id"`
	EntryID    string           `json:"entry_id"`
	Kind       NotificationKind `json:"kind"`
}

func (t NotificationTag) BelongsTo(activityID string) bool {
	return t.ActivityID == activityID
}

// NotificationRequest is one materialized notification awaiting registration
// with the notification primitive.
type NotificationRequest struct {
	Kind   NotificationKind
	FireAt time.Time
	Title  string
	Body   string
	Tag    NotificationTag
}
