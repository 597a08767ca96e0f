package notifier

import (
	"time"

	"github.com/habitline/notification-scheduling/internal/domain"
)

// Notification is one registration request handed to the primitive.
type Notification struct {
	FireAt time.Time
	Title  string
	Body   string
	Tag    domain.NotificationTag
}

type ScheduleResponse struct {
	ID           string
	ScheduleTime time.Time
	CreateTime   time.Time
}

// ScheduledNotification is one entry of the primitive's full listing.
type ScheduledNotification struct {
	ID     string
	FireAt time.Time
	Title  string
	Body   string
	Tag    domain.NotificationTag
}

type gatewayNotificationRequest struct {
	ScheduleTime string                 `json:"schedule_time"`
	Title        string                 `json:"title"`
	Body         string                 `json:"body"`
	Tag          domain.NotificationTag `json:"tag"`
}

type gatewayNotificationResponse struct {
	ID           string `json:"id"`
	ScheduleTime string `json:"schedule_time"`
	CreateTime   string `json:"create_time"`
}

type gatewayListResponse struct {
	Notifications []gatewayListItem `json:"notifications"`
	Count         int               `json:"count"`
}

type gatewayListItem struct {
	ID           string                 `json:"id"`
	ScheduleTime string                 `json:"schedule_time"`
	Title        string                 `json:"title"`
	Body         string                 `json:"body"`
	Tag          domain.NotificationTag `json:"tag"`
}
