//go:build gcloud

package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/habitline/notification-scheduling/internal/domain"
)

// CloudTasksClient backs the notifier with a Google Cloud Tasks queue; each
// notification is an HTTP task scheduled at its fire time, carrying the tag
// in the task body.
type CloudTasksClient struct {
	client     *cloudtasks.Client
	projectID  string
	locationID string
	queueID    string
	targetURL  string
	maxRetries int
}

type CloudTasksConfig struct {
	ProjectID  string
	LocationID string
	QueueID    string
	TargetURL  string
	MaxRetries int
}

type taskPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Tag   domain.NotificationTag `json:"tag"`
}

func NewCloudTasksClient(ctx context.Context, cfg CloudTasksConfig) (*CloudTasksClient, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud tasks client: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &CloudTasksClient{
		client:     client,
		projectID:  cfg.ProjectID,
		locationID: cfg.LocationID,
		queueID:    cfg.QueueID,
		targetURL:  cfg.TargetURL,
		maxRetries: maxRetries,
	}, nil
}

func (c *CloudTasksClient) queuePath() string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s",
		c.projectID, c.locationID, c.queueID)
}

func (c *CloudTasksClient) taskPath(notificationID string) string {
	return fmt.Sprintf("%s/tasks/%s", c.queuePath(), notificationID)
}

func (c *CloudTasksClient) Schedule(ctx context.Context, n *Notification) (*ScheduleResponse, error) {
	payload, err := json.Marshal(taskPayload{
		Title: n.Title,
		Body:  n.Body,
		Tag:   n.Tag,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	notificationID := uuid.NewString()

	task := &taskspb.Task{
		Name: c.taskPath(notificationID),
		MessageType: &taskspb.Task_HttpRequest{
			HttpRequest: &taskspb.HttpRequest{
				HttpMethod: taskspb.HttpMethod_POST,
				Url:        c.targetURL,
				Headers: map[string]string{
					"Content-Type": "application/json",
				},
				Body: payload,
			},
		},
	}

	if !n.FireAt.IsZero() {
		task.ScheduleTime = timestamppb.New(n.FireAt)
	}

	req := &taskspb.CreateTaskRequest{
		Parent: c.queuePath(),
		Task:   task,
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.Debug("retrying task creation",
				slog.String("activity_id", n.Tag.ActivityID),
				slog.String("kind", n.Tag.Kind.String()),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.createTask(ctx, req, notificationID, n)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}

	slog.Error("all retries exhausted for task creation",
		slog.String("activity_id", n.Tag.ActivityID),
		slog.Int("max_retries", c.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return nil, fmt.Errorf("failed to create task after %d retries: %w", c.maxRetries, lastErr)
}

func (c *CloudTasksClient) createTask(ctx context.Context, req *taskspb.CreateTaskRequest, notificationID string, n *Notification) (*ScheduleResponse, error) {
	createdTask, err := c.client.CreateTask(ctx, req)
	if err != nil {
		if status.Code(err) == codes.Unavailable {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		slog.Warn("failed to create cloud task",
			slog.String("activity_id", n.Tag.ActivityID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create cloud task: %w", err)
	}

	slog.Info("notification task created in Cloud Tasks",
		slog.String("task_name", createdTask.Name),
		slog.String("activity_id", n.Tag.ActivityID),
		slog.String("kind", n.Tag.Kind.String()),
	)

	var scheduleTime, createTime time.Time
	if createdTask.ScheduleTime != nil {
		scheduleTime = createdTask.ScheduleTime.AsTime()
	}
	if createdTask.CreateTime != nil {
		createTime = createdTask.CreateTime.AsTime()
	}

	return &ScheduleResponse{
		ID:           notificationID,
		ScheduleTime: scheduleTime,
		CreateTime:   createTime,
	}, nil
}

func (c *CloudTasksClient) Cancel(ctx context.Context, notificationID string) error {
	taskPath := c.taskPath(notificationID)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.Debug("retrying task deletion",
				slog.String("notification_id", notificationID),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := c.deleteTask(ctx, taskPath, notificationID)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	slog.Error("all retries exhausted for task deletion",
		slog.String("notification_id", notificationID),
		slog.Int("max_retries", c.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("failed to delete task after %d retries: %w", c.maxRetries, lastErr)
}

func (c *CloudTasksClient) deleteTask(ctx context.Context, taskPath, notificationID string) error {
	err := c.client.DeleteTask(ctx, &taskspb.DeleteTaskRequest{Name: taskPath})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			slog.Info("task not found in Cloud Tasks (may have fired)",
				slog.String("notification_id", notificationID),
			)
			return nil
		}
		if status.Code(err) == codes.Unavailable {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		slog.Warn("failed to delete cloud task",
			slog.String("notification_id", notificationID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete cloud task: %w", err)
	}

	slog.Info("task deleted from Cloud Tasks",
		slog.String("notification_id", notificationID),
	)
	return nil
}

func (c *CloudTasksClient) ListScheduled(ctx context.Context) ([]ScheduledNotification, error) {
	req := &taskspb.ListTasksRequest{
		Parent:       c.queuePath(),
		ResponseView: taskspb.Task_FULL,
	}

	scheduled := make([]ScheduledNotification, 0)

	it := c.client.ListTasks(ctx, req)
	for {
		task, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if status.Code(err) == codes.Unavailable {
				return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}

		httpReq := task.GetHttpRequest()
		if httpReq == nil {
			continue
		}

		var payload taskPayload
		if err := json.Unmarshal(httpReq.Body, &payload); err != nil {
			slog.Warn("skipping task with undecodable payload",
				slog.String("task_name", task.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		var fireAt time.Time
		if task.ScheduleTime != nil {
			fireAt = task.ScheduleTime.AsTime()
		}

		scheduled = append(scheduled, ScheduledNotification{
			ID:     taskID(task.Name),
			FireAt: fireAt,
			Title:  payload.Title,
			Body:   payload.Body,
			Tag:    payload.Tag,
		})
	}

	return scheduled, nil
}

func taskID(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func (c *CloudTasksClient) Close() error {
	return c.client.Close()
}
