//go:build !gcloud

package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// GatewayClient talks to the habitline notification gateway, which fronts the
// device push scheduler with a plain JSON API.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewGatewayClient(baseURL string, maxRetries int) *GatewayClient {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &GatewayClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: maxRetries,
	}
}

func (c *GatewayClient) Schedule(ctx context.Context, n *Notification) (*ScheduleResponse, error) {
	reqBody, err := json.Marshal(gatewayNotificationRequest{
		ScheduleTime: n.FireAt.Format(time.RFC3339),
		Title:        n.Title,
		Body:         n.Body,
		Tag:          n.Tag,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/notifications", c.baseURL)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.Debug("retrying notification registration",
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

		resp, err := c.doSchedule(ctx, url, reqBody, n)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}

	slog.Error("all retries exhausted for notification registration",
		slog.String("activity_id", n.Tag.ActivityID),
		slog.String("kind", n.Tag.Kind.String()),
		slog.Int("max_retries", c.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return nil, fmt.Errorf("failed to register notification after %d retries: %w", c.maxRetries, lastErr)
}

func (c *GatewayClient) doSchedule(ctx context.Context, url string, reqBody []byte, n *Notification) (*ScheduleResponse, error) {
	slog.Debug("registering notification to gateway",
		slog.String("url", url),
		slog.String("activity_id", n.Tag.ActivityID),
		slog.String("kind", n.Tag.Kind.String()),
		slog.Time("fire_at", n.FireAt),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("failed to reach notification gateway",
			slog.String("activity_id", n.Tag.ActivityID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		slog.Warn("unexpected status code from notification gateway",
			slog.String("activity_id", n.Tag.ActivityID),
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var gatewayResp gatewayNotificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&gatewayResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	scheduleTime, _ := time.Parse(time.RFC3339, gatewayResp.ScheduleTime)
	createTime, _ := time.Parse(time.RFC3339, gatewayResp.CreateTime)

	slog.Info("notification registered to gateway",
		slog.String("notification_id", gatewayResp.ID),
		slog.String("activity_id", n.Tag.ActivityID),
		slog.String("kind", n.Tag.Kind.String()),
	)

	return &ScheduleResponse{
		ID:           gatewayResp.ID,
		ScheduleTime: scheduleTime,
		CreateTime:   createTime,
	}, nil
}

func (c *GatewayClient) Cancel(ctx context.Context, notificationID string) error {
	url := fmt.Sprintf("%s/api/v1/notifications/%s", c.baseURL, notificationID)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.Debug("retrying notification cancellation",
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

		err := c.doCancel(ctx, url, notificationID)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	slog.Error("all retries exhausted for notification cancellation",
		slog.String("notification_id", notificationID),
		slog.Int("max_retries", c.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("failed to cancel notification after %d retries: %w", c.maxRetries, lastErr)
}

func (c *GatewayClient) doCancel(ctx context.Context, url, notificationID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Already fired or already cancelled; cancellation is idempotent.
	if resp.StatusCode == http.StatusNotFound {
		slog.Info("notification not found in gateway (may have fired)",
			slog.String("notification_id", notificationID),
		)
		return nil
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		slog.Warn("unexpected status code cancelling notification",
			slog.String("notification_id", notificationID),
			slog.Int("status_code", resp.StatusCode),
		)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	slog.Info("notification cancelled",
		slog.String("notification_id", notificationID),
	)
	return nil
}

func (c *GatewayClient) ListScheduled(ctx context.Context) ([]ScheduledNotification, error) {
	url := fmt.Sprintf("%s/api/v1/notifications", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("failed to list scheduled notifications",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("unexpected status code listing notifications",
			slog.String("url", url),
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var listResp gatewayListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	scheduled := make([]ScheduledNotification, 0, len(listResp.Notifications))
	for _, item := range listResp.Notifications {
		fireAt, _ := time.Parse(time.RFC3339, item.ScheduleTime)
		scheduled = append(scheduled, ScheduledNotification{
			ID:     item.ID,
			FireAt: fireAt,
			Title:  item.Title,
			Body:   item.Body,
			Tag:    item.Tag,
		})
	}

	return scheduled, nil
}
