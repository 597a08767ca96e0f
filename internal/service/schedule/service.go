// Package schedule orchestrates notification registration and cancellation
// for activities: it materializes requests, registers them with the
// notification primitive, and tears them down again by activity tag.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/habitline/notification-scheduling/internal/clock"
	"github.com/habitline/notification-scheduling/internal/domain"
	"github.com/habitline/notification-scheduling/internal/infra/notifier"
	"github.com/habitline/notification-scheduling/internal/observability/metrics"
	"github.com/habitline/notification-scheduling/internal/service/materialize"
)

const defaultConcurrency = 8

type Service struct {
	notifier            notifier.Notifier
	materializer        *materialize.Materializer
	clk                 clock.Clock
	schedulerMetrics    *metrics.SchedulerMetrics
	recorder            domain.ScheduleResultRecorder
	registerConcurrency int
	cancelConcurrency   int
}

func NewService(
	n notifier.Notifier,
	materializer *materialize.Materializer,
	clk clock.Clock,
	schedulerMetrics *metrics.SchedulerMetrics,
	recorder domain.ScheduleResultRecorder,
	registerConcurrency int,
	cancelConcurrency int,
) *Service {
	if registerConcurrency <= 0 {
		registerConcurrency = defaultConcurrency
	}
	if cancelConcurrency <= 0 {
		cancelConcurrency = defaultConcurrency
	}
	return &Service{
		notifier:            n,
		materializer:        materializer,
		clk:                 clk,
		schedulerMetrics:    schedulerMetrics,
		recorder:            recorder,
		registerConcurrency: registerConcurrency,
		cancelConcurrency:   cancelConcurrency,
	}
}

// ScheduleActivityNotifications materializes and registers notifications for
// every future occurrence of the activity. Registrations are independent:
// one rejected request is recorded as a per-item failure and does not stop
// its siblings. Only an unreachable notification primitive aborts the run;
// the partial response is returned alongside the aggregate error.
func (s *Service) ScheduleActivityNotifications(ctx context.Context, activity *domain.Activity) (*Response, error) {
	if s.notifier == nil {
		slog.WarnContext(ctx, "notifier not configured, skipping registration",
			slog.String("activity_id", activity.ID),
		)
		return &Response{ActivityID: activity.ID}, nil
	}

	started := time.Now()
	now := s.clk.Now()

	requests, err := s.materializer.Notifications(activity, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to materialize notifications",
			slog.String("activity_id", activity.ID),
			slog.String("time_of_day", activity.TimeOfDay),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	resp := &Response{
		ActivityID:     activity.ID,
		RequestedCount: len(requests),
		Results:        make([]ResultItem, len(requests)),
	}

	if len(requests) == 0 {
		slog.InfoContext(ctx, "no future occurrences to register",
			slog.String("activity_id", activity.ID),
		)
		return resp, nil
	}

	slog.DebugContext(ctx, "materialized notification requests",
		slog.String("activity_id", activity.ID),
		slog.Int("request_count", len(requests)),
		slog.Time("now", now),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.registerConcurrency)

	for i, req := range requests {
		g.Go(func() error {
			return s.registerOne(gctx, req, &resp.Results[i])
		})
	}

	aggErr := g.Wait()

	for _, item := range resp.Results {
		if item.Success {
			resp.RegisteredCount++
		} else {
			resp.FailedCount++
		}
	}

	s.recordRunResults(ctx, activity.ID, "register", resp.Results)

	if s.schedulerMetrics != nil {
		s.schedulerMetrics.RecordMaterializationDuration(ctx, time.Since(started))
		s.schedulerMetrics.RecordOccurrenceDays(ctx, occurrenceDayCount(requests))
	}

	if aggErr != nil {
		slog.ErrorContext(ctx, "notification registration aborted",
			slog.String("activity_id", activity.ID),
			slog.Int("registered_count", resp.RegisteredCount),
			slog.Int("requested_count", resp.RequestedCount),
			slog.String("error", aggErr.Error()),
		)
		return resp, fmt.Errorf("notification service unreachable: %w", aggErr)
	}

	slog.InfoContext(ctx, "notification registration completed",
		slog.String("activity_id", activity.ID),
		slog.Int("requested_count", resp.RequestedCount),
		slog.Int("registered_count", resp.RegisteredCount),
		slog.Int("failed_count", resp.FailedCount),
	)

	return resp, nil
}

func (s *Service) registerOne(ctx context.Context, req domain.NotificationRequest, out *ResultItem) error {
	out.Kind = req.Kind
	out.FireAt = req.FireAt

	scheduled, err := s.notifier.Schedule(ctx, &notifier.Notification{
		FireAt: req.FireAt,
		Title:  req.Title,
		Body:   req.Body,
		Tag:    req.Tag,
	})
	if err != nil {
		out.Error = err.Error()
		if s.schedulerMetrics != nil {
			s.schedulerMetrics.RecordNotificationRegistered(ctx, req.Kind.String(), "failed")
		}

		// An unreachable primitive aborts the siblings; a plain rejection
		// of this one request does not.
		if errors.Is(err, notifier.ErrUnavailable) {
			return err
		}

		slog.WarnContext(ctx, "failed to register notification",
			slog.String("activity_id", req.Tag.ActivityID),
			slog.String("kind", req.Kind.String()),
			slog.Time("fire_at", req.FireAt),
			slog.String("error", err.Error()),
		)
		return nil
	}

	out.NotificationID = scheduled.ID
	out.Success = true

	if s.schedulerMetrics != nil {
		s.schedulerMetrics.RecordNotificationRegistered(ctx, req.Kind.String(), "success")
	}

	return nil
}

// CancelActivityNotifications lists every scheduled notification once, then
// cancels those tagged with the activity id. It returns the number actually
// cancelled; per-item cancel failures are logged and simply not counted.
func (s *Service) CancelActivityNotifications(ctx context.Context, activityID string) (int, error) {
	if s.notifier == nil {
		slog.WarnContext(ctx, "notifier not configured, skipping cancellation",
			slog.String("activity_id", activityID),
		)
		return 0, nil
	}

	scheduled, err := s.notifier.ListScheduled(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list scheduled notifications",
			slog.String("activity_id", activityID),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("list scheduled notifications: %w", err)
	}

	matches := make([]notifier.ScheduledNotification, 0)
	for _, n := range scheduled {
		if n.Tag.BelongsTo(activityID) {
			matches = append(matches, n)
		}
	}

	slog.DebugContext(ctx, "found notifications to cancel",
		slog.String("activity_id", activityID),
		slog.Int("scheduled_total", len(scheduled)),
		slog.Int("match_count", len(matches)),
	)

	if len(matches) == 0 {
		return 0, nil
	}

	var cancelled atomic.Int64
	records := make([]domain.ScheduleResultRecord, len(matches))

	g := new(errgroup.Group)
	g.SetLimit(s.cancelConcurrency)

	for i, n := range matches {
		g.Go(func() error {
			records[i] = domain.ScheduleResultRecord{
				ActivityID:     activityID,
				Kind:           n.Tag.Kind.String(),
				Phase:          "cancel",
				FireAt:         n.FireAt,
				NotificationID: n.ID,
			}

			if err := s.notifier.Cancel(ctx, n.ID); err != nil {
				records[i].Outcome = "failed"
				records[i].Error = err.Error()
				if s.schedulerMetrics != nil {
					s.schedulerMetrics.RecordNotificationCancelled(ctx, "failed")
				}
				slog.WarnContext(ctx, "failed to cancel notification",
					slog.String("activity_id", activityID),
					slog.String("notification_id", n.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}

			records[i].Outcome = "success"
			cancelled.Add(1)
			if s.schedulerMetrics != nil {
				s.schedulerMetrics.RecordNotificationCancelled(ctx, "success")
			}
			return nil
		})
	}

	_ = g.Wait()

	if s.recorder != nil {
		if err := s.recorder.RecordRunResults(ctx, records); err != nil {
			slog.WarnContext(ctx, "failed to record cancellation results",
				slog.String("activity_id", activityID),
				slog.String("error", err.Error()),
			)
		}
	}

	count := int(cancelled.Load())
	slog.InfoContext(ctx, "activity notifications cancelled",
		slog.String("activity_id", activityID),
		slog.Int("match_count", len(matches)),
		slog.Int("cancelled_count", count),
	)

	return count, nil
}

// RescheduleActivityNotifications cancels the activity's current
// notifications and registers a fresh set, in that order. Used by the update
// path so edits never leave stale notifications behind.
func (s *Service) RescheduleActivityNotifications(ctx context.Context, activity *domain.Activity) (*Response, error) {
	if _, err := s.CancelActivityNotifications(ctx, activity.ID); err != nil {
		slog.WarnContext(ctx, "failed to cancel previous notifications before reschedule",
			slog.String("activity_id", activity.ID),
			slog.String("error", err.Error()),
		)
		// Continuing could duplicate notifications; better to surface.
		return nil, err
	}

	return s.ScheduleActivityNotifications(ctx, activity)
}

func (s *Service) recordRunResults(ctx context.Context, activityID, phase string, results []ResultItem) {
	if s.recorder == nil || len(results) == 0 {
		return
	}

	records := make([]domain.ScheduleResultRecord, len(results))
	for i, item := range results {
		outcome := "failed"
		if item.Success {
			outcome = "success"
		}
		records[i] = domain.ScheduleResultRecord{
			ActivityID:     activityID,
			Kind:           item.Kind.String(),
			Phase:          phase,
			FireAt:         item.FireAt,
			Outcome:        outcome,
			NotificationID: item.NotificationID,
			Error:          item.Error,
		}
	}

	if err := s.recorder.RecordRunResults(ctx, records); err != nil {
		slog.WarnContext(ctx, "failed to record run results",
			slog.String("activity_id", activityID),
			slog.String("phase", phase),
			slog.String("error", err.Error()),
		)
	}
}

func occurrenceDayCount(requests []domain.NotificationRequest) int {
	days := 0
	for _, req := range requests {
		if req.Kind == domain.NotificationKindMain {
			days++
		}
	}
	return days
}
