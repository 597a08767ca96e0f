package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	schedulerMeterName = "scheduler.service"
)

type SchedulerMetrics struct {
	notificationsRegistered metric.Int64Counter
	notificationsCancelled  metric.Int64Counter
	materializationDuration metric.Float64Histogram
	occurrenceDays          metric.Int64Histogram
}

func NewSchedulerMetrics() (*SchedulerMetrics, error) {
	meter := otel.Meter(schedulerMeterName)

	notificationsRegistered, err := meter.Int64Counter(
		"scheduler_notifications_registered_total",
		metric.WithDescription("Total number of notification registration attempts"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	notificationsCancelled, err := meter.Int64Counter(
		"scheduler_notifications_cancelled_total",
		metric.WithDescription("Total number of notification cancellation attempts"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	materializationDuration, err := meter.Float64Histogram(
		"scheduler_materialization_duration_seconds",
		metric.WithDescription("Time spent materializing and registering one activity"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	occurrenceDays, err := meter.Int64Histogram(
		"scheduler_occurrence_days",
		metric.WithDescription("Occurrence days materialized per activity"),
		metric.WithUnit("{day}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 7, 14, 21, 30),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerMetrics{
		notificationsRegistered: notificationsRegistered,
		notificationsCancelled:  notificationsCancelled,
		materializationDuration: materializationDuration,
		occurrenceDays:          occurrenceDays,
	}, nil
}

func (m *SchedulerMetrics) RecordNotificationRegistered(ctx context.Context, kind, outcome string) {
	m.notificationsRegistered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func (m *SchedulerMetrics) RecordNotificationCancelled(ctx context.Context, outcome string) {
	m.notificationsCancelled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *SchedulerMetrics) RecordMaterializationDuration(ctx context.Context, duration time.Duration) {
	m.materializationDuration.Record(ctx, duration.Seconds())
}

func (m *SchedulerMetrics) RecordOccurrenceDays(ctx context.Context, days int) {
	m.occurrenceDays.Record(ctx, int64(days))
}
