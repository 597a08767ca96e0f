package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/habitline/notification-scheduling/internal/clock"
	"github.com/habitline/notification-scheduling/internal/domain"
	"github.com/habitline/notification-scheduling/internal/infra/notifier"
	"github.com/habitline/notification-scheduling/internal/service/materialize"
)

func createTestService(n notifier.Notifier, now time.Time) *Service {
	return NewService(n, materialize.New(materialize.DefaultLeadMinutes), clock.NewFake(now), nil, nil, 4, 4)
}

func futureActivity(id string, days int) *domain.Activity {
	start := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	a := &domain.Activity{
		ID:        id,
		EntryID:   "entry-" + id,
		Title:     "Evening Walk",
		StartDate: start,
		TimeOfDay: "18:00",
	}
	if days > 1 {
		end := start.AddDate(0, 0, days-1)
		a.EndDate = &end
	}
	return a
}

func TestScheduleActivityNotifications_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	activity := futureActivity("act-1", 3)

	seen := make(chan domain.NotificationTag, 6)
	mockNotifier.EXPECT().
		Schedule(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, n *notifier.Notification) (*notifier.ScheduleResponse, error) {
			seen <- n.Tag
			return &notifier.ScheduleResponse{ID: "id-" + n.FireAt.Format("02-15:04")}, nil
		}).
		Times(6)

	svc := createTestService(mockNotifier, now)
	resp, err := svc.ScheduleActivityNotifications(context.Background(), activity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.RequestedCount != 6 {
		t.Errorf("RequestedCount: got %d, want 6", resp.RequestedCount)
	}
	if resp.RegisteredCount != 6 {
		t.Errorf("RegisteredCount: got %d, want 6", resp.RegisteredCount)
	}
	if resp.FailedCount != 0 {
		t.Errorf("FailedCount: got %d, want 0", resp.FailedCount)
	}
	if got := len(resp.RegisteredIDs()); got != 6 {
		t.Errorf("RegisteredIDs: got %d, want 6", got)
	}

	close(seen)
	for tag := range seen {
		if tag.ActivityID != "act-1" {
			t.Errorf("tag activity_id: got %q, want act-1", tag.ActivityID)
		}
	}
}

func TestScheduleActivityNotifications_PartialFailureIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	// 5 days x 2 = 10 requests; reject exactly the main on day 3.
	activity := futureActivity("act-1", 5)

	failFire := time.Date(2024, time.January, 12, 18, 0, 0, 0, time.UTC)
	mockNotifier.EXPECT().
		Schedule(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, n *notifier.Notification) (*notifier.ScheduleResponse, error) {
			if n.Tag.Kind == domain.NotificationKindMain && n.FireAt.Equal(failFire) {
				return nil, errors.New("quota exceeded")
			}
			return &notifier.ScheduleResponse{ID: "ok"}, nil
		}).
		Times(10)

	svc := createTestService(mockNotifier, now)
	resp, err := svc.ScheduleActivityNotifications(context.Background(), activity)
	if err != nil {
		t.Fatalf("per-item failure must not fail the run: %v", err)
	}

	if resp.RegisteredCount != 9 {
		t.Errorf("RegisteredCount: got %d, want 9", resp.RegisteredCount)
	}
	if resp.FailedCount != 1 {
		t.Errorf("FailedCount: got %d, want 1", resp.FailedCount)
	}

	failures := 0
	for _, item := range resp.Results {
		if !item.Success {
			failures++
			if item.Error == "" {
				t.Error("failed item is missing its error")
			}
		}
	}
	if failures != 1 {
		t.Errorf("failed items: got %d, want 1", failures)
	}
}

func TestScheduleActivityNotifications_UnreachablePrimitiveAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	activity := futureActivity("act-1", 10)

	mockNotifier.EXPECT().
		Schedule(gomock.Any(), gomock.Any()).
		Return(nil, notifier.ErrUnavailable).
		MinTimes(1)

	svc := createTestService(mockNotifier, now)
	resp, err := svc.ScheduleActivityNotifications(context.Background(), activity)
	if err == nil {
		t.Fatal("expected aggregate error, got nil")
	}
	if !errors.Is(err, notifier.ErrUnavailable) {
		t.Fatalf("got %v, want wrapped ErrUnavailable", err)
	}
	if resp == nil || resp.RegisteredCount != 0 {
		t.Errorf("unexpected partial response: %+v", resp)
	}
}

func TestScheduleActivityNotifications_TimelessActivity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)
	// No Schedule calls expected.

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	activity := futureActivity("act-1", 3)
	activity.TimeOfDay = ""

	svc := createTestService(mockNotifier, now)
	resp, err := svc.ScheduleActivityNotifications(context.Background(), activity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RequestedCount != 0 {
		t.Errorf("RequestedCount: got %d, want 0", resp.RequestedCount)
	}
}

func TestScheduleActivityNotifications_InvalidTimeOfDay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	activity := futureActivity("act-1", 1)
	activity.TimeOfDay = "six thirty"

	svc := createTestService(mockNotifier, now)
	_, err := svc.ScheduleActivityNotifications(context.Background(), activity)
	if !errors.Is(err, domain.ErrInvalidTimeFormat) {
		t.Fatalf("got %v, want ErrInvalidTimeFormat", err)
	}
}

func TestCancelActivityNotifications_TagScoped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)

	scheduled := []notifier.ScheduledNotification{
		{ID: "n-1", Tag: domain.NotificationTag{ActivityID: "act-1", Kind: domain.NotificationKindMain}},
		{ID: "n-2", Tag: domain.NotificationTag{ActivityID: "act-2", Kind: domain.NotificationKindMain}},
		{ID: "n-3", Tag: domain.NotificationTag{ActivityID: "act-1", Kind: domain.NotificationKindReminder}},
		{ID: "n-4", Tag: domain.NotificationTag{ActivityID: "act-3", Kind: domain.NotificationKindReminder}},
	}

	mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return(scheduled, nil)
	mockNotifier.EXPECT().Cancel(gomock.Any(), "n-1").Return(nil)
	mockNotifier.EXPECT().Cancel(gomock.Any(), "n-3").Return(nil)

	svc := createTestService(mockNotifier, time.Now())
	count, err := svc.CancelActivityNotifications(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("cancelled count: got %d, want 2", count)
	}
}

func TestCancelActivityNotifications_IdempotentCancels(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)

	scheduled := []notifier.ScheduledNotification{
		{ID: "gone-1", Tag: domain.NotificationTag{ActivityID: "act-1", Kind: domain.NotificationKindMain}},
	}

	mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return(scheduled, nil)
	// The notifier treats a missing id as success, so the count includes it.
	mockNotifier.EXPECT().Cancel(gomock.Any(), "gone-1").Return(nil)

	svc := createTestService(mockNotifier, time.Now())
	count, err := svc.CancelActivityNotifications(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("cancelled count: got %d, want 1", count)
	}
}

func TestCancelActivityNotifications_PerItemFailureNotCounted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)

	scheduled := []notifier.ScheduledNotification{
		{ID: "n-1", Tag: domain.NotificationTag{ActivityID: "act-1", Kind: domain.NotificationKindMain}},
		{ID: "n-2", Tag: domain.NotificationTag{ActivityID: "act-1", Kind: domain.NotificationKindReminder}},
	}

	mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return(scheduled, nil)
	mockNotifier.EXPECT().Cancel(gomock.Any(), "n-1").Return(nil)
	mockNotifier.EXPECT().Cancel(gomock.Any(), "n-2").Return(errors.New("backend hiccup"))

	svc := createTestService(mockNotifier, time.Now())
	count, err := svc.CancelActivityNotifications(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("per-item cancel failure must not fail the call: %v", err)
	}
	if count != 1 {
		t.Errorf("cancelled count: got %d, want 1", count)
	}
}

func TestCancelActivityNotifications_ListingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)
	mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return(nil, errors.New("listing down"))

	svc := createTestService(mockNotifier, time.Now())
	count, err := svc.CancelActivityNotifications(context.Background(), "act-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if count != 0 {
		t.Errorf("count: got %d, want 0", count)
	}
}

func TestCancelActivityNotifications_NoMatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)
	mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return([]notifier.ScheduledNotification{
		{ID: "n-1", Tag: domain.NotificationTag{ActivityID: "other", Kind: domain.NotificationKindMain}},
	}, nil)

	svc := createTestService(mockNotifier, time.Now())
	count, err := svc.CancelActivityNotifications(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("count: got %d, want 0", count)
	}
}

func TestRescheduleActivityNotifications_CancelsThenRegisters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	activity := futureActivity("act-1", 1)

	gomock.InOrder(
		mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return([]notifier.ScheduledNotification{
			{ID: "stale-1", Tag: domain.NotificationTag{ActivityID: "act-1", Kind: domain.NotificationKindMain}},
		}, nil),
		mockNotifier.EXPECT().Cancel(gomock.Any(), "stale-1").Return(nil),
	)
	mockNotifier.EXPECT().
		Schedule(gomock.Any(), gomock.Any()).
		Return(&notifier.ScheduleResponse{ID: "fresh"}, nil).
		Times(2)

	svc := createTestService(mockNotifier, now)
	resp, err := svc.RescheduleActivityNotifications(context.Background(), activity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RegisteredCount != 2 {
		t.Errorf("RegisteredCount: got %d, want 2", resp.RegisteredCount)
	}
}

func TestRescheduleActivityNotifications_ListingFailureStopsReschedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifier := notifier.NewMockNotifier(ctrl)
	mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return(nil, errors.New("listing down"))
	// No Schedule calls: rescheduling without cleanup would duplicate.

	svc := createTestService(mockNotifier, time.Now())
	if _, err := svc.RescheduleActivityNotifications(context.Background(), futureActivity("act-1", 1)); err == nil {
		t.Fatal("expected error, got nil")
	}
}
