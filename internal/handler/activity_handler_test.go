package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"

	"github.com/habitline/notification-scheduling/internal/clock"
	"github.com/habitline/notification-scheduling/internal/domain"
	"github.com/habitline/notification-scheduling/internal/infra/notifier"
	"github.com/habitline/notification-scheduling/internal/service/materialize"
	"github.com/habitline/notification-scheduling/internal/service/schedule"
)

func setupRouter(t *testing.T, repo domain.ActivityRepository, n notifier.Notifier) (*gin.Engine, *schedule.Background) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	scheduler := schedule.NewService(n, materialize.New(materialize.DefaultLeadMinutes), clock.NewFake(now), nil, nil, 4, 4)
	background := schedule.NewBackground(5 * time.Second)

	h := NewActivityHandler(repo, scheduler, background)

	r := gin.New()
	v1 := r.Group("/api/v1")
	{
		v1.POST("/activities", h.HandleCreate)
		v1.GET("/activities/:id", h.HandleGet)
		v1.PUT("/activities/:id", h.HandleUpdate)
		v1.DELETE("/activities/:id", h.HandleDelete)
	}

	return r, background
}

func drainBackground(t *testing.T, background *schedule.Background) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := background.Wait(ctx); err != nil {
		t.Fatalf("background work did not finish: %v", err)
	}
}

func TestHandleCreateSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := domain.NewMockActivityRepository(ctrl)
	mockNotifier := notifier.NewMockNotifier(ctrl)

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, a *domain.Activity) (*domain.Activity, error) {
			created := *a
			created.ID = "act-1"
			created.CreatedAt = time.Now().UTC()
			created.UpdatedAt = created.CreatedAt
			return &created, nil
		})

	// Single day with time of day: one main and one reminder.
	mockNotifier.EXPECT().
		Schedule(gomock.Any(), gomock.Any()).
		Return(&notifier.ScheduleResponse{ID: "n-1"}, nil).
		Times(2)

	r, background := setupRouter(t, repo, mockNotifier)

	body := `{"entry_id":"entry-1","title":"Morning Run","start_date":"2024-01-10","time_of_day":"07:30"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		StartDate string `json:"start_date"`
		TimeOfDay string `json:"time_of_day"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "act-1" {
		t.Errorf("expected id act-1, got %s", resp.ID)
	}
	if resp.StartDate != "2024-01-10" {
		t.Errorf("expected start_date 2024-01-10, got %s", resp.StartDate)
	}

	drainBackground(t, background)
}

func TestHandleCreateDateOnlyActivitySkipsRegistration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := domain.NewMockActivityRepository(ctrl)
	mockNotifier := notifier.NewMockNotifier(ctrl)
	// No Schedule calls expected for a date-only activity.

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, a *domain.Activity) (*domain.Activity, error) {
			created := *a
			created.ID = "act-2"
			return &created, nil
		})

	r, background := setupRouter(t, repo, mockNotifier)

	body := `{"title":"Dentist","start_date":"2024-01-10"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	drainBackground(t, background)
}

func TestHandleCreateValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing title",
			body: `{"start_date":"2024-01-10"}`,
		},
		{
			name: "missing start_date",
			body: `{"title":"Run"}`,
		},
		{
			name: "malformed start_date",
			body: `{"title":"Run","start_date":"10/01/2024"}`,
		},
		{
			name: "malformed end_date",
			body: `{"title":"Run","start_date":"2024-01-10","end_date":"soon"}`,
		},
		{
			name: "malformed time_of_day",
			body: `{"title":"Run","start_date":"2024-01-10","time_of_day":"7am"}`,
		},
		{
			name: "not json",
			body: `title=Run`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := domain.NewMockActivityRepository(ctrl)
			mockNotifier := notifier.NewMockNotifier(ctrl)

			r, _ := setupRouter(t, repo, mockNotifier)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleGetSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := domain.NewMockActivityRepository(ctrl)
	mockNotifier := notifier.NewMockNotifier(ctrl)

	repo.EXPECT().
		GetByID(gomock.Any(), "act-1").
		Return(&domain.Activity{
			ID:        "act-1",
			Title:     "Morning Run",
			StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			TimeOfDay: "07:30",
		}, nil)

	r, _ := setupRouter(t, repo, mockNotifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities/act-1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleGetNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := domain.NewMockActivityRepository(ctrl)
	mockNotifier := notifier.NewMockNotifier(ctrl)

	repo.EXPECT().
		GetByID(gomock.Any(), "missing").
		Return(nil, domain.ErrActivityNotFound)

	r, _ := setupRouter(t, repo, mockNotifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities/missing", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleUpdateReschedules(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := domain.NewMockActivityRepository(ctrl)
	mockNotifier := notifier.NewMockNotifier(ctrl)

	updated := &domain.Activity{
		ID:        "act-1",
		Title:     "Evening Run",
		StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "19:00",
	}

	repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	repo.EXPECT().GetByID(gomock.Any(), "act-1").Return(updated, nil)

	// Reschedule cancels the stale set, then registers the new one.
	mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return([]notifier.ScheduledNotification{
		{ID: "stale-1", Tag: domain.NotificationTag{ActivityID: "act-1", Kind: domain.NotificationKindMain}},
	}, nil)
	mockNotifier.EXPECT().Cancel(gomock.Any(), "stale-1").Return(nil)
	mockNotifier.EXPECT().
		Schedule(gomock.Any(), gomock.Any()).
		Return(&notifier.ScheduleResponse{ID: "fresh"}, nil).
		Times(2)

	r, background := setupRouter(t, repo, mockNotifier)

	body := `{"title":"Evening Run","start_date":"2024-01-10","time_of_day":"19:00"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/activities/act-1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	drainBackground(t, background)
}

func TestHandleUpdateNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := domain.NewMockActivityRepository(ctrl)
	mockNotifier := notifier.NewMockNotifier(ctrl)

	repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(domain.ErrActivityNotFound)

	r, _ := setupRouter(t, repo, mockNotifier)

	body := `{"title":"Ghost","start_date":"2024-01-10"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/activities/missing", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleDeleteCancelsNotifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := domain.NewMockActivityRepository(ctrl)
	mockNotifier := notifier.NewMockNotifier(ctrl)

	repo.EXPECT().GetByID(gomock.Any(), "act-1").Return(&domain.Activity{ID: "act-1"}, nil)
	repo.EXPECT().Delete(gomock.Any(), "act-1").Return(nil)

	mockNotifier.EXPECT().ListScheduled(gomock.Any()).Return([]notifier.ScheduledNotification{
		{ID: "n-1", Tag: domain.NotificationTag{ActivityID: "act-1", Kind: domain.NotificationKindMain}},
		{ID: "n-2", Tag: domain.NotificationTag{ActivityID: "other", Kind: domain.NotificationKindMain}},
	}, nil)
	mockNotifier.EXPECT().Cancel(gomock.Any(), "n-1").Return(nil)

	r, background := setupRouter(t, repo, mockNotifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/activities/act-1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	drainBackground(t, background)
}

func TestHandleDeleteNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := domain.NewMockActivityRepository(ctrl)
	mockNotifier := notifier.NewMockNotifier(ctrl)

	repo.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, domain.ErrActivityNotFound)

	r, _ := setupRouter(t, repo, mockNotifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/activities/missing", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}
