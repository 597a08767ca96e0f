// Package handler exposes the activity HTTP surface. Persistence happens in
// the request path; notification registration and cancellation run as
// detached background work so the client never waits on the notification
// primitive.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/habitline/notification-scheduling/internal/domain"
	"github.com/habitline/notification-scheduling/internal/service/schedule"
)

type ActivityHandler struct {
	repo       domain.ActivityRepository
	scheduler  *schedule.Service
	background *schedule.Background
}

func NewActivityHandler(
	repo domain.ActivityRepository,
	scheduler *schedule.Service,
	background *schedule.Background,
) *ActivityHandler {
	return &ActivityHandler{
		repo:       repo,
		scheduler:  scheduler,
		background: background,
	}
}

type activityRequest struct {
	EntryID   string `json:"entry_id"`
	Title     string `json:"title" binding:"required"`
	Note      string `json:"note"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date"`
	TimeOfDay string `json:"time_of_day"`
}

type activityResponse struct {
	ID        string    `json:"id"`
	EntryID   string    `json:"entry_id,omitempty"`
	Title     string    `json:"title"`
	Note      string    `json:"note,omitempty"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date,omitempty"`
	TimeOfDay string    `json:"time_of_day,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *ActivityHandler) HandleCreate(c *gin.Context) {
	ctx := c.Request.Context()

	activity, ok := h.bindActivity(c)
	if !ok {
		return
	}

	created, err := h.repo.Create(ctx, activity)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create activity",
			slog.String("title", activity.Title),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "storage_error", "failed to create activity")
		return
	}

	slog.InfoContext(ctx, "activity created",
		slog.String("activity_id", created.ID),
		slog.Bool("has_time_of_day", created.HasTimeOfDay()),
	)

	h.background.Go("schedule-notifications", func(ctx context.Context) error {
		_, err := h.scheduler.ScheduleActivityNotifications(ctx, created)
		return err
	})

	c.JSON(http.StatusCreated, toResponse(created))
}

func (h *ActivityHandler) HandleGet(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	activity, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		slog.ErrorContext(ctx, "failed to get activity",
			slog.String("activity_id", id),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "storage_error", "failed to get activity")
		return
	}

	c.JSON(http.StatusOK, toResponse(activity))
}

func (h *ActivityHandler) HandleUpdate(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	activity, ok := h.bindActivity(c)
	if !ok {
		return
	}
	activity.ID = id

	if err := h.repo.Update(ctx, activity); err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		slog.ErrorContext(ctx, "failed to update activity",
			slog.String("activity_id", id),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "storage_error", "failed to update activity")
		return
	}

	updated, err := h.repo.GetByID(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to reload updated activity",
			slog.String("activity_id", id),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "storage_error", "failed to update activity")
		return
	}

	slog.InfoContext(ctx, "activity updated",
		slog.String("activity_id", id),
	)

	// Cancel-then-register so edits never leave stale notifications behind.
	h.background.Go("reschedule-notifications", func(ctx context.Context) error {
		_, err := h.scheduler.RescheduleActivityNotifications(ctx, updated)
		return err
	})

	c.JSON(http.StatusOK, toResponse(updated))
}

func (h *ActivityHandler) HandleDelete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		slog.ErrorContext(ctx, "failed to get activity for delete",
			slog.String("activity_id", id),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "storage_error", "failed to delete activity")
		return
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "failed to delete activity",
			slog.String("activity_id", id),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "storage_error", "failed to delete activity")
		return
	}

	slog.InfoContext(ctx, "activity deleted",
		slog.String("activity_id", id),
	)

	h.background.Go("cancel-notifications", func(ctx context.Context) error {
		_, err := h.scheduler.CancelActivityNotifications(ctx, id)
		return err
	})

	c.Status(http.StatusNoContent)
}

// bindActivity parses and validates the request body. Validation failures
// respond with 400 and return ok=false.
func (h *ActivityHandler) bindActivity(c *gin.Context) (*domain.Activity, bool) {
	ctx := c.Request.Context()

	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "request binding failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return nil, false
	}

	startDate, err := domain.ParseDayKey(req.StartDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid start_date, expected YYYY-MM-DD")
		return nil, false
	}

	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := domain.ParseDayKey(req.EndDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "invalid end_date, expected YYYY-MM-DD")
			return nil, false
		}
		endDate = &parsed
	}

	if req.TimeOfDay != "" {
		if _, err := time.Parse("15:04", req.TimeOfDay); err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "invalid time_of_day, expected HH:MM")
			return nil, false
		}
	}

	return &domain.Activity{
		EntryID:   req.EntryID,
		Title:     req.Title,
		Note:      req.Note,
		StartDate: startDate,
		EndDate:   endDate,
		TimeOfDay: req.TimeOfDay,
	}, true
}

func toResponse(activity *domain.Activity) activityResponse {
	resp := activityResponse{
		ID:        activity.ID,
		EntryID:   activity.EntryID,
		Title:     activity.Title,
		Note:      activity.Note,
		StartDate: domain.DayKey(activity.StartDate),
		TimeOfDay: activity.TimeOfDay,
		CreatedAt: activity.CreatedAt,
		UpdatedAt: activity.UpdatedAt,
	}
	if activity.EndDate != nil {
		resp.EndDate = domain.DayKey(*activity.EndDate)
	}
	return resp
}

func respondError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		"error":   errType,
		"message": message,
	})
}
