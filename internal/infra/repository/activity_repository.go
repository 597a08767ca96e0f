// Package repository persists activity records in Redis. Records are plain
// JSON values; the store is the source of truth for activity data while the
// notification primitive holds the derived schedule.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/habitline/notification-scheduling/internal/domain"
)

const activityKeyPrefix = "scheduling:activity:"

type activityRecord struct {
	ID        string     `json:"id"`
	EntryID   string     `json:"entry_id"`
	Title     string     `json:"title"`
	Note      string     `json:"note,omitempty"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	TimeOfDay string     `json:"time_of_day,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type activityRepository struct {
	client *redis.Client
}

func NewActivityRepository(client *redis.Client) domain.ActivityRepository {
	return &activityRepository{
		client: client,
	}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) (*domain.Activity, error) {
	if activity == nil {
		return nil, ErrInvalidActivityData
	}

	stored := *activity
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := r.save(ctx, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

func (r *activityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	key := activityKeyPrefix + id

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, err
	}

	var record activityRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, ErrInvalidActivityData
	}

	return &domain.Activity{
		ID:        record.ID,
		EntryID:   record.EntryID,
		Title:     record.Title,
		Note:      record.Note,
		StartDate: record.StartDate,
		EndDate:   record.EndDate,
		TimeOfDay: record.TimeOfDay,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

func (r *activityRepository) Update(ctx context.Context, activity *domain.Activity) error {
	if activity == nil || activity.ID == "" {
		return ErrInvalidActivityData
	}

	existing, err := r.GetByID(ctx, activity.ID)
	if err != nil {
		return err
	}

	stored := *activity
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()

	return r.save(ctx, &stored)
}

func (r *activityRepository) Delete(ctx context.Context, id string) error {
	key := activityKeyPrefix + id

	// Del is a no-op for missing keys, which keeps deletes idempotent.
	return r.client.Del(ctx, key).Err()
}

func (r *activityRepository) save(ctx context.Context, activity *domain.Activity) error {
	record := activityRecord{
		ID:        activity.ID,
		EntryID:   activity.EntryID,
		Title:     activity.Title,
		Note:      activity.Note,
		StartDate: activity.StartDate,
		EndDate:   activity.EndDate,
		TimeOfDay: activity.TimeOfDay,
		CreatedAt: activity.CreatedAt,
		UpdatedAt: activity.UpdatedAt,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return ErrInvalidActivityData
	}

	key := activityKeyPrefix + activity.ID
	return r.client.Set(ctx, key, data, 0).Err()
}
