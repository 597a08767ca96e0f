package domain

import "context"

//go:generate mockgen -source=repository.go -destination=mock.go -package=domain

// ActivityRepository is the persistence boundary for activity records.
// Create assigns an ID when the caller did not provide one.
type ActivityRepository interface {
	Create(ctx context.Context, activity *Activity) (*Activity, error)
	GetByID(ctx context.Context, id string) (*Activity, error)
	Update(ctx context.Context, activity *Activity) error
	Delete(ctx context.Context, id string) error
}
