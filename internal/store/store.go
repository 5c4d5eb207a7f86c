// Package store persists users, habits and completions.
package store

import (
	"context"
	"errors"

	"groovecal/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence surface used by the feed service, the HTTP API
// and the CLI. Implementations must be safe for concurrent use.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateWorkHours(ctx context.Context, userID string, wh *model.WorkHours) error

	CreateHabit(ctx context.Context, h *model.Habit) error
	GetHabit(ctx context.Context, id string) (*model.Habit, error)
	// ListHabits returns a user's habits, most recently updated first.
	ListHabits(ctx context.Context, userID string) ([]model.Habit, error)
	UpdateHabit(ctx context.Context, h *model.Habit) error
	DeleteHabit(ctx context.Context, id string) error

	CreateCompletion(ctx context.Context, c *model.Completion) error
	ListCompletions(ctx context.Context, userID string) ([]model.Completion, error)

	Close() error
}
