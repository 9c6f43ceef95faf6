package store

import (
	"context"

	"github.com/loginhub/auth-service/internal/domain"
)

// UserRepository defines the interface for durable user storage. Lookups are
// case-sensitive exact matches on the stored email; no normalization is
// performed.
type UserRepository interface {
	// Create persists a new user. It returns domain.ErrUserExists when the
	// email is already taken and a *domain.StorageError on I/O failure.
	Create(ctx context.Context, user *domain.User) error

	// FindByEmail returns the user stored under email, or
	// domain.ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID returns the user with the given id, or domain.ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// ThrottleRepository defines the interface for per-email login attempt state.
type ThrottleRepository interface {
	// Get returns the entry for email, or (nil, nil) when no entry exists.
	Get(ctx context.Context, email string) (*domain.ThrottleEntry, error)

	// Put creates or replaces the entry for entry.Email.
	Put(ctx context.Context, entry *domain.ThrottleEntry) error

	// Delete removes the entry for email. Deleting an absent entry is not an
	// error.
	Delete(ctx context.Context, email string) error
}
