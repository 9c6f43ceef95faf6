package store

import (
	"context"
	"sync"

	"github.com/loginhub/auth-service/internal/domain"
)

// MemoryUserRepository is an in-process UserRepository. It backs tests and
// the "memory" storage driver for ephemeral deployments.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

// NewMemoryUserRepository returns an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byEmail: map[string]domain.User{}}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrUserExists
	}
	r.byEmail[user.Email] = *user
	return nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byEmail {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// MemoryThrottleRepository is an in-process ThrottleRepository.
type MemoryThrottleRepository struct {
	mu      sync.RWMutex
	entries map[string]domain.ThrottleEntry
}

// NewMemoryThrottleRepository returns an empty in-memory throttle repository.
func NewMemoryThrottleRepository() *MemoryThrottleRepository {
	return &MemoryThrottleRepository{entries: map[string]domain.ThrottleEntry{}}
}

func (r *MemoryThrottleRepository) Get(ctx context.Context, email string) (*domain.ThrottleEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[email]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (r *MemoryThrottleRepository) Put(ctx context.Context, entry *domain.ThrottleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[entry.Email] = *entry
	return nil
}

func (r *MemoryThrottleRepository) Delete(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, email)
	return nil
}
