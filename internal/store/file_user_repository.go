package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/loginhub/auth-service/internal/domain"
)

const usersFileName = "users.json"

// FileUserRepository stores users as a JSON document under a configured data
// directory. Reads and writes are serialized by a process-local mutex; this
// is the reference backend for single-process deployments, not a concurrent
// store.
type FileUserRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileUserRepository creates the data directory if needed and returns a
// repository backed by <dir>/users.json.
func NewFileUserRepository(dir string) (*FileUserRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.StorageError{Op: "create data directory", Err: err}
	}
	return &FileUserRepository{path: filepath.Join(dir, usersFileName)}, nil
}

func (r *FileUserRepository) load() ([]domain.User, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "read users file", Err: err}
	}
	var users []domain.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, &domain.StorageError{Op: "decode users file", Err: err}
	}
	return users, nil
}

func (r *FileUserRepository) save(users []domain.User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: "encode users file", Err: err}
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return &domain.StorageError{Op: "write users file", Err: err}
	}
	return nil
}

// Create appends the user, failing when the email is already present.
func (r *FileUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Email == user.Email {
			return domain.ErrUserExists
		}
	}
	users = append(users, *user)
	return r.save(users)
}

// FindByEmail performs a case-sensitive exact match on the stored email.
func (r *FileUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			u := users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// FindByID returns the user with the given id.
func (r *FileUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			u := users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
