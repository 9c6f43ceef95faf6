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

const throttleFileName = "rate_limit.json"

// FileThrottleRepository stores throttle entries as a JSON object keyed by
// email under a configured data directory.
type FileThrottleRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileThrottleRepository creates the data directory if needed and returns
// a repository backed by <dir>/rate_limit.json.
func NewFileThrottleRepository(dir string) (*FileThrottleRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.StorageError{Op: "create data directory", Err: err}
	}
	return &FileThrottleRepository{path: filepath.Join(dir, throttleFileName)}, nil
}

func (r *FileThrottleRepository) load() (map[string]domain.ThrottleEntry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]domain.ThrottleEntry{}, nil
		}
		return nil, &domain.StorageError{Op: "read rate limit file", Err: err}
	}
	entries := map[string]domain.ThrottleEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &domain.StorageError{Op: "decode rate limit file", Err: err}
	}
	return entries, nil
}

func (r *FileThrottleRepository) save(entries map[string]domain.ThrottleEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: "encode rate limit file", Err: err}
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return &domain.StorageError{Op: "write rate limit file", Err: err}
	}
	return nil
}

// Get returns the entry for email, or nil when absent.
func (r *FileThrottleRepository) Get(ctx context.Context, email string) (*domain.ThrottleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[email]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Put creates or replaces the entry for entry.Email.
func (r *FileThrottleRepository) Put(ctx context.Context, entry *domain.ThrottleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	entries[entry.Email] = *entry
	return r.save(entries)
}

// Delete removes the entry for email if present.
func (r *FileThrottleRepository) Delete(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := entries[email]; !ok {
		return nil
	}
	delete(entries, email)
	return r.save(entries)
}
