package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/loginhub/auth-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "login_throttle:"

// RedisThrottleRepository stores throttle entries as JSON values in Redis.
// Keys expire after the retention window so abandoned entries do not
// accumulate; locked entries keep their key alive until the lockout passes.
type RedisThrottleRepository struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisThrottleRepository returns a repository over client. retention
// bounds how long an entry may sit idle before Redis drops it.
func NewRedisThrottleRepository(client *redis.Client, retention time.Duration) *RedisThrottleRepository {
	if retention <= 0 {
		retention = time.Hour
	}
	return &RedisThrottleRepository{client: client, retention: retention}
}

func throttleKey(email string) string {
	return throttleKeyPrefix + email
}

// Get returns the entry for email, or nil when absent.
func (r *RedisThrottleRepository) Get(ctx context.Context, email string) (*domain.ThrottleEntry, error) {
	data, err := r.client.Get(ctx, throttleKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "redis get throttle entry", Err: err}
	}
	entry := &domain.ThrottleEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, &domain.StorageError{Op: "decode throttle entry", Err: err}
	}
	return entry, nil
}

// Put creates or replaces the entry for entry.Email.
func (r *RedisThrottleRepository) Put(ctx context.Context, entry *domain.ThrottleEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return &domain.StorageError{Op: "encode throttle entry", Err: err}
	}

	ttl := r.retention
	if entry.BlockedUntil != nil {
		if until := time.Until(*entry.BlockedUntil) + time.Minute; until > ttl {
			ttl = until
		}
	}

	if err := r.client.Set(ctx, throttleKey(entry.Email), data, ttl).Err(); err != nil {
		return &domain.StorageError{Op: "redis set throttle entry", Err: err}
	}
	return nil
}

// Delete removes the entry for email if present.
func (r *RedisThrottleRepository) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, throttleKey(email)).Err(); err != nil {
		return &domain.StorageError{Op: "redis delete throttle entry", Err: err}
	}
	return nil
}
