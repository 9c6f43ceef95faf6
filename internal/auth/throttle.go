// Package auth implements credential verification and login throttling.
//
// The throttle is keyed by email, not by client IP or device. That keeps the
// service free of network-layer state, but it means anyone who knows a
// victim's email can lock that account out by submitting bad passwords. This
// is an accepted tradeoff for the deployments this service targets; changing
// the key would change observable behavior for legitimate users.
package auth

import (
	"context"
	"time"

	"github.com/loginhub/auth-service/internal/domain"
	"github.com/loginhub/auth-service/internal/store"
)

const (
	// DefaultMaxAttempts is the number of consecutive failed logins that
	// triggers a lockout. Earlier revisions of the product used 3; the
	// shipped value is 5.
	DefaultMaxAttempts = 5

	// DefaultLockoutDuration is how long a locked email stays blocked.
	DefaultLockoutDuration = 15 * time.Minute
)

// Decision is the outcome of a throttle check.
type Decision struct {
	Allowed      bool
	Remaining    int
	BlockedUntil time.Time
}

// Throttle enforces the per-email failed-attempt budget over a
// ThrottleRepository.
type Throttle struct {
	repo        store.ThrottleRepository
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

// NewThrottle returns a Throttle with the given limits. Non-positive values
// fall back to the defaults.
func NewThrottle(repo store.ThrottleRepository, maxAttempts int, lockout time.Duration) *Throttle {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockoutDuration
	}
	return &Throttle{
		repo:        repo,
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         time.Now,
	}
}

// Check reports whether email may attempt a login now. An expired lockout is
// cleared as a side effect. An entry that reached the attempt limit without a
// recorded lockout (left over from an earlier run) gets one assigned here, so
// reaching the limit always implies a lockout window.
func (t *Throttle) Check(ctx context.Context, email string) (Decision, error) {
	entry, err := t.repo.Get(ctx, email)
	if err != nil {
		return Decision{}, err
	}
	if entry == nil {
		return Decision{Allowed: true, Remaining: t.maxAttempts}, nil
	}

	now := t.now()

	if entry.BlockedUntil != nil {
		if entry.BlockedUntil.After(now) {
			return Decision{BlockedUntil: *entry.BlockedUntil}, nil
		}
		// Lockout expired, clear the entry.
		if err := t.repo.Delete(ctx, email); err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: true, Remaining: t.maxAttempts}, nil
	}

	if entry.Attempts >= t.maxAttempts {
		until := now.Add(t.lockout)
		entry.BlockedUntil = &until
		if err := t.repo.Put(ctx, entry); err != nil {
			return Decision{}, err
		}
		return Decision{BlockedUntil: until}, nil
	}

	return Decision{Allowed: true, Remaining: t.maxAttempts - entry.Attempts}, nil
}

// RecordFailure increments the attempt counter for email, creating the entry
// if absent, and starts the lockout window once the limit is reached.
func (t *Throttle) RecordFailure(ctx context.Context, email string) error {
	entry, err := t.repo.Get(ctx, email)
	if err != nil {
		return err
	}

	now := t.now()
	if entry == nil {
		entry = &domain.ThrottleEntry{Email: email}
	}
	entry.Attempts++
	entry.LastAttempt = now

	if entry.Attempts >= t.maxAttempts {
		until := now.Add(t.lockout)
		entry.BlockedUntil = &until
	}

	return t.repo.Put(ctx, entry)
}

// Reset deletes the entry for email. Idempotent.
func (t *Throttle) Reset(ctx context.Context, email string) error {
	return t.repo.Delete(ctx, email)
}
