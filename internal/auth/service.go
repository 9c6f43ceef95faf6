package auth

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/loginhub/auth-service/internal/domain"
	"github.com/loginhub/auth-service/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the product has always used for stored
// hashes. Raising it invalidates no existing hashes but slows registration.
const bcryptCost = 10

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Outcome classifies an authentication attempt.
type Outcome uint8

const (
	// OutcomeSuccess means the credentials matched a registered user.
	OutcomeSuccess Outcome = iota
	// OutcomeInvalidCredentials covers both unknown emails and wrong
	// passwords; callers must not distinguish the two.
	OutcomeInvalidCredentials
	// OutcomeRateLimited means the email is inside a lockout window.
	OutcomeRateLimited
)

// Result is the typed outcome of Authenticate. User is set only on success;
// MinutesLeft only when rate limited.
type Result struct {
	Outcome     Outcome
	User        *domain.User
	MinutesLeft int
}

// Service sequences the login throttle and the credential store into single
// login and registration decisions.
type Service struct {
	users    store.UserRepository
	throttle *Throttle
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the authentication service over the given repositories.
func NewService(users store.UserRepository, throttle *Throttle, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		throttle: throttle,
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate verifies email and password. Business outcomes (bad
// credentials, rate limiting) come back in the Result; the error return is
// reserved for storage failures.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Result, error) {
	decision, err := s.throttle.Check(ctx, email)
	if err != nil {
		return Result{}, err
	}
	if !decision.Allowed {
		minutes := minutesUntil(decision.BlockedUntil, s.now())
		s.logger.Info("login attempt rejected by throttle",
			zap.String("email", email),
			zap.Int("minutes_left", minutes))
		return Result{Outcome: OutcomeRateLimited, MinutesLeft: minutes}, nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same failure path as a wrong password so responses carry no
			// user-enumeration signal.
			if err := s.throttle.RecordFailure(ctx, email); err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeInvalidCredentials}, nil
		}
		return Result{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		if err := s.throttle.RecordFailure(ctx, email); err != nil {
			return Result{}, err
		}
		s.logger.Info("login failed", zap.String("email", email))
		return Result{Outcome: OutcomeInvalidCredentials}, nil
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		return Result{}, err
	}

	s.logger.Info("login succeeded", zap.String("user_id", user.ID))
	return Result{Outcome: OutcomeSuccess, User: user}, nil
}

// Register validates the input and creates a new user. Validation failures
// are *domain.ValidationError; a taken email is domain.ErrUserExists.
func (s *Service) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	if email == "" || password == "" || name == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "Email, password, and name are required"}
	}
	if !emailPattern.MatchString(email) {
		return nil, &domain.ValidationError{Field: "email", Reason: "Invalid email format"}
	}
	if len(password) < minPasswordLength {
		return nil, &domain.ValidationError{Field: "password", Reason: "Password must be at least 6 characters long"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, &domain.StorageError{Op: "hash password", Err: err}
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// minutesUntil is the whole-minute ceiling of the time left before until.
func minutesUntil(until, now time.Time) int {
	left := until.Sub(now)
	if left <= 0 {
		return 0
	}
	minutes := int((left + time.Minute - 1) / time.Minute)
	return minutes
}
