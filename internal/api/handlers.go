package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/loginhub/auth-service/internal/auth"
	"github.com/loginhub/auth-service/internal/domain"
	"github.com/loginhub/auth-service/internal/store"
	"github.com/loginhub/auth-service/internal/token"
	"github.com/loginhub/auth-service/pkg/rabbitmq"
	"go.uber.org/zap"
)

// AuthHandler serves the registration and login endpoints.
type AuthHandler struct {
	svc      *auth.Service
	users    store.UserRepository
	tokens   *token.Manager
	producer rabbitmq.Publisher
	logger   *zap.Logger
}

// NewAuthHandler creates a handler with its dependencies. producer may be a
// fallback publisher when the broker is unavailable.
func NewAuthHandler(svc *auth.Service, users store.UserRepository, tokens *token.Manager, producer rabbitmq.Publisher, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, users: users, tokens: tokens, producer: producer, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// HandleRegister creates a new user account.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.As(err, &validationErr):
			respondError(w, http.StatusBadRequest, validationErr.Reason)
		case errors.Is(err, domain.ErrUserExists):
			respondError(w, http.StatusConflict, "User already exists")
		default:
			// Storage failure: full detail stays in server logs, client gets
			// an opaque message.
			h.logger.Error("registration failed", zap.String("email", req.Email), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	event := domain.UserCreatedEvent{UserID: user.ID, Email: user.Email, Name: user.Name}
	if err := h.producer.Publish(r.Context(), "user_events", "user.created", event); err != nil {
		// The account exists; event delivery is advisory.
		h.logger.Warn("failed to publish user.created event",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"user":    user.Public(),
	})
}

// HandleLogin verifies credentials and issues a session token. It is the
// endpoint behind the session framework's credential-verification hook.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	result, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error("authentication failed", zap.String("email", req.Email), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	switch result.Outcome {
	case auth.OutcomeRateLimited:
		respondError(w, http.StatusTooManyRequests,
			fmt.Sprintf("Too many failed attempts. Please try again in %d minutes.", result.MinutesLeft))
	case auth.OutcomeInvalidCredentials:
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
	case auth.OutcomeSuccess:
		sessionToken, err := h.tokens.Issue(result.User)
		if err != nil {
			h.logger.Error("failed to issue session token", zap.String("user_id", result.User.ID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"token": sessionToken,
			"user": identityPayload{
				ID:    result.User.ID,
				Email: result.User.Email,
				Name:  result.User.Name,
			},
		})
	}
}

// HandleMe returns the authenticated caller's identity. Requires the session
// middleware.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID := SessionUserID(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "Unknown user")
			return
		}
		h.logger.Error("profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, identityPayload{ID: user.ID, Email: user.Email, Name: user.Name})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
