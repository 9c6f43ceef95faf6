package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/loginhub/auth-service/internal/auth"
	"github.com/loginhub/auth-service/internal/store"
	"github.com/loginhub/auth-service/internal/token"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	exchanges   []string
	routingKeys []string
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.exchanges = append(p.exchanges, exchange)
	p.routingKeys = append(p.routingKeys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() {}

func newTestRouter(t *testing.T) (http.Handler, *recordingPublisher) {
	t.Helper()

	users := store.NewMemoryUserRepository()
	throttle := auth.NewThrottle(store.NewMemoryThrottleRepository(), auth.DefaultMaxAttempts, auth.DefaultLockoutDuration)
	svc := auth.NewService(users, throttle, zap.NewNop())
	tokens := token.NewManager([]byte("test-secret"), time.Hour)
	producer := &recordingPublisher{}
	handler := NewAuthHandler(svc, users, tokens, producer, zap.NewNop())

	r := chi.NewRouter()
	r.Post("/register", handler.HandleRegister)
	r.Post("/login", handler.HandleLogin)
	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(tokens))
		r.Get("/me", handler.HandleMe)
	})
	return r, producer
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestHandleRegister(t *testing.T) {
	t.Run("creates user and publishes event", func(t *testing.T) {
		router, producer := newTestRouter(t)

		rec, body := doJSON(t, router, http.MethodPost, "/register",
			map[string]string{"email": "a@b.com", "password": "secret1", "name": "Ann"}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %v)", rec.Code, body)
		}
		if body["message"] != "User created successfully" {
			t.Fatalf("message = %v", body["message"])
		}

		user, ok := body["user"].(map[string]interface{})
		if !ok {
			t.Fatalf("missing user payload: %v", body)
		}
		if user["email"] != "a@b.com" || user["name"] != "Ann" {
			t.Fatalf("unexpected user payload: %v", user)
		}
		if user["id"] == "" || user["id"] == nil {
			t.Fatal("expected generated id in payload")
		}
		if user["createdAt"] == nil {
			t.Fatal("expected createdAt in payload")
		}
		if _, present := user["password"]; present {
			t.Fatal("password hash must not appear in the response")
		}

		if len(producer.routingKeys) != 1 || producer.routingKeys[0] != "user.created" {
			t.Fatalf("expected one user.created event, got %v", producer.routingKeys)
		}
	})

	t.Run("validation failures map to 400", func(t *testing.T) {
		router, _ := newTestRouter(t)

		tests := []struct {
			name      string
			payload   map[string]string
			wantError string
		}{
			{name: "missing_fields", payload: map[string]string{"email": "a@b.com"}, wantError: "Email, password, and name are required"},
			{name: "bad_email", payload: map[string]string{"email": "nope", "password": "secret1", "name": "Ann"}, wantError: "Invalid email format"},
			{name: "short_password", payload: map[string]string{"email": "a@b.com", "password": "x", "name": "Ann"}, wantError: "Password must be at least 6 characters long"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec, body := doJSON(t, router, http.MethodPost, "/register", tt.payload, nil)
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("status = %d, want 400", rec.Code)
				}
				if body["error"] != tt.wantError {
					t.Fatalf("error = %v, want %q", body["error"], tt.wantError)
				}
			})
		}
	})

	t.Run("duplicate email maps to 409", func(t *testing.T) {
		router, _ := newTestRouter(t)
		payload := map[string]string{"email": "a@b.com", "password": "secret1", "name": "Ann"}

		rec, _ := doJSON(t, router, http.MethodPost, "/register", payload, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("first register status = %d, want 201", rec.Code)
		}
		rec, body := doJSON(t, router, http.MethodPost, "/register", payload, nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("second register status = %d, want 409", rec.Code)
		}
		if body["error"] != "User already exists" {
			t.Fatalf("error = %v, want \"User already exists\"", body["error"])
		}
	})
}

func TestHandleLogin(t *testing.T) {
	register := func(t *testing.T, router http.Handler) {
		t.Helper()
		rec, _ := doJSON(t, router, http.MethodPost, "/register",
			map[string]string{"email": "a@b.com", "password": "secret1", "name": "Ann"}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("register status = %d, want 201", rec.Code)
		}
	}

	t.Run("success returns token and identity", func(t *testing.T) {
		router, _ := newTestRouter(t)
		register(t, router)

		rec, body := doJSON(t, router, http.MethodPost, "/login",
			map[string]string{"email": "a@b.com", "password": "secret1"}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %v)", rec.Code, body)
		}
		if body["token"] == nil || body["token"] == "" {
			t.Fatal("expected a session token")
		}
		user, ok := body["user"].(map[string]interface{})
		if !ok || user["email"] != "a@b.com" || user["name"] != "Ann" {
			t.Fatalf("unexpected identity payload: %v", body["user"])
		}
		if _, present := user["password"]; present {
			t.Fatal("password hash must not appear in the response")
		}
	})

	t.Run("missing fields map to 400", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rec, body := doJSON(t, router, http.MethodPost, "/login",
			map[string]string{"email": "a@b.com"}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if body["error"] != "Email and password are required" {
			t.Fatalf("error = %v", body["error"])
		}
	})

	t.Run("wrong password and unknown email both map to 401", func(t *testing.T) {
		router, _ := newTestRouter(t)
		register(t, router)

		for _, payload := range []map[string]string{
			{"email": "a@b.com", "password": "wrong-1"},
			{"email": "nobody@b.com", "password": "secret1"},
		} {
			rec, body := doJSON(t, router, http.MethodPost, "/login", payload, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if body["error"] != "Invalid email or password" {
				t.Fatalf("error = %v", body["error"])
			}
		}
	})

	t.Run("lockout maps to 429 with minutes left", func(t *testing.T) {
		router, _ := newTestRouter(t)
		register(t, router)

		for i := 0; i < auth.DefaultMaxAttempts; i++ {
			rec, _ := doJSON(t, router, http.MethodPost, "/login",
				map[string]string{"email": "a@b.com", "password": "wrong"}, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
			}
		}

		rec, body := doJSON(t, router, http.MethodPost, "/login",
			map[string]string{"email": "a@b.com", "password": "secret1"}, nil)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want 429", rec.Code)
		}
		want := fmt.Sprintf("Too many failed attempts. Please try again in %d minutes.", int(auth.DefaultLockoutDuration/time.Minute))
		if body["error"] != want {
			t.Fatalf("error = %v, want %q", body["error"], want)
		}
	})
}

func TestHandleMe(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/register",
		map[string]string{"email": "a@b.com", "password": "secret1", "name": "Ann"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", rec.Code)
	}
	rec, body := doJSON(t, router, http.MethodPost, "/login",
		map[string]string{"email": "a@b.com", "password": "secret1"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", rec.Code)
	}
	sessionToken, _ := body["token"].(string)

	t.Run("valid token", func(t *testing.T) {
		rec, body := doJSON(t, router, http.MethodGet, "/me", nil,
			map[string]string{"Authorization": "Bearer " + sessionToken})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %v)", rec.Code, body)
		}
		if body["email"] != "a@b.com" || body["name"] != "Ann" {
			t.Fatalf("unexpected identity: %v", body)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodGet, "/me", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodGet, "/me", nil,
			map[string]string{"Authorization": "Bearer not.a.jwt"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodGet, "/me", nil,
			map[string]string{"Authorization": "Basic abc"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}
