package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"linguaquest/internal/repository"
	"linguaquest/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserIDContextKey ContextKey = "userID"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	jwtSecret []byte
	limiter   *security.RateLimiter
	idem      *repository.IdempotencyRepository
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(jwtSecret string, limiter *security.RateLimiter, idem *repository.IdempotencyRepository) *Middleware {
	return &Middleware{
		jwtSecret: []byte(jwtSecret),
		limiter:   limiter,
		idem:      idem,
	}
}

// RequireAuth is middleware that requires a valid bearer token. The token's
// sub claim identifies the user and is placed in the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.authenticate(r)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "unauthorized", "Auth failed", err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next(w, r.WithContext(ctx))
	}
}

func (m *Middleware) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", fmt.Errorf("malformed Authorization header")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return sub, nil
}

// RateLimit rejects callers that exceed the configured request budget.
// Buckets are keyed by authenticated user when available, client IP otherwise.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := GetUserID(r.Context())
		if key == "" {
			key = security.GetClientIP(r)
		}

		if !m.limiter.Allow(key) {
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded", "", nil)
			return
		}

		next(w, r)
	}
}

// Idempotent replays the stored response for a request whose
// X-Idempotency-Key was already processed, and records the response of a
// first-time request after a successful handler run.
func (m *Middleware) Idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Idempotency-Key")
		if key == "" {
			next(w, r)
			return
		}

		stored, found, err := m.idem.Get(key)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "internal error", "Idempotency lookup failed", err)
			return
		}
		if found {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(stored)
			return
		}

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		if rec.status < 300 {
			if err := m.idem.Put(key, GetUserID(r.Context()), rec.body.Bytes()); err != nil {
				log.Printf("Failed to record idempotency key %s: %v", key, err)
			}
		}
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetUserID retrieves the authenticated user ID from the request context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(UserIDContextKey).(string)
	if !ok {
		return ""
	}
	return userID
}
