package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"linguaquest/internal/database"
	"linguaquest/internal/repository"
	"linguaquest/internal/security"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func newTestMiddleware(t *testing.T) *Middleware {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping middleware test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "mw.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	limiter := security.NewRateLimiter(3, time.Minute)
	idem := repository.NewIdempotencyRepository(db)
	return NewMiddleware(testSecret, limiter, idem)
}

func TestRequireAuth(t *testing.T) {
	mw := newTestMiddleware(t)

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"user": GetUserID(r.Context())})
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUser   string
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + signToken(t, testSecret, "u1"),
			wantStatus: http.StatusOK,
			wantUser:   "u1",
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong signing key",
			authHeader: "Bearer " + signToken(t, "other-secret", "u1"),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not-a-jwt",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/streak/tick", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantUser != "" {
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("invalid response body: %v", err)
				}
				if body["user"] != tt.wantUser {
					t.Errorf("context user = %q, want %q", body["user"], tt.wantUser)
				}
			}
		})
	}
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	mw := newTestMiddleware(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler ran with an expired token")
	})

	req := httptest.NewRequest("POST", "/streak/tick", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	mw := newTestMiddleware(t)

	handler := mw.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Budget is 3 per window in the test middleware
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/streak/tick", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest("POST", "/streak/tick", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-budget status = %d, want 429", rec.Code)
	}

	// A different caller has its own bucket
	req = httptest.NewRequest("POST", "/streak/tick", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other caller status = %d, want 200", rec.Code)
	}
}

func TestIdempotent(t *testing.T) {
	mw := newTestMiddleware(t)

	calls := 0
	handler := mw.Idempotent(func(w http.ResponseWriter, r *http.Request) {
		calls++
		respondWithJSON(w, http.StatusOK, map[string]int{"streak": calls})
	})

	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/streak/tick", nil)
		if key != "" {
			req.Header.Set("X-Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	t.Run("duplicate key replays first response", func(t *testing.T) {
		first := post("action-1")
		if first.Code != http.StatusOK {
			t.Fatalf("first status = %d, want 200", first.Code)
		}
		second := post("action-1")
		if second.Code != http.StatusOK {
			t.Fatalf("replay status = %d, want 200", second.Code)
		}
		if calls != 1 {
			t.Errorf("handler ran %d times, want 1", calls)
		}
		if first.Body.String() != second.Body.String() {
			t.Errorf("replay body %q differs from original %q", second.Body.String(), first.Body.String())
		}
	})

	t.Run("distinct keys run the handler again", func(t *testing.T) {
		post("action-2")
		if calls != 2 {
			t.Errorf("handler ran %d times, want 2", calls)
		}
	})

	t.Run("missing key bypasses the ledger", func(t *testing.T) {
		post("")
		post("")
		if calls != 4 {
			t.Errorf("handler ran %d times, want 4", calls)
		}
	})
}

func TestIdempotentSkipsFailedResponses(t *testing.T) {
	mw := newTestMiddleware(t)

	calls := 0
	handler := mw.Idempotent(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			respondWithError(w, http.StatusBadRequest, "invalid payload", "", nil)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"ok": "true"})
	})

	req := httptest.NewRequest("POST", "/progress/finish", nil)
	req.Header.Set("X-Idempotency-Key", "retry-me")
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("first status = %d, want 400", rec.Code)
	}

	// A failed attempt is not recorded, so the retry reaches the handler
	req = httptest.NewRequest("POST", "/progress/finish", nil)
	req.Header.Set("X-Idempotency-Key", "retry-me")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", rec.Code)
	}
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}
