package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlopez-dev/authhub/internal/config"
	"github.com/mlopez-dev/authhub/internal/db"
	apphttp "github.com/mlopez-dev/authhub/internal/http"
	"github.com/mlopez-dev/authhub/internal/queue/redisclient"
)

// End-to-end flow against a real database. Skipped unless TEST_DB_DSN
// points at a reachable postgres.

func testConfig() config.Config {
	return config.Config{
		Env:           "test",
		JWTSecret:     "test-secret-key",
		SessionTTL:    time.Hour,
		ResetTokenTTL: time.Hour,
		AppBaseURL:    "http://localhost:3000",
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping integration test")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		t.Skipf("database unreachable: %v", err)
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("migrate failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redisC := redisclient.New(redisclient.Config{Addr: "127.0.0.1:6379"})

	router := apphttp.NewRouter(testConfig(), logger, pool, redisC)

	t.Cleanup(func() {
		_ = redisC.Close()
		pool.Close()
	})

	return router, pool
}

func postJSON(t *testing.T, r *gin.Engine, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCredentialFlow(t *testing.T) {
	r, pool := setupRouter(t)

	email := fmt.Sprintf("flow-%d@example.com", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE email = $1`, email)
	})

	// register
	w := postJSON(t, r, "/api/auth/register",
		`{"email": "`+email+`", "password": "long-enough", "name": "Flow"}`, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("register got %d body=%s", w.Code, w.Body.String())
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("register did not set a session cookie")
	}

	// the fresh session works against an authenticated endpoint
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)

	if w2.Code != http.StatusOK {
		t.Fatalf("me got %d body=%s", w2.Code, w2.Body.String())
	}

	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &me); err != nil {
		t.Fatalf("me unmarshal failed: %v", err)
	}
	if me.Email != email || me.Role != "user" {
		t.Fatalf("unexpected claims: %+v", me)
	}

	// duplicate registration conflicts
	w3 := postJSON(t, r, "/api/auth/register",
		`{"email": "`+email+`", "password": "long-enough", "name": "Flow"}`, nil)
	if w3.Code != http.StatusConflict {
		t.Fatalf("duplicate register got %d, want 409, body=%s", w3.Code, w3.Body.String())
	}

	// login with the registered credentials
	w4 := postJSON(t, r, "/api/auth/login",
		`{"email": "`+email+`", "password": "long-enough"}`, nil)
	if w4.Code != http.StatusOK {
		t.Fatalf("login got %d body=%s", w4.Code, w4.Body.String())
	}

	// wrong password fails
	w5 := postJSON(t, r, "/api/auth/login",
		`{"email": "`+email+`", "password": "wrong-password"}`, nil)
	if w5.Code != http.StatusUnauthorized {
		t.Fatalf("bad login got %d, want 401, body=%s", w5.Code, w5.Body.String())
	}

	// a plain user cannot reach the admin directory
	req6 := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	for _, c := range cookies {
		req6.AddCookie(c)
	}
	w6 := httptest.NewRecorder()
	r.ServeHTTP(w6, req6)

	if w6.Code != http.StatusForbidden {
		t.Fatalf("admin list as user got %d, want 403, body=%s", w6.Code, w6.Body.String())
	}
}

func TestPasswordResetFlow(t *testing.T) {
	r, pool := setupRouter(t)

	email := fmt.Sprintf("reset-%d@example.com", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE email = $1`, email)
	})

	if w := postJSON(t, r, "/api/auth/register",
		`{"email": "`+email+`", "password": "original-pass", "name": "Reset"}`, nil); w.Code != http.StatusCreated {
		t.Fatalf("register got %d body=%s", w.Code, w.Body.String())
	}

	if w := postJSON(t, r, "/api/password/forgot", `{"email": "`+email+`"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("forgot got %d body=%s", w.Code, w.Body.String())
	}

	// the handler never returns the token; read it back like the mail worker would
	var token string
	err := pool.QueryRow(context.Background(),
		`SELECT reset_token FROM users WHERE email = $1`, email).Scan(&token)
	if err != nil || token == "" {
		t.Fatalf("reset token not stored: %v", err)
	}

	if w := postJSON(t, r, "/api/password/reset",
		`{"token": "`+token+`", "password": "replacement-pass"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("reset got %d body=%s", w.Code, w.Body.String())
	}

	// replaying the consumed token fails
	if w := postJSON(t, r, "/api/password/reset",
		`{"token": "`+token+`", "password": "replacement-pass-2"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("replay got %d, want 400, body=%s", w.Code, w.Body.String())
	}

	// old password is dead, new one works
	if w := postJSON(t, r, "/api/auth/login",
		`{"email": "`+email+`", "password": "original-pass"}`, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("old password login got %d, want 401", w.Code)
	}
	if w := postJSON(t, r, "/api/auth/login",
		`{"email": "`+email+`", "password": "replacement-pass"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("new password login got %d body=%s", w.Code, w.Body.String())
	}
}

func resetTokenFor(t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()

	var token string
	err := pool.QueryRow(context.Background(),
		`SELECT reset_token FROM users WHERE email = $1`, email).Scan(&token)
	if err != nil || token == "" {
		t.Fatalf("reset token not stored: %v", err)
	}
	return token
}

// A second reset request overwrites the stored token, so the earlier link
// stops working even though it has not expired.
func TestPasswordResetFlow_NewRequestInvalidatesOldToken(t *testing.T) {
	r, pool := setupRouter(t)

	email := fmt.Sprintf("reset-overwrite-%d@example.com", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE email = $1`, email)
	})

	if w := postJSON(t, r, "/api/auth/register",
		`{"email": "`+email+`", "password": "original-pass", "name": "Overwrite"}`, nil); w.Code != http.StatusCreated {
		t.Fatalf("register got %d body=%s", w.Code, w.Body.String())
	}

	if w := postJSON(t, r, "/api/password/forgot", `{"email": "`+email+`"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("first forgot got %d body=%s", w.Code, w.Body.String())
	}
	first := resetTokenFor(t, pool, email)

	if w := postJSON(t, r, "/api/password/forgot", `{"email": "`+email+`"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("second forgot got %d body=%s", w.Code, w.Body.String())
	}
	second := resetTokenFor(t, pool, email)

	if first == second {
		t.Fatalf("second request did not rotate the token")
	}

	if w := postJSON(t, r, "/api/password/reset",
		`{"token": "`+first+`", "password": "replacement-pass"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("superseded token got %d, want 400, body=%s", w.Code, w.Body.String())
	}
	if w := postJSON(t, r, "/api/password/reset",
		`{"token": "`+second+`", "password": "replacement-pass"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("current token got %d body=%s", w.Code, w.Body.String())
	}
}

// Consuming re-checks expiry inside the UPDATE itself, so a token past its
// window fails even though it is still stored on the row.
func TestPasswordResetFlow_ExpiredToken(t *testing.T) {
	r, pool := setupRouter(t)

	email := fmt.Sprintf("reset-expired-%d@example.com", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE email = $1`, email)
	})

	if w := postJSON(t, r, "/api/auth/register",
		`{"email": "`+email+`", "password": "original-pass", "name": "Expired"}`, nil); w.Code != http.StatusCreated {
		t.Fatalf("register got %d body=%s", w.Code, w.Body.String())
	}

	if w := postJSON(t, r, "/api/password/forgot", `{"email": "`+email+`"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("forgot got %d body=%s", w.Code, w.Body.String())
	}
	token := resetTokenFor(t, pool, email)

	// push the token just past its window
	if _, err := pool.Exec(context.Background(),
		`UPDATE users SET reset_token_expiry = NOW() - INTERVAL '1 second' WHERE email = $1`, email); err != nil {
		t.Fatalf("backdating expiry failed: %v", err)
	}

	w := postJSON(t, r, "/api/password/reset",
		`{"token": "`+token+`", "password": "replacement-pass"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expired token got %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error.Code != "invalid_or_expired_token" {
		t.Fatalf("got error code %q, want invalid_or_expired_token", resp.Error.Code)
	}

	// the account is untouched
	if w := postJSON(t, r, "/api/auth/login",
		`{"email": "`+email+`", "password": "original-pass"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("original password login got %d body=%s", w.Code, w.Body.String())
	}
}
