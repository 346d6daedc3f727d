package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mlopez-dev/authhub/internal/auth"
	"github.com/mlopez-dev/authhub/internal/domain/user"
	"github.com/mlopez-dev/authhub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	sessions map[string]auth.Session
}

func (f *fakeVerifier) VerifySession(token string) (auth.Session, error) {
	if s, ok := f.sessions[token]; ok {
		return s, nil
	}
	return auth.Session{}, errors.New("invalid token")
}

func gateRouter() (*gin.Engine, *fakeVerifier) {
	verifier := &fakeVerifier{
		sessions: map[string]auth.Session{
			"user-token":  {ID: "u1", Email: "jo@example.com", Role: user.RoleUser},
			"admin-token": {ID: "a1", Email: "admin@example.com", Role: user.RoleAdmin},
		},
	}

	mw := middlewares.NewAuthMiddleware(verifier)

	r := gin.New()
	r.Use(mw.Identify())

	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }

	r.GET("/", ok)
	r.GET("/login", ok)
	r.GET("/dashboard", mw.RequirePage(), ok)
	r.GET("/admin", mw.RequireAdminPage(), ok)

	api := r.Group("/api")
	api.GET("/me", mw.RequireAuth(), ok)
	api.GET("/admin/users", mw.RequireAuth(), mw.RequireRole(user.RoleAdmin), ok)

	return r, verifier
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middlewares.SessionCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// The full gate decision table: pages redirect, APIs answer JSON statuses.
func TestGateDecisions(t *testing.T) {
	r, _ := gateRouter()

	tests := []struct {
		name         string
		path         string
		token        string
		wantStatus   int
		wantLocation string
	}{
		// anonymous
		{"anon_public_page", "/", "", http.StatusOK, ""},
		{"anon_login_page", "/login", "", http.StatusOK, ""},
		{"anon_dashboard_redirects", "/dashboard", "", http.StatusFound, "/login?callbackUrl=%2Fdashboard"},
		{"anon_admin_redirects_to_login", "/admin", "", http.StatusFound, "/login?callbackUrl=%2Fadmin"},
		{"anon_api_unauthenticated", "/api/me", "", http.StatusUnauthorized, ""},
		{"anon_admin_api_unauthenticated", "/api/admin/users", "", http.StatusUnauthorized, ""},

		// signed-in regular user
		{"user_dashboard_ok", "/dashboard", "user-token", http.StatusOK, ""},
		{"user_admin_bounces_to_dashboard", "/admin", "user-token", http.StatusFound, "/dashboard"},
		{"user_api_ok", "/api/me", "user-token", http.StatusOK, ""},
		{"user_admin_api_forbidden", "/api/admin/users", "user-token", http.StatusForbidden, ""},

		// signed-in admin
		{"admin_dashboard_ok", "/dashboard", "admin-token", http.StatusOK, ""},
		{"admin_admin_ok", "/admin", "admin-token", http.StatusOK, ""},
		{"admin_api_ok", "/api/admin/users", "admin-token", http.StatusOK, ""},

		// garbage token behaves exactly like no token
		{"tampered_token_dashboard", "/dashboard", "garbage", http.StatusFound, "/login?callbackUrl=%2Fdashboard"},
		{"tampered_token_api", "/api/me", "garbage", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path, tt.token)

			if w.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantLocation != "" {
				if loc := w.Header().Get("Location"); loc != tt.wantLocation {
					t.Fatalf("got Location %q, want %q", loc, tt.wantLocation)
				}
			}
		})
	}
}

// The login redirect must carry the original path so the client can land
// back where it started after signing in.
func TestRedirectPreservesCallback(t *testing.T) {
	r, _ := gateRouter()

	w := get(r, "/dashboard", "")

	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect location: %v", err)
	}

	if loc.Path != "/login" {
		t.Fatalf("redirect path %q, want /login", loc.Path)
	}
	if cb := loc.Query().Get("callbackUrl"); cb != "/dashboard" {
		t.Fatalf("callbackUrl %q, want /dashboard", cb)
	}
}

// Repeating the same denied request must produce the same answer.
func TestGateIsIdempotent(t *testing.T) {
	r, _ := gateRouter()

	first := get(r, "/admin", "user-token")
	second := get(r, "/admin", "user-token")

	if first.Code != second.Code {
		t.Fatalf("codes differ: %d vs %d", first.Code, second.Code)
	}
	if first.Header().Get("Location") != second.Header().Get("Location") {
		t.Fatalf("locations differ")
	}
}

func TestBearerHeaderFallback(t *testing.T) {
	r, _ := gateRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200, body=%s", w.Code, w.Body.String())
	}
}
