package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

type stubSessions struct {
	identity *model.Identity
	valid    bool
}

func (s *stubSessions) Identity() (model.Identity, bool) {
	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

func (s *stubSessions) Authenticated() bool { return s.identity != nil && s.valid }

func (s *stubSessions) IsAdmin() bool { return s.identity != nil && s.identity.IsAdmin() }

func loggedIn(userID string, role model.Role) *stubSessions {
	return &stubSessions{identity: &model.Identity{UserID: userID, Role: role}, valid: true}
}

func cookieFor(t *testing.T, m *AuthMiddleware, userID string) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	m.SetAuthCookie(w, userID)
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}
	return cookies[0]
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", loggedIn("665f1c.42", model.RoleCustomer))

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id not in context")
		}
		if id != "665f1c.42" {
			t.Fatalf("user id from context = %q, want %q", id, "665f1c.42")
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(cookieFor(t, m, "665f1c.42"))

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	signer := NewAuthMiddleware("test-secret", nil)
	other := NewAuthMiddleware("other-secret", nil)

	tests := []struct {
		name     string
		sessions *stubSessions
		cookie   *http.Cookie
	}{
		{
			name:     "without cookie",
			sessions: loggedIn("u-1", model.RoleCustomer),
		},
		{
			name:     "tampered cookie",
			sessions: loggedIn("u-1", model.RoleCustomer),
			cookie:   &http.Cookie{Name: authCookieName, Value: "dS0x.deadbeef"},
		},
		{
			name:     "signed with another key",
			sessions: loggedIn("u-1", model.RoleCustomer),
			cookie:   cookieFor(t, other, "u-1"),
		},
		{
			name:     "session belongs to another user",
			sessions: loggedIn("u-2", model.RoleCustomer),
			cookie:   cookieFor(t, signer, "u-1"),
		},
		{
			name:     "credential invalidated",
			sessions: &stubSessions{identity: &model.Identity{UserID: "u-1"}, valid: false},
			cookie:   cookieFor(t, signer, "u-1"),
		},
		{
			name:     "logged out",
			sessions: &stubSessions{},
			cookie:   cookieFor(t, signer, "u-1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware("test-secret", tt.sessions)

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}

			m.Middleware(next).ServeHTTP(w, r)

			if res := w.Result(); res.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	customer := NewAuthMiddleware("test-secret", loggedIn("u-1", model.RoleCustomer))
	w := httptest.NewRecorder()
	customer.RequireAdmin(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("customer status = %d, want %d", w.Code, http.StatusForbidden)
	}

	admin := NewAuthMiddleware("test-secret", loggedIn("u-0", model.RoleAdmin))
	w = httptest.NewRecorder()
	admin.RequireAdmin(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("admin status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestClearAuthCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", nil)

	w := httptest.NewRecorder()
	m.ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expired cookie, got %+v", cookies)
	}
}

func TestLogger_PassesThrough(t *testing.T) {
	h := Logger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}
