package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jobvert/jobvert/internal/auth"
	"github.com/jobvert/jobvert/internal/domain"
)

// mockUserService implements the session resolver used by AuthMiddleware.
type mockUserService struct {
	GetBySessionTokenFunc func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	return m.GetBySessionTokenFunc(ctx, token)
}

func newTestAuthMiddleware(users *mockUserService) *AuthMiddleware {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthMiddleware(users, logger, false)
}

func sessionRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/my-jobs", nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	return r
}

func TestWithUser_ValidSession(t *testing.T) {
	userID := uuid.New()
	users := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			if token != "tok123" {
				t.Errorf("token = %q, want tok123", token)
			}
			return &domain.User{ID: userID, Email: "employer@example.com"}, nil
		},
	}

	var got *domain.User
	handler := newTestAuthMiddleware(users).WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.GetUser(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), sessionRequest("tok123"))

	if got == nil || got.ID != userID {
		t.Fatalf("user in context = %+v, want ID %s", got, userID)
	}
}

func TestWithUser_NoCookieContinuesAnonymous(t *testing.T) {
	users := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			t.Fatal("session lookup should not run without a cookie")
			return nil, nil
		},
	}

	called := false
	handler := newTestAuthMiddleware(users).WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if auth.GetUser(r.Context()) != nil {
			t.Error("expected no user in context")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), sessionRequest(""))

	if !called {
		t.Fatal("next handler was not called")
	}
}

func TestWithUser_ExpiredSessionClearsCookie(t *testing.T) {
	users := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			return nil, domain.Errorf(domain.EUNAUTHORIZED, "", "Session expired or invalid")
		},
	}

	handler := newTestAuthMiddleware(users).WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) != nil {
			t.Error("expected no user in context")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("stale"))

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestRequireUser_RedirectsBrowser(t *testing.T) {
	handler := newTestAuthMiddleware(&mockUserService{}).RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run unauthenticated")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/my-jobs?tab=drafts", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?return_to=") || !strings.Contains(loc, "/my-jobs") {
		t.Errorf("redirect location = %q", loc)
	}
}

func TestRequireUser_APIGets401(t *testing.T) {
	handler := newTestAuthMiddleware(&mockUserService{}).RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run unauthenticated")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/subscription/quota", nil)
	r.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireUser_PassesAuthenticated(t *testing.T) {
	called := false
	handler := newTestAuthMiddleware(&mockUserService{}).RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	r := httptest.NewRequest(http.MethodGet, "/my-jobs", nil)
	r = r.WithContext(auth.SetUser(r.Context(), &domain.User{ID: uuid.New()}))
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !called {
		t.Fatal("next handler was not called")
	}
}

func TestStack_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Stack(mw("outer"), mw("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner", "handler"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
