package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func loadedContext(t *testing.T, m *Manager, token string) context.Context {
	t.Helper()
	ctx, err := m.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return ctx
}

func jwtFor(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    sub,
		"access": "sudo",
		"exp":    exp.Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestSetAndRemoveAuthToken(t *testing.T) {
	m := NewManager(Options{})
	ctx := loadedContext(t, m, "")

	if _, ok := m.AuthToken(ctx); ok {
		t.Fatalf("expected no token in a new session")
	}
	if err := m.SetAuthToken(ctx, "opaque"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	tok, ok := m.AuthToken(ctx)
	if !ok || tok != "opaque" {
		t.Fatalf("expected opaque token, got %q (ok=%v)", tok, ok)
	}
	admin, ok := m.AdminFromContext(ctx)
	if !ok || admin.Username != "" {
		t.Fatalf("expected empty admin for opaque token, got %+v", admin)
	}

	if err := m.RemoveAuthToken(ctx); err != nil {
		t.Fatalf("remove token: %v", err)
	}
	if _, ok := m.AuthToken(ctx); ok {
		t.Fatalf("expected token to be removed")
	}
}

func TestAuthTokenSurvivesCommit(t *testing.T) {
	m := NewManager(Options{TTL: time.Hour})
	ctx := loadedContext(t, m, "")
	token := jwtFor(t, "root", time.Now().Add(time.Hour))
	if err := m.SetAuthToken(ctx, token); err != nil {
		t.Fatalf("set token: %v", err)
	}
	m.SetHost(ctx, Host{EmbeddedClient: true, Reason: "query", InitData: "a=b"})

	id, _, err := m.Commit(ctx)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	reloaded := loadedContext(t, m, id)
	got, ok := m.AuthToken(reloaded)
	if !ok || got != token {
		t.Fatalf("expected token after reload")
	}
	admin, ok := m.AdminFromContext(reloaded)
	if !ok || admin.Username != "root" || admin.Role != "sudo" {
		t.Fatalf("expected admin root/sudo, got %+v", admin)
	}
	host, ok := m.Host(reloaded)
	if !ok || !host.EmbeddedClient || host.InitData != "a=b" {
		t.Fatalf("expected host context after reload, got %+v", host)
	}
	if m.ID(reloaded) != id {
		t.Fatalf("expected session id %q, got %q", id, m.ID(reloaded))
	}
}

func TestExpiredTokenIsIgnored(t *testing.T) {
	m := NewManager(Options{})
	ctx := loadedContext(t, m, "")
	if err := m.SetAuthToken(ctx, jwtFor(t, "root", time.Now().Add(time.Minute))); err != nil {
		t.Fatalf("set token: %v", err)
	}
	m.now = func() time.Time { return time.Now().Add(time.Hour) }

	if _, ok := m.AuthToken(ctx); ok {
		t.Fatalf("expected expired token to be ignored")
	}
}

func TestRequireAuthToken(t *testing.T) {
	m := NewManager(Options{})
	missing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	protected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.SetAuthToken(r.Context(), "tok"); err != nil {
			t.Errorf("set token: %v", err)
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/private", m.RequireAuthToken(missing)(protected))
	mux.Handle("/login", login)
	handler := m.LoadAndSave(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected fallback handler, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie after login")
	}

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected protected handler, got %d", rec.Code)
	}
}

func TestCookieOptions(t *testing.T) {
	m := NewManager(Options{CookieName: "custom", CookieSecure: true, TTL: time.Minute})
	if m.Cookie.Name != "custom" || !m.Cookie.Secure {
		t.Fatalf("expected custom secure cookie, got %+v", m.Cookie)
	}
	if m.Lifetime != time.Minute {
		t.Fatalf("expected lifetime 1m, got %s", m.Lifetime)
	}
}
