package login

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"admindash/internal/contextKey"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestLoginWithPasswordSendsGrant(t *testing.T) {
	var got url.Values
	var path, contentType, requestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		requestID = r.Header.Get("X-Request-Id")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"bearer"}`)
	})

	ctx := contextKey.WithRequestID(context.Background(), "req-1")
	outcome := c.LoginWithPassword(ctx, Form{Username: "admin", Password: "secret"})

	success, ok := outcome.(Success)
	if !ok {
		t.Fatalf("expected Success, got %#v", outcome)
	}
	if success.AccessToken != "tok-1" {
		t.Fatalf("expected token tok-1, got %q", success.AccessToken)
	}
	if path != "/api/admin/token" {
		t.Fatalf("expected token path, got %q", path)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form encoding, got %q", contentType)
	}
	if requestID != "req-1" {
		t.Fatalf("expected request id to be forwarded, got %q", requestID)
	}
	if got.Get("username") != "admin" || got.Get("password") != "secret" || got.Get("grant_type") != "password" {
		t.Fatalf("unexpected form body: %v", got)
	}
}

func TestLoginAsEmbeddedClientSendsNoCredentials(t *testing.T) {
	var path, assertion string
	var body []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assertion = r.Header.Get(initDataAuthHeader)
		body, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"access_token":"tok-2"}`)
	})

	outcome := c.LoginAsEmbeddedClient(context.Background(), HostAssertion{InitData: "query_id=9"})
	if s, ok := outcome.(Success); !ok || s.AccessToken != "tok-2" {
		t.Fatalf("expected Success tok-2, got %#v", outcome)
	}
	if path != "/api/admin/miniapp/token" {
		t.Fatalf("expected mini app path, got %q", path)
	}
	if assertion != "query_id=9" {
		t.Fatalf("expected init data header, got %q", assertion)
	}
	if len(body) != 0 {
		t.Fatalf("expected empty body, got %q", body)
	}
}

func TestLoginFailureDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "string-detail", status: http.StatusUnauthorized, body: `{"detail":"invalid credentials"}`, want: "invalid credentials"},
		{name: "validation-list", status: http.StatusUnprocessableEntity, body: `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, want: "field required; too short"},
		{name: "no-detail", status: http.StatusInternalServerError, body: `{}`, want: ""},
		{name: "not-json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, want: ""},
		{name: "null-detail", status: http.StatusForbidden, body: `{"detail":null}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			outcome := c.LoginWithPassword(context.Background(), Form{Username: "a", Password: "b"})
			failure, ok := outcome.(Failure)
			if !ok {
				t.Fatalf("expected Failure, got %#v", outcome)
			}
			if failure.Detail != tt.want {
				t.Fatalf("expected detail %q, got %q", tt.want, failure.Detail)
			}
		})
	}
}

func TestLoginSuccessWithoutTokenFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	outcome := c.LoginAsEmbeddedClient(context.Background(), HostAssertion{})
	failure, ok := outcome.(Failure)
	if !ok {
		t.Fatalf("expected Failure for missing token, got %#v", outcome)
	}
	if failure.Banner() != fallbackBanner {
		t.Fatalf("expected fallback banner, got %q", failure.Banner())
	}
}

func TestLoginTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(base)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	outcome := c.LoginWithPassword(context.Background(), Form{Username: "a", Password: "b"})
	if _, ok := outcome.(Failure); !ok {
		t.Fatalf("expected Failure on transport error, got %#v", outcome)
	}
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("/api"); err == nil {
		t.Fatalf("expected error for relative url")
	}
}

func TestNewClientCustomPaths(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = io.WriteString(w, `{"access_token":"t"}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/panel/", WithMiniAppTokenPath("/auth/miniapp"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, ok := c.LoginAsEmbeddedClient(context.Background(), HostAssertion{}).(Success); !ok {
		t.Fatalf("expected Success")
	}
	if path != "/panel/auth/miniapp" {
		t.Fatalf("expected base path to be kept, got %q", path)
	}
}
