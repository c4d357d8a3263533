package login

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"admindash/internal/contextKey"
)

const (
	defaultTokenPath        = "/api/admin/token"
	defaultMiniAppTokenPath = "/api/admin/miniapp/token"
	defaultTimeout          = 15 * time.Second

	initDataAuthHeader = "X-Telegram-Authorization"
	maxResponseBody    = 1 << 20
	userAgent          = "admindash/1.0"
)

// HostAssertion is what the embedded host vouches for. It carries nothing the
// user typed.
type HostAssertion struct {
	InitData string
}

// Establisher runs the two remote login operations.
type Establisher interface {
	LoginWithPassword(ctx context.Context, form Form) Outcome
	LoginAsEmbeddedClient(ctx context.Context, host HostAssertion) Outcome
}

// Client talks to the panel API token endpoints. It makes one attempt per call
// and never retries.
type Client struct {
	baseURL          *url.URL
	tokenPath        string
	miniAppTokenPath string
	httpClient       *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTokenPath(p string) ClientOption {
	return func(c *Client) {
		if p != "" {
			c.tokenPath = p
		}
	}
}

func WithMiniAppTokenPath(p string) ClientOption {
	return func(c *Client) {
		if p != "" {
			c.miniAppTokenPath = p
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse auth api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("auth api url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL:          u,
		tokenPath:        defaultTokenPath,
		miniAppTokenPath: defaultMiniAppTokenPath,
		httpClient:       &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (c *Client) LoginWithPassword(ctx context.Context, form Form) Outcome {
	body := url.Values{}
	body.Set("username", form.Username)
	body.Set("password", form.Password)
	body.Set("grant_type", "password")

	req, err := c.newRequest(ctx, c.tokenPath, strings.NewReader(body.Encode()))
	if err != nil {
		log.Printf("password login: build request: %v", err)
		return Failure{}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, "password")
}

func (c *Client) LoginAsEmbeddedClient(ctx context.Context, host HostAssertion) Outcome {
	req, err := c.newRequest(ctx, c.miniAppTokenPath, http.NoBody)
	if err != nil {
		log.Printf("embedded login: build request: %v", err)
		return Failure{}
	}
	if host.InitData != "" {
		req.Header.Set(initDataAuthHeader, host.InitData)
	}
	return c.do(req, "embedded")
}

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader) (*http.Request, error) {
	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if id, ok := contextKey.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-Id", id)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, strategy string) Outcome {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("%s login: request failed: url=%s err=%v", strategy, req.URL.Redacted(), err)
		return Failure{}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		log.Printf("%s login: read response: status=%d err=%v", strategy, resp.StatusCode, err)
		return Failure{}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failure{Detail: errorDetail(raw)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		log.Printf("%s login: decode token response: status=%d err=%v", strategy, resp.StatusCode, err)
		return Failure{}
	}
	if tok.AccessToken == "" {
		log.Printf("%s login: response has no access token: status=%d", strategy, resp.StatusCode)
		return Failure{}
	}
	return Success{AccessToken: tok.AccessToken}
}

// errorDetail extracts the "detail" member of an error body. FastAPI sends
// either a string or a list of validation errors with "msg" members.
func errorDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if m := strings.TrimSpace(item.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
