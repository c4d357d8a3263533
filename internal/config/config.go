package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type AuthAPIConfig struct {
	BaseURL          string
	TokenPath        string
	MiniAppTokenPath string
	Timeout          time.Duration
}

type SessionConfig struct {
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

func LoadAuthAPIConfig(s *SettingsType) (AuthAPIConfig, error) {
	base := strings.TrimSpace(s.Get(AUTH_API_URL))
	u, err := url.Parse(base)
	if err != nil {
		return AuthAPIConfig{}, fmt.Errorf("%w: %s=%q: %v", ErrInvalidSetting, AUTH_API_URL, base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return AuthAPIConfig{}, fmt.Errorf("%w: %s must be an http(s) url", ErrInvalidSetting, AUTH_API_URL)
	}
	if u.Host == "" {
		return AuthAPIConfig{}, fmt.Errorf("%w: %s has no host", ErrInvalidSetting, AUTH_API_URL)
	}

	timeout, err := s.Duration(AUTH_TIMEOUT)
	if err != nil {
		return AuthAPIConfig{}, err
	}

	return AuthAPIConfig{
		BaseURL:          base,
		TokenPath:        normalizePath(s.Get(AUTH_TOKEN_PATH)),
		MiniAppTokenPath: normalizePath(s.Get(AUTH_MINIAPP_TOKEN_PATH)),
		Timeout:          timeout,
	}, nil
}

func LoadSessionConfig(s *SettingsType) (SessionConfig, error) {
	ttl, err := s.Duration(SESSION_TTL)
	if err != nil {
		return SessionConfig{}, err
	}
	name := strings.TrimSpace(s.Get(SESSION_COOKIE_NAME))
	if name == "" {
		return SessionConfig{}, fmt.Errorf("%w: %s is empty", ErrInvalidSetting, SESSION_COOKIE_NAME)
	}
	return SessionConfig{
		TTL:          ttl,
		CookieName:   name,
		CookieSecure: s.IsTrue(SESSION_COOKIE_SECURE),
	}, nil
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
