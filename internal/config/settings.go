package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

var ErrInvalidSetting = errors.New("invalid setting")

type SettingsType struct {
	m map[string]SettingType
}

type SettingType struct {
	Description string
	Value       string
}

func NewSettingType(print bool) *SettingsType {
	s := &SettingsType{m: make(map[string]SettingType)}

	s.Set(LISTEN_ADDR, "Server listen address", ":8080")
	s.Set(TLS_ENABLED, "Serve HTTPS with a self-signed certificate when none exists", "false")
	s.Set(TLS_CERT_PATH, "TLS certificate path", "certs/server.crt")
	s.Set(TLS_KEY_PATH, "TLS private key path", "certs/server.key")
	s.Set(AUTH_API_URL, "Base url of the panel API that issues admin tokens", "http://127.0.0.1:8000")
	s.Set(AUTH_TOKEN_PATH, "Password grant token endpoint", "/api/admin/token")
	s.Set(AUTH_MINIAPP_TOKEN_PATH, "Embedded client (mini app) token endpoint", "/api/admin/miniapp/token")
	s.Set(AUTH_TIMEOUT, "Timeout for a single login request", "15s")
	s.Set(SESSION_TTL, "Dashboard session lifetime", "24h")
	s.Set(SESSION_COOKIE_NAME, "Dashboard session cookie name", "admindash_session")
	s.Set(SESSION_COOKIE_SECURE, "Mark the session cookie as Secure", "true")
	s.Set(PRINT_SETTINGS, "Print the settings table on startup", "true")

	if print {
		s.Print(os.Stdout)
	}
	return s
}

// Print renders the settings as a table sorted by key.
func (s *SettingsType) Print(w io.Writer) {
	keys := make([]string, 0, len(s.m))
	for key := range s.m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("KEY", "Description", "value")
	for _, key := range keys {
		setting := s.m[key]
		table.Append([]string{key, setting.Description, setting.Value})
	}
	table.Render()
}

func (s *SettingsType) Get(id string) string {
	return s.m[id].Value
}

func (s *SettingsType) Has(id string) bool {
	return len(s.m[id].Value) > 0
}

func (s *SettingsType) IsTrue(id string) bool {
	v := strings.ToLower(strings.TrimSpace(s.m[id].Value))
	return v == "true" || v == "1" || v == "yes"
}

func (s *SettingsType) Duration(id string) (time.Duration, error) {
	raw := strings.TrimSpace(s.m[id].Value)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidSetting, id, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidSetting, id)
	}
	return d, nil
}

func (s *SettingsType) Set(id string, description string, defaultValue string) {
	if value, ok := os.LookupEnv(id); ok {
		s.m[id] = SettingType{Description: description, Value: value}
	} else {
		s.m[id] = SettingType{Description: description, Value: defaultValue}
	}
}

const (
	LISTEN_ADDR             = "LISTEN_ADDR"
	TLS_ENABLED             = "TLS_ENABLED"
	TLS_CERT_PATH           = "TLS_CERT_PATH"
	TLS_KEY_PATH            = "TLS_KEY_PATH"
	AUTH_API_URL            = "AUTH_API_URL"
	AUTH_TOKEN_PATH         = "AUTH_TOKEN_PATH"
	AUTH_MINIAPP_TOKEN_PATH = "AUTH_MINIAPP_TOKEN_PATH"
	AUTH_TIMEOUT            = "AUTH_TIMEOUT"
	SESSION_TTL             = "SESSION_TTL"
	SESSION_COOKIE_NAME     = "SESSION_COOKIE_NAME"
	SESSION_COOKIE_SECURE   = "SESSION_COOKIE_SECURE"
	PRINT_SETTINGS          = "PRINT_SETTINGS"
)
