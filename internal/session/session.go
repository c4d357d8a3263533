package session

import (
	"context"
	"encoding/gob"
	"log"
	"net/http"
	"time"

	"admindash/internal/types"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/danielgtaylor/huma/v2"
)

type authState struct {
	Token     string
	Admin     *types.Admin
	CreatedAt time.Time
}

// Host is the mount-time view of the embedding host.
type Host struct {
	EmbeddedClient bool
	Reason         string
	InitData       string
}

const (
	authKey = "auth"
	hostKey = "host"

	defaultTTL = 24 * time.Hour
)

func init() {
	gob.Register(authState{})
	gob.Register(Host{})
}

type Options struct {
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

type Manager struct {
	*scs.SessionManager
	now func() time.Time
}

func NewManager(opts Options) *Manager {
	return &Manager{SessionManager: newSessionManager(opts), now: time.Now}
}

func newSessionManager(opts Options) *scs.SessionManager {
	manager := scs.New()
	manager.Store = memstore.New()
	manager.Lifetime = defaultTTL
	if opts.TTL > 0 {
		manager.Lifetime = opts.TTL
	}
	manager.Cookie.Name = "admindash_session"
	if opts.CookieName != "" {
		manager.Cookie.Name = opts.CookieName
	}
	manager.Cookie.Path = "/"
	manager.Cookie.HttpOnly = true
	manager.Cookie.SameSite = http.SameSiteLaxMode
	manager.Cookie.Secure = opts.CookieSecure
	return manager
}

// SetAuthToken stores the access token under a fresh session id.
func (m *Manager) SetAuthToken(ctx context.Context, token string) error {
	if err := m.RenewToken(ctx); err != nil {
		return err
	}
	admin, err := types.AdminFromToken(token)
	if err != nil {
		log.Printf("session: token claims unavailable: %v", err)
		admin = nil
	}
	m.Put(ctx, authKey, authState{
		Token:     token,
		Admin:     admin,
		CreatedAt: m.now(),
	})
	return nil
}

func (m *Manager) RemoveAuthToken(ctx context.Context) error {
	m.Remove(ctx, authKey)
	return nil
}

func (m *Manager) auth(ctx context.Context) (authState, bool) {
	if ctx == nil {
		return authState{}, false
	}
	st, ok := m.Get(ctx, authKey).(authState)
	if !ok || st.Token == "" {
		return authState{}, false
	}
	if st.Admin.Expired(m.now()) {
		return authState{}, false
	}
	return st, true
}

func (m *Manager) AuthToken(ctx context.Context) (string, bool) {
	st, ok := m.auth(ctx)
	if !ok {
		return "", false
	}
	return st.Token, true
}

// AdminFromContext returns the signed-in admin. Sessions holding an opaque
// token report an empty admin.
func (m *Manager) AdminFromContext(ctx context.Context) (*types.Admin, bool) {
	st, ok := m.auth(ctx)
	if !ok {
		return nil, false
	}
	if st.Admin == nil {
		return &types.Admin{}, true
	}
	return st.Admin, true
}

func (m *Manager) SetHost(ctx context.Context, h Host) {
	m.Put(ctx, hostKey, h)
}

func (m *Manager) Host(ctx context.Context) (Host, bool) {
	h, ok := m.Get(ctx, hostKey).(Host)
	return h, ok
}

// ID identifies the browser session. It is empty until the session has been
// committed once.
func (m *Manager) ID(ctx context.Context) string {
	return m.Token(ctx)
}

func (m *Manager) DestroySession(ctx context.Context) error {
	return m.Destroy(ctx)
}

// SessionMiddleware rejects API calls from sessions without a usable token.
func (m *Manager) SessionMiddleware(api huma.API) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if _, ok := m.AuthToken(ctx.Context()); !ok {
			if err := huma.WriteErr(api, ctx, http.StatusUnauthorized, "not signed in"); err != nil {
				log.Printf("session: write unauthorized: %v", err)
			}
			return
		}
		next(ctx)
	}
}

// RequireAuthToken serves next when the session holds a usable token and
// falls back to onMissing otherwise.
func (m *Manager) RequireAuthToken(onMissing http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.AuthToken(r.Context()); !ok {
				onMissing.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
