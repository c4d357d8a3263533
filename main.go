package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"admindash/internal/config"
	"admindash/internal/contextKey"
	"admindash/internal/login"
	"admindash/internal/session"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type app struct {
	settings *config.SettingsType
	sessions *session.Manager
	login    *login.Controller
}

func newApp(settings *config.SettingsType) (*app, error) {
	authCfg, err := config.LoadAuthAPIConfig(settings)
	if err != nil {
		return nil, err
	}
	sessCfg, err := config.LoadSessionConfig(settings)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(session.Options{
		TTL:          sessCfg.TTL,
		CookieName:   sessCfg.CookieName,
		CookieSecure: sessCfg.CookieSecure,
	})

	client, err := login.NewClient(
		authCfg.BaseURL,
		login.WithHTTPClient(&http.Client{Timeout: authCfg.Timeout}),
		login.WithTokenPath(authCfg.TokenPath),
		login.WithMiniAppTokenPath(authCfg.MiniAppTokenPath),
	)
	if err != nil {
		return nil, fmt.Errorf("auth client: %w", err)
	}

	return &app{
		settings: settings,
		sessions: sessions,
		login:    login.NewController(client, sessions, authCfg.Timeout),
	}, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(contextKey.WithRequestID(r.Context(), id)))
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		reqID, _ := contextKey.RequestIDFromContext(r.Context())
		log.Printf(
			"request: status=%d bytes=%d dur=%s method=%s path=%s remote=%s req_id=%s ua=%q",
			rec.status,
			rec.bytes,
			time.Since(start).Truncate(time.Millisecond),
			r.Method,
			r.URL.Path,
			r.RemoteAddr,
			reqID,
			r.UserAgent(),
		)
	})
}

// ensureTLSCert keeps a usable pair at certPath and keyPath. A self-signed
// pair is written when either file is missing or the two do not load together.
func ensureTLSCert(certPath, keyPath string) error {
	_, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Printf("TLS pair unusable, regenerating: cert=%s key=%s err=%v", certPath, keyPath, err)
	}

	certPEM, keyPEM, err := selfSignedPair("admindash", time.Now())
	if err != nil {
		return err
	}
	files := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{certPath, certPEM, 0644},
		{keyPath, keyPEM, 0600},
	}
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
			return fmt.Errorf("create cert dir: %w", err)
		}
		if err := os.WriteFile(f.path, f.data, f.mode); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	return nil
}

func selfSignedPair(name string, now time.Time) (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		nil
}

func (a *app) router() http.Handler {
	router := chi.NewRouter()
	router.Use(a.sessions.LoadAndSave)

	router.Get("/login", a.handleLoginGet)
	router.Get("/login/", a.handleLoginGet)
	router.Post("/login", a.handleLoginPost)
	router.HandleFunc("/logout", a.handleLogout)
	router.Handle("/metrics", promhttp.Handler())

	router.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok\n")); err != nil {
			log.Printf("failed to write health response: %v", err)
		}
	})

	apiCfg := huma.DefaultConfig("admindash", "1.0.0")
	apiCfg.OpenAPIPath = ""
	apiCfg.DocsPath = ""
	apiCfg.SchemasPath = ""
	api := humachi.New(router, apiCfg)
	a.registerAPI(api)

	// Without a token the dashboard mounts the login view, which redirects
	// to /login.
	router.With(a.sessions.RequireAuthToken(http.HandlerFunc(a.handleLoginGet))).
		Get("/", a.handleDashboard)

	return withRequestID(logRequests(router))
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	settings := config.NewSettingType(false)
	if settings.IsTrue(config.PRINT_SETTINGS) {
		settings.Print(os.Stdout)
	}

	a, err := newApp(settings)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	srv := &http.Server{
		Addr:              settings.Get(config.LISTEN_ADDR),
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	if !settings.IsTrue(config.TLS_ENABLED) {
		log.Printf("Starting admin dashboard on %s", srv.Addr)
		log.Fatal(srv.ListenAndServe())
	}

	certPath := settings.Get(config.TLS_CERT_PATH)
	keyPath := settings.Get(config.TLS_KEY_PATH)
	if err := ensureTLSCert(certPath, keyPath); err != nil {
		log.Fatalf("failed to ensure TLS certs: %v", err)
	}
	srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	log.Printf("Starting admin dashboard with TLS on %s", srv.Addr)
	log.Fatal(srv.ListenAndServeTLS(certPath, keyPath))
}
