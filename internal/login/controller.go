package login

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"
)

const (
	LoginPath = "/login"
	RootPath  = "/"
)

type State int

const (
	Idle State = iota
	Submitting
	Failed
	Authenticated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Failed:
		return "failed"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TokenStore holds the session's access token. Writing and clearing are its
// only mutations.
type TokenStore interface {
	SetAuthToken(ctx context.Context, token string) error
	RemoveAuthToken(ctx context.Context) error
}

type NavigateOptions struct {
	ReplaceHistory bool
}

type Navigator interface {
	NavigateTo(path string, opts NavigateOptions)
}

// Submission is one press of the login button.
type Submission struct {
	// Key identifies the view instance; submissions sharing a key never run
	// concurrently. An empty key disables coalescing.
	Key     string
	Form    Form
	Verdict Verdict
	Host    HostAssertion
}

type Result struct {
	State       State
	FieldErrors FieldErrors
	Banner      string
	// Suppressed is set when the submission joined a call already in flight.
	Suppressed bool
}

type Controller struct {
	establisher Establisher
	store       TokenStore
	flights     *inflight
	timeout     time.Duration
}

// NewController wires the login view. timeout bounds a single login call; zero
// leaves it to the establisher.
func NewController(establisher Establisher, store TokenStore, timeout time.Duration) *Controller {
	ttl := time.Minute
	if timeout > 0 {
		ttl = 2 * timeout
	}
	return &Controller{
		establisher: establisher,
		store:       store,
		flights:     newInflight(ttl),
		timeout:     timeout,
	}
}

// Mount prepares a freshly rendered login view. The stored token is cleared
// before anything else, then the environment is classified, and the view is
// moved to LoginPath when it was reached under another path.
func (c *Controller) Mount(ctx context.Context, path string, signals Signals, nav Navigator) (Verdict, error) {
	if err := c.store.RemoveAuthToken(ctx); err != nil {
		return Verdict{}, fmt.Errorf("clear auth token: %w", err)
	}

	verdict := Classify(signals)

	if path != LoginPath {
		target := LoginPath
		if q := forwardedQuery(signals.Query, verdict); len(q) > 0 {
			target += "?" + q.Encode()
		}
		nav.NavigateTo(target, NavigateOptions{ReplaceHistory: true})
	}
	return verdict, nil
}

// forwardedQuery is the query carried to LoginPath. Init data is a
// credential and stays out of the URL; the bridge marker keeps an embedded
// verdict that no remaining parameter would reproduce.
func forwardedQuery(q url.Values, verdict Verdict) url.Values {
	out := url.Values{}
	for k, v := range q {
		if k == ParamInitData || k == ParamInitDataUnsafe {
			continue
		}
		out[k] = v
	}
	if verdict.EmbeddedClient && !Classify(SignalsFromQuery(out)).EmbeddedClient {
		out.Set(ParamWebAppBridge, "1")
	}
	return out
}

func (c *Controller) State(key string) State {
	if key != "" && c.flights.submitting(key) {
		return Submitting
	}
	return Idle
}

func (c *Controller) Submit(ctx context.Context, sub Submission, nav Navigator) Result {
	if errs := Validate(sub.Form); len(errs) > 0 {
		rejectedForms.Inc()
		return Result{State: Idle, FieldErrors: errs}
	}

	// The call and the token write are detached from the caller's
	// cancellation: a client that goes away does not abort a login that is
	// already on the wire.
	ctx = context.WithoutCancel(ctx)

	var (
		outcome Outcome
		leader  = true
	)
	if sub.Key == "" {
		outcome = c.establish(ctx, sub)
	} else {
		outcome, leader = c.flights.do(sub.Key, func() Outcome {
			return c.establish(ctx, sub)
		})
	}
	if !leader {
		suppressedSubmissions.Inc()
	}

	// Every submission writes the shared token into its own session. Storing
	// renews the session id, so a duplicate that skipped the write would be
	// left holding an id the leader already retired.
	if o, ok := outcome.(Success); ok {
		outcome = c.storeToken(ctx, sub, o)
	}

	switch o := outcome.(type) {
	case Success:
		nav.NavigateTo(RootPath, NavigateOptions{ReplaceHistory: true})
		return Result{State: Authenticated, Suppressed: !leader}
	case Failure:
		return Result{State: Failed, Banner: o.Banner(), Suppressed: !leader}
	default:
		return Result{State: Failed, Banner: fallbackBanner, Suppressed: !leader}
	}
}

// establish runs exactly one login call.
func (c *Controller) establish(ctx context.Context, sub Submission) Outcome {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	strategy := sub.strategy()
	var outcome Outcome
	if sub.Verdict.EmbeddedClient {
		outcome = c.establisher.LoginAsEmbeddedClient(ctx, sub.Host)
	} else {
		outcome = c.establisher.LoginWithPassword(ctx, sub.Form)
	}

	switch o := outcome.(type) {
	case Success:
		log.Printf("login succeeded: strategy=%s reason=%q", strategy, sub.Verdict.Reason)
		loginAttempts.WithLabelValues(strategy, "success").Inc()
		return o
	case Failure:
		log.Printf("login failed: strategy=%s reason=%q detail=%q", strategy, sub.Verdict.Reason, o.Detail)
		loginAttempts.WithLabelValues(strategy, "failure").Inc()
		return o
	default:
		log.Printf("login failed: strategy=%s no outcome", strategy)
		loginAttempts.WithLabelValues(strategy, "failure").Inc()
		return Failure{}
	}
}

func (c *Controller) storeToken(ctx context.Context, sub Submission, o Success) Outcome {
	if err := c.store.SetAuthToken(ctx, o.AccessToken); err != nil {
		log.Printf("login token store failed: strategy=%s err=%v", sub.strategy(), err)
		tokenStoreErrors.Inc()
		return Failure{}
	}
	return o
}

func (s Submission) strategy() string {
	if s.Verdict.EmbeddedClient {
		return "embedded"
	}
	return "password"
}
