package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"admindash/internal/login"
	"admindash/internal/session"
)

const (
	cacheControlValue = "no-store, no-cache, must-revalidate, max-age=0"
	pragmaValue       = "no-cache"
	expiresValue      = "0"
)

// redirectNavigator turns view navigation into an HTTP redirect. A 303 after
// a POST leaves no resubmittable entry behind, and a redirected GET never
// enters the history, so both satisfy a replacing navigation.
type redirectNavigator struct {
	w         http.ResponseWriter
	r         *http.Request
	navigated bool
}

func (n *redirectNavigator) NavigateTo(path string, opts login.NavigateOptions) {
	if opts.ReplaceHistory {
		setNoCacheHeaders(n.w)
	}
	http.Redirect(n.w, n.r, path, http.StatusSeeOther)
	n.navigated = true
}

func setNoCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", cacheControlValue)
	w.Header().Set("Pragma", pragmaValue)
	w.Header().Set("Expires", expiresValue)
}

func (a *app) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	nav := &redirectNavigator{w: w, r: r}

	verdict, err := a.mountLogin(r.Context(), r.URL.Path, login.SignalsFromRequest(r), nav)
	if err != nil {
		log.Printf("login mount failed: path=%s err=%v", r.URL.Path, err)
		http.Error(w, "Login unavailable.", http.StatusInternalServerError)
		return
	}
	if nav.navigated {
		return
	}

	serveLogin(w, loginPage{
		EmbeddedClient: verdict.EmbeddedClient,
		Submitting:     a.login.State(a.sessions.ID(r.Context())) == login.Submitting,
	}, http.StatusOK)
}

// mountLogin mounts the login view and remembers its verdict in the session.
// Init data seen by an earlier mount of the same embedded view is kept, since
// the redirect to the login path drops it from the URL.
func (a *app) mountLogin(ctx context.Context, path string, signals login.Signals, nav login.Navigator) (login.Verdict, error) {
	prev, _ := a.sessions.Host(ctx)

	// The session is committed when the response header is written, so the
	// host is stored before any redirect goes out.
	pending := &recordingNavigator{}
	verdict, err := a.login.Mount(ctx, path, signals, pending)
	if err != nil {
		return login.Verdict{}, err
	}

	initData := signals.InitData
	if initData == "" && verdict.EmbeddedClient && prev.EmbeddedClient {
		initData = prev.InitData
	}
	a.sessions.SetHost(ctx, session.Host{
		EmbeddedClient: verdict.EmbeddedClient,
		Reason:         verdict.Reason,
		InitData:       initData,
	})
	if r := pending.redirect; r != nil {
		nav.NavigateTo(r.Path, login.NavigateOptions{ReplaceHistory: r.Replace})
	}
	return verdict, nil
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Printf("login form parse failed: %v", err)
		serveLogin(w, loginPage{Banner: "Invalid form submission."}, http.StatusBadRequest)
		return
	}

	form := login.Form{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	signals := login.SignalsFromRequest(r)
	if v := strings.TrimSpace(r.PostFormValue(login.ParamInitData)); v != "" {
		signals.InitData = v
	}
	sub := a.submission(r.Context(), form, signals)
	nav := &redirectNavigator{w: w, r: r}

	res := a.login.Submit(r.Context(), sub, nav)
	if nav.navigated {
		return
	}

	status := http.StatusUnauthorized
	if res.State == login.Idle {
		status = http.StatusUnprocessableEntity
	}
	serveLogin(w, loginPage{
		Username:       form.Username,
		FieldErrors:    res.FieldErrors,
		Banner:         res.Banner,
		EmbeddedClient: sub.Verdict.EmbeddedClient,
	}, status)
}

// submission assembles a login attempt from the verdict stored at mount. A
// submission that never saw a mount is classified from its own request. Init
// data sent with the submission replaces what the mount saw.
func (a *app) submission(ctx context.Context, form login.Form, signals login.Signals) login.Submission {
	host, ok := a.sessions.Host(ctx)
	if !ok {
		verdict := login.Classify(signals)
		host = session.Host{
			EmbeddedClient: verdict.EmbeddedClient,
			Reason:         verdict.Reason,
			InitData:       signals.InitData,
		}
	}
	if signals.InitData != "" {
		host.InitData = signals.InitData
	}
	return login.Submission{
		Key:     a.sessions.ID(ctx),
		Form:    form,
		Verdict: login.Verdict{EmbeddedClient: host.EmbeddedClient, Reason: host.Reason},
		Host:    login.HostAssertion{InitData: host.InitData},
	}
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.DestroySession(r.Context()); err != nil {
		log.Printf("session destroy failed: %v", err)
	}
	setNoCacheHeaders(w)
	http.Redirect(w, r, login.LoginPath, http.StatusSeeOther)
}
