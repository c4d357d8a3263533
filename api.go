package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"admindash/internal/login"

	"github.com/danielgtaylor/huma/v2"
)

type loginAPIRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type loginAPIInput struct {
	UserAgent string           `header:"User-Agent"`
	InitData  string           `header:"X-Telegram-Init-Data"`
	Telegram  string           `query:"telegram"`
	Body      *loginAPIRequest `required:"false"`
}

type loginMountInput struct {
	UserAgent string `header:"User-Agent"`
	InitData  string `header:"X-Telegram-Init-Data"`
	Telegram  string `query:"telegram"`
	WebApp    string `query:"tgWebApp"`
	Platform  string `query:"tgWebAppPlatform"`
}

func (in *loginMountInput) signals() login.Signals {
	q := url.Values{}
	for k, v := range map[string]string{
		login.ParamTelegram:     in.Telegram,
		login.ParamWebAppBridge: in.WebApp,
		login.ParamPlatform:     in.Platform,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	s := login.SignalsFromQuery(q)
	s.InitData = strings.TrimSpace(in.InitData)
	s.UserAgent = in.UserAgent
	return s
}

type redirectInstruction struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
}

type loginAPIResponse struct {
	State       string               `json:"state"`
	FieldErrors map[string]string    `json:"fieldErrors,omitempty"`
	Error       string               `json:"error,omitempty"`
	Redirect    *redirectInstruction `json:"redirect,omitempty"`
}

type loginAPIOutput struct {
	Status int
	Body   loginAPIResponse
}

type loginStateOutput struct {
	Body struct {
		State          string `json:"state"`
		EmbeddedClient bool   `json:"embeddedClient"`
	}
}

type sessionOutput struct {
	Body struct {
		Username  string     `json:"username,omitempty"`
		Role      string     `json:"role,omitempty"`
		ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	}
}

// recordingNavigator records a navigation instead of performing it. The JSON
// API hands it back to the client in the response body.
type recordingNavigator struct {
	redirect *redirectInstruction
}

func (n *recordingNavigator) NavigateTo(path string, opts login.NavigateOptions) {
	n.redirect = &redirectInstruction{Path: path, Replace: opts.ReplaceHistory}
}

func (a *app) registerAPI(api huma.API) {
	huma.Post(api, "/api/login", func(ctx context.Context, in *loginAPIInput) (*loginAPIOutput, error) {
		var form login.Form
		if in.Body != nil {
			form = login.Form{Username: in.Body.Username, Password: in.Body.Password}
		}
		signals := login.Signals{
			InitData:  strings.TrimSpace(in.InitData),
			UserAgent: in.UserAgent,
		}
		if in.Telegram != "" {
			signals.Query = url.Values{login.ParamTelegram: {in.Telegram}}
		}

		nav := &recordingNavigator{}
		res := a.login.Submit(ctx, a.submission(ctx, form, signals), nav)

		out := &loginAPIOutput{Status: http.StatusOK}
		out.Body = loginAPIResponse{
			State:       res.State.String(),
			FieldErrors: res.FieldErrors,
			Error:       res.Banner,
			Redirect:    nav.redirect,
		}
		switch res.State {
		case login.Idle:
			out.Status = http.StatusUnprocessableEntity
		case login.Failed:
			out.Status = http.StatusUnauthorized
		}
		return out, nil
	}, func(op *huma.Operation) {
		op.Hidden = true
	})

	huma.Post(api, "/api/login/mount", func(ctx context.Context, in *loginMountInput) (*loginStateOutput, error) {
		verdict, err := a.mountLogin(ctx, login.LoginPath, in.signals(), &recordingNavigator{})
		if err != nil {
			log.Printf("login mount failed: api err=%v", err)
			return nil, huma.Error500InternalServerError("login unavailable")
		}
		out := &loginStateOutput{}
		out.Body.State = a.login.State(a.sessions.ID(ctx)).String()
		out.Body.EmbeddedClient = verdict.EmbeddedClient
		return out, nil
	}, func(op *huma.Operation) {
		op.Hidden = true
	})

	huma.Get(api, "/api/login/state", func(ctx context.Context, _ *struct{}) (*loginStateOutput, error) {
		out := &loginStateOutput{}
		host, _ := a.sessions.Host(ctx)
		out.Body.State = a.login.State(a.sessions.ID(ctx)).String()
		out.Body.EmbeddedClient = host.EmbeddedClient
		return out, nil
	}, func(op *huma.Operation) {
		op.Hidden = true
	})

	group := huma.NewGroup(api, "/api")
	group.UseMiddleware(a.sessions.SessionMiddleware(api))
	huma.Get(group, "/session", func(ctx context.Context, _ *struct{}) (*sessionOutput, error) {
		out := &sessionOutput{}
		admin, ok := a.sessions.AdminFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("not signed in")
		}
		out.Body.Username = admin.Username
		out.Body.Role = admin.Role
		if !admin.ExpiresAt.IsZero() {
			exp := admin.ExpiresAt
			out.Body.ExpiresAt = &exp
		}
		return out, nil
	}, func(op *huma.Operation) {
		op.Hidden = true
	})
}
