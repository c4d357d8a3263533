package login

import (
	"net/http"
	"net/url"
	"strings"
)

// Query parameters and headers through which the page script and the embedded
// host report themselves.
const (
	ParamTelegram       = "telegram"
	ParamWebAppBridge   = "tgWebApp"
	ParamLoginBridge    = "tgLogin"
	ParamInitData       = "tgWebAppData"
	ParamPlatform       = "tgWebAppPlatform"
	ParamInitDataUnsafe = "tgWebAppDataUnsafe"

	HeaderInitData = "X-Telegram-Init-Data"
)

// Signals are the host context hints visible at mount time.
type Signals struct {
	WebAppBridge   bool
	LoginBridge    bool
	InitData       string
	Platform       string
	InitDataUnsafe string
	Query          url.Values
	UserAgent      string
}

// Verdict says which login strategy a view uses.
type Verdict struct {
	EmbeddedClient bool
	// Reason names the first signal that matched, for logs.
	Reason string
}

// Classify decides whether the page is hosted by an embedded client. Every
// signal is supplied by the client and can be forged, so the verdict only
// selects a login call and must never gate access.
func Classify(s Signals) Verdict {
	switch {
	case s.WebAppBridge:
		return Verdict{EmbeddedClient: true, Reason: "webapp-bridge"}
	case s.LoginBridge:
		return Verdict{EmbeddedClient: true, Reason: "login-bridge"}
	case s.InitData != "":
		return Verdict{EmbeddedClient: true, Reason: "init-data"}
	case s.Platform != "":
		return Verdict{EmbeddedClient: true, Reason: "platform"}
	case s.InitDataUnsafe != "":
		return Verdict{EmbeddedClient: true, Reason: "init-data-unsafe"}
	case s.Query.Get(ParamTelegram) == "1":
		return Verdict{EmbeddedClient: true, Reason: "query"}
	case strings.Contains(strings.ToLower(s.UserAgent), "telegram"):
		return Verdict{EmbeddedClient: true, Reason: "user-agent"}
	}
	return Verdict{}
}

// SignalsFromQuery reads the host signals carried in a query string.
func SignalsFromQuery(q url.Values) Signals {
	return Signals{
		WebAppBridge:   q.Get(ParamWebAppBridge) == "1",
		LoginBridge:    q.Get(ParamLoginBridge) == "1",
		InitData:       q.Get(ParamInitData),
		Platform:       q.Get(ParamPlatform),
		InitDataUnsafe: q.Get(ParamInitDataUnsafe),
		Query:          q,
	}
}

func SignalsFromRequest(r *http.Request) Signals {
	q := url.Values{}
	if r.URL != nil {
		q = r.URL.Query()
	}
	s := SignalsFromQuery(q)
	if s.InitData == "" {
		s.InitData = strings.TrimSpace(r.Header.Get(HeaderInitData))
	}
	s.UserAgent = r.UserAgent()
	return s
}
