package main

import (
	"bytes"
	"html/template"
	"log"
	"net/http"

	"admindash/internal/login"
	"admindash/internal/types"
)

// telegramWebAppSDK defines window.Telegram.WebApp inside Telegram clients.
const telegramWebAppSDK = "https://telegram.org/js/telegram-web-app.js"

var messages = map[string]string{
	login.ErrFieldRequired: "This field is required.",
}

type loginPage struct {
	Username       string
	FieldErrors    login.FieldErrors
	Banner         string
	Submitting     bool
	EmbeddedClient bool
}

func (p loginPage) FieldError(name string) string {
	key := p.FieldErrors[name]
	if key == "" {
		return ""
	}
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

type dashboardPage struct {
	Admin *types.Admin
}

func serveLogin(w http.ResponseWriter, page loginPage, status int) {
	renderHTML(w, loginTemplate, page, status)
}

func renderHTML(w http.ResponseWriter, tmpl *template.Template, data any, status int) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Printf("render %s: %v", tmpl.Name(), err)
		http.Error(w, "Page unavailable.", http.StatusInternalServerError)
		return
	}
	setNoCacheHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("write %s: %v", tmpl.Name(), err)
	}
}

const pageStyle = `
    :root { --bg:#0b1224; --panel:#0f172a; --accent:#38bdf8; --muted:#94a3b8; --line:rgba(255,255,255,0.1); }
    body { margin:0; font-family: "Space Grotesk", "Segoe UI", sans-serif; background:var(--bg); color:#e2e8f0;
      display:flex; align-items:center; justify-content:center; min-height:100vh; padding:24px; }
    .card { background:var(--panel); border:1px solid var(--line); border-radius:18px; padding:36px 40px; max-width:340px; width:100%; }
    h1 { margin:0 0 8px; font-size:24px; }
    p { margin:4px 0; color:var(--muted); }
    form { display:grid; gap:10px; margin-top:18px; }
    input { width:100%; box-sizing:border-box; background:var(--bg); border:1px solid var(--line); color:#e2e8f0; border-radius:10px; padding:10px 12px; font-size:15px; }
    .field-error { margin-top:4px; font-size:12px; color:#fca5a5; }
    button { width:100%; border:0; border-radius:10px; padding:12px 14px; font-weight:600; background:var(--accent); color:#062238; cursor:pointer; }
    button[disabled] { opacity:0.6; cursor:progress; }
    .error { padding:10px 12px; border-radius:10px; border:1px solid rgba(248,113,113,0.4); background:rgba(248,113,113,0.12); color:#fecaca; font-size:13px; }
`

var loginTemplate = template.Must(template.New("login").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Login</title>
  <style>` + pageStyle + `</style>
  <script src="` + telegramWebAppSDK + `"></script>
</head>
<body>
  <div class="card">
    <h1>Login to your account</h1>
    <p>Welcome back, please enter your details.</p>
    <form method="post" action="/login" id="login-form" novalidate>
      <div>
        <input id="username" name="username" placeholder="Username" autocomplete="username" value="{{.Username}}">
        {{with .FieldError "username"}}<div class="field-error">{{.}}</div>{{end}}
      </div>
      <div>
        <input id="password" name="password" type="password" placeholder="Password" autocomplete="current-password">
        {{with .FieldError "password"}}<div class="field-error">{{.}}</div>{{end}}
      </div>
      <input type="hidden" id="tg-init-data" name="` + login.ParamInitData + `">
      {{with .Banner}}<div class="error" role="alert">{{.}}</div>{{end}}
      <button type="submit" id="login-submit"{{if .Submitting}} disabled aria-busy="true"{{end}}>Login</button>
    </form>
  </div>
  <script>
    document.getElementById("login-form").addEventListener("submit", function () {
      var b = document.getElementById("login-submit");
      b.disabled = true;
      b.setAttribute("aria-busy", "true");
    });
    (function () {
      var hash = new URLSearchParams(window.location.hash.slice(1));
      var tg = window.Telegram && window.Telegram.WebApp;
      var initData = (tg && tg.initData) || hash.get("tgWebAppData") || "";
      var platform = (tg && tg.platform && tg.platform !== "unknown" && tg.platform) || hash.get("tgWebAppPlatform") || "";
      if (initData) { document.getElementById("tg-init-data").value = initData; }
      {{- if not .EmbeddedClient}}
      if (!initData && !platform && !window.TelegramLogin) { return; }
      var p = new URLSearchParams(window.location.search);
      if (p.get("tgWebApp") === "1" || p.get("tgLogin") === "1") { return; }
      if (initData || platform) { p.set("tgWebApp", "1"); }
      if (platform) { p.set("tgWebAppPlatform", platform); }
      if (window.TelegramLogin) { p.set("tgLogin", "1"); }
      window.location.replace(window.location.pathname + "?" + p.toString() + window.location.hash);
      {{- end}}
    })();
  </script>
</body>
</html>
`))

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Dashboard</title>
  <style>` + pageStyle + `</style>
</head>
<body>
  <div class="card">
    <h1>Dashboard</h1>
    {{with .Admin}}{{if .GetName}}<p>Signed in as <strong>{{.GetName}}</strong>{{with .Role}} ({{.}}){{end}}</p>{{end}}{{end}}
    <form method="post" action="/logout">
      <button type="submit">Logout</button>
    </form>
  </div>
</body>
</html>
`))
