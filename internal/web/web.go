package web

import (
    "html/template"
    "net/http"
    "path/filepath"

    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/config"
)

// Web serves the review dashboard: load a document, run detection, tick the
// chapters to keep, set a page offset and export. The dashboard talks to the
// JSON API on the same listener.
type Web struct {
    tpl  *template.Template
    conf config.WebConfig
}

func New(conf config.WebConfig) (*Web, error) {
    tpl, err := template.ParseGlob(filepath.Join("web", "templates", "*.html"))
    if err != nil {
        return nil, err
    }
    return &Web{tpl: tpl, conf: conf}, nil
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/", func(wr http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/" {
            http.NotFound(wr, r)
            return
        }
        http.Redirect(wr, r, "/web/dashboard", http.StatusSeeOther)
    })
    mux.HandleFunc("/web/login", w.handleLogin)
    mux.HandleFunc("/web/logout", w.handleLogout)
    mux.HandleFunc("/web/", w.requireAuth(w.handleDashboard))
    mux.HandleFunc("/web/dashboard", w.requireAuth(w.handleDashboard))
}

func (w *Web) render(wr http.ResponseWriter, name string, data any) {
    if err := w.tpl.ExecuteTemplate(wr, name, data); err != nil {
        log.Error().Err(err).Str("template", name).Msg("template render failed")
    }
}

// authEnabled reports whether credentials are configured. With no
// credentials the dashboard is open, the usual mode for a local tool.
func (w *Web) authEnabled() bool {
    return w.conf.Username != "" && w.conf.Password != ""
}

func (w *Web) requireAuth(next http.HandlerFunc) http.HandlerFunc {
    return func(wr http.ResponseWriter, r *http.Request) {
        if !w.authEnabled() {
            next(wr, r)
            return
        }
        c, err := r.Cookie("auth")
        if err != nil || c.Value != "1" {
            http.Redirect(wr, r, "/web/login", http.StatusSeeOther)
            return
        }
        next(wr, r)
    }
}

func (w *Web) handleLogin(wr http.ResponseWriter, r *http.Request) {
    if !w.authEnabled() {
        http.Redirect(wr, r, "/web/dashboard", http.StatusSeeOther)
        return
    }
    switch r.Method {
    case http.MethodGet:
        w.render(wr, "login.html", map[string]any{"Error": r.URL.Query().Get("error")})
    case http.MethodPost:
        if err := r.ParseForm(); err != nil {
            http.Redirect(wr, r, "/web/login?error=invalid+form", http.StatusSeeOther)
            return
        }
        if r.Form.Get("username") == w.conf.Username && r.Form.Get("password") == w.conf.Password {
            http.SetCookie(wr, &http.Cookie{Name: "auth", Value: "1", Path: "/", HttpOnly: true})
            http.Redirect(wr, r, "/web/dashboard", http.StatusSeeOther)
            return
        }
        http.Redirect(wr, r, "/web/login?error=invalid+credentials", http.StatusSeeOther)
    default:
        wr.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (w *Web) handleLogout(wr http.ResponseWriter, r *http.Request) {
    http.SetCookie(wr, &http.Cookie{Name: "auth", Value: "", Path: "/", MaxAge: -1})
    http.Redirect(wr, r, "/web/login", http.StatusSeeOther)
}

func (w *Web) handleDashboard(wr http.ResponseWriter, r *http.Request) {
    w.render(wr, "dashboard.html", map[string]any{
        "Username":    w.conf.Username,
        "AuthEnabled": w.authEnabled(),
    })
}
