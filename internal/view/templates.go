package view

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/portal/internal/access"
	"github.com/odyssey-erp/portal/internal/nav"
	"github.com/odyssey-erp/portal/internal/shared"
	"github.com/odyssey-erp/portal/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        shared.Identity
	RoleLabel   string
	Menu        []nav.Entry
	ActiveRoute string
	Data        any
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// Renderer fills the per-request parts of TemplateData (CSRF token, flash,
// signed-in user and the menu for their role) before rendering.
type Renderer struct {
	Engine *Engine
	CSRF   *shared.CSRFManager
	Logger *slog.Logger
}

// Page builds TemplateData for the current request.
func (rd *Renderer) Page(r *http.Request, title string, data any) TemplateData {
	sess := shared.SessionFromContext(r.Context())
	td := TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	if sess == nil {
		return td
	}
	td.CSRFToken, _ = rd.CSRF.EnsureToken(r.Context(), sess)
	td.Flash = sess.PopFlash()
	td.User = sess.Identity()
	if td.User.Authenticated() {
		role := access.ParseRole(td.User.Role)
		td.RoleLabel = role.String()
		td.Menu = nav.BuildMenu(role)
		td.ActiveRoute = nav.Active(td.Menu, r.URL.Path)
	}
	return td
}

// Render writes the named template with the given status.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, name, title string, data any, status int) {
	td := rd.Page(r, title, data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := rd.Engine.Render(w, name, td); err != nil && rd.Logger != nil {
		rd.Logger.Error("render template", slog.Any("error", err), slog.String("template", name))
	}
}
