package app

import (
	"io/fs"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/portal/internal/access"
	"github.com/odyssey-erp/portal/internal/auth"
	"github.com/odyssey-erp/portal/internal/dashboard"
	"github.com/odyssey-erp/portal/internal/guard"
	"github.com/odyssey-erp/portal/internal/nav"
	"github.com/odyssey-erp/portal/internal/observability"
	"github.com/odyssey-erp/portal/internal/platform/httpx"
	"github.com/odyssey-erp/portal/internal/resources"
	"github.com/odyssey-erp/portal/internal/shared"
	"github.com/odyssey-erp/portal/jobs"
	"github.com/odyssey-erp/portal/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	Guard            *guard.Guard
	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	ResourceHandlers []*resources.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	if params.Guard == nil {
		params.Guard = &guard.Guard{Logger: params.Logger, Metrics: params.Metrics}
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	enforce := params.Config != nil && params.Config.EnforceRoleRoutes
	policy := access.Middleware{Logger: params.Logger}

	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Protect)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		})
		r.Get("/api/session", sessionInfo)

		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		for _, h := range params.ResourceHandlers {
			entry := h.Entry()
			r.Route(entry.Route, func(r chi.Router) {
				if enforce {
					r.Use(policy.RequireVisible(entry.Resource))
				}
				h.MountRoutes(r)
			})
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		ensureMimeType(params.Logger, ".css", "text/css; charset=utf-8")
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

type menuEntry struct {
	Resource string `json:"resource"`
	Label    string `json:"label"`
	Route    string `json:"route"`
}

type sessionResponse struct {
	UserID       string      `json:"userId"`
	Email        string      `json:"email"`
	FullName     string      `json:"fullName"`
	Role         string      `json:"role"`
	CompanyID    string      `json:"companyId,omitempty"`
	SubCompanyID string      `json:"subCompanyId,omitempty"`
	BranchID     string      `json:"branchId,omitempty"`
	Menu         []menuEntry `json:"menu"`
}

// sessionInfo reports the signed-in identity, without its token, and the
// menu built for its role.
func sessionInfo(w http.ResponseWriter, r *http.Request) {
	id := shared.SessionFromContext(r.Context()).Identity()
	role := access.ParseRole(id.Role)
	menu := nav.BuildMenu(role)
	resp := sessionResponse{
		UserID:       id.UserID,
		Email:        id.Email,
		FullName:     id.FullName,
		Role:         role.String(),
		CompanyID:    id.CompanyID,
		SubCompanyID: id.SubCompanyID,
		BranchID:     id.BranchID,
		Menu:         make([]menuEntry, 0, len(menu)),
	}
	for _, e := range menu {
		resp.Menu = append(resp.Menu, menuEntry{Resource: string(e.Resource), Label: e.Label, Route: e.Route})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

// ensureMimeType covers minimal containers without /etc/mime.types.
func ensureMimeType(logger *slog.Logger, ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		logger.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
