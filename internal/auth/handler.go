package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/portal/internal/apiclient"
	"github.com/odyssey-erp/portal/internal/guard"
	"github.com/odyssey-erp/portal/internal/observability"
	"github.com/odyssey-erp/portal/internal/shared"
	"github.com/odyssey-erp/portal/internal/view"
)

const homePath = "/dashboard"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	renderer       *view.Renderer
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	metrics        *observability.Metrics
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, renderer *view.Renderer, sessions *shared.SessionManager, csrf *shared.CSRFManager, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		renderer:       renderer,
		sessionManager: sessions,
		csrfManager:    csrf,
		metrics:        metrics,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
	Next   string
}

type registerForm struct {
	FullName string `validate:"required,max=120"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"omitempty,max=32"`
	Password string `validate:"required,min=8"`
}

type registerPageData struct {
	Form   registerForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, homePath, http.StatusSeeOther)
		return
	}
	data := loginPageData{Next: guard.SafeNext(r.URL.Query().Get("next"), "")}
	h.renderer.Render(w, r, "pages/login.html", "Sign in", data, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := guard.SafeNext(r.PostFormValue("next"), "")
	errs := h.validate(form)
	if len(errs) == 0 {
		id, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		if err == nil {
			h.signIn(w, r, id, "Welcome back", guard.SafeNext(next, homePath))
			return
		}
		errs["general"] = h.failure(err, "login")
	}
	form.Password = ""
	h.renderer.Render(w, r, "pages/login.html", "Sign in", loginPageData{Form: form, Errors: errs, Next: next}, http.StatusBadRequest)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, homePath, http.StatusSeeOther)
		return
	}
	h.renderer.Render(w, r, "pages/register.html", "Register", registerPageData{}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		FullName: strings.TrimSpace(r.PostFormValue("full_name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Phone:    strings.TrimSpace(r.PostFormValue("phone")),
		Password: r.PostFormValue("password"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		id, err := h.service.Register(r.Context(), apiclient.RegisterRequest{
			FullName: form.FullName,
			Email:    form.Email,
			Password: form.Password,
			Phone:    form.Phone,
		})
		if err == nil {
			h.signIn(w, r, id, "Your account is ready", homePath)
			return
		}
		errs["general"] = h.failure(err, "register")
	}
	form.Password = ""
	h.renderer.Render(w, r, "pages/register.html", "Register", registerPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		sess.ClearIdentity()
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, guard.SignInPath, http.StatusSeeOther)
}

// signIn stores the identity in the session and leaves the sign-in view.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, id shared.Identity, greeting, target string) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during sign-in")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := sess.SaveIdentity(id); err != nil {
		h.logger.Error("save identity", slog.Any("error", err))
		h.metrics.SignIn("error")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	previous := h.sessionManager.Renew(sess)
	if _, err := h.csrfManager.Rotate(sess); err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
	if err := h.service.RegisterSession(r.Context(), sess.ID, previous, id, h.sessionManager.TTL(), r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.metrics.SignIn("success")
	h.logger.Info("signed in", slog.String("user_id", id.UserID), slog.String("role", id.Role))
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: greeting})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) failure(err error, op string) string {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		h.metrics.SignIn("rejected")
		if op == "register" {
			return "Registration was rejected, check the details and try again"
		}
		return "Invalid email or password"
	case errors.Is(err, apiclient.ErrValidation):
		h.metrics.SignIn("rejected")
		return apiclient.UserMessage(err)
	case errors.Is(err, shared.ErrIncompleteIdentity):
		h.metrics.SignIn("error")
		h.logger.Error(op+" incomplete identity", slog.Any("error", err))
		return "The service returned an incomplete account, contact your administrator"
	default:
		h.metrics.SignIn("error")
		h.logger.Error(op+" failed", slog.Any("error", err))
		return "The service is unavailable, try again later"
	}
}

func (h *Handler) validate(form any) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs[fe.Field()] = fieldMessage(fe)
			}
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	}
	return "Invalid value"
}

func (h *Handler) signedIn(r *http.Request) bool {
	sess := shared.SessionFromContext(r.Context())
	return sess != nil && sess.Identity().Authenticated()
}
