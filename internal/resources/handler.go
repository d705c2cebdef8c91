// Package resources binds the CRUD client to list and form views, one
// handler per navigable resource.
package resources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/portal/internal/access"
	"github.com/odyssey-erp/portal/internal/apiclient"
	"github.com/odyssey-erp/portal/internal/guard"
	"github.com/odyssey-erp/portal/internal/nav"
	"github.com/odyssey-erp/portal/internal/shared"
	"github.com/odyssey-erp/portal/internal/view"
)

// Client is the subset of apiclient.Client used by the views.
type Client interface {
	List(ctx context.Context, id shared.Identity, res access.Resource) ([]apiclient.Record, error)
	Get(ctx context.Context, id shared.Identity, res access.Resource, recordID string) (apiclient.Record, error)
	Create(ctx context.Context, id shared.Identity, res access.Resource, rec apiclient.Record) (apiclient.Record, error)
	Update(ctx context.Context, id shared.Identity, res access.Resource, rec apiclient.Record) (apiclient.Record, error)
	Delete(ctx context.Context, id shared.Identity, res access.Resource, recordID string) error
	ApproveForm(ctx context.Context, id shared.Identity, formID string) error
	RejectForm(ctx context.Context, id shared.Identity, formID string) error
}

// Handler serves the list and form views of one resource.
type Handler struct {
	logger    *slog.Logger
	client    Client
	renderer  *view.Renderer
	guard     *guard.Guard
	validator *validator.Validate
	entry     nav.Entry
	fields    []Field
}

// NewHandler builds the handler for res. Resources without an API endpoint
// (the dashboard) are rejected.
func NewHandler(logger *slog.Logger, client Client, renderer *view.Renderer, g *guard.Guard, res access.Resource) (*Handler, error) {
	entry, ok := nav.Lookup(res)
	if !ok {
		return nil, fmt.Errorf("resources: %w: %q", access.ErrUnknownResource, res)
	}
	if _, ok := apiclient.Endpoint(res); !ok {
		return nil, fmt.Errorf("resources: %s: %w", res, apiclient.ErrNoEndpoint)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		client:    client,
		renderer:  renderer,
		guard:     g,
		validator: validator.New(),
		entry:     entry,
		fields:    Fields(res),
	}, nil
}

// Entry returns the navigation entry served by h.
func (h *Handler) Entry() nav.Entry {
	return h.entry
}

// MountRoutes registers the resource routes relative to its navigation route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/new", h.newForm)
	r.Post("/", h.create)
	r.Get("/{id}/edit", h.editForm)
	r.Post("/{id}/edit", h.update)
	r.Post("/{id}/delete", h.delete)
	if h.entry.Resource == access.ResourceForms {
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	}
}

type listData struct {
	Entry     nav.Entry
	Fields    []Field
	Records   []apiclient.Record
	Page      shared.Pagination
	Approvals bool
	Error     string
}

type formData struct {
	Entry    nav.Entry
	Fields   []Field
	RecordID string
	Record   apiclient.Record
	Errors   map[string]string
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.client.List(r.Context(), identity(r), h.entry.Resource)
	if h.guard.Handle(w, r, err) {
		return
	}
	page := shared.NewPagination(shared.ParsePage(r.URL.Query().Get("page")), shared.DefaultPerPage, len(records))
	start, end := page.Bounds()
	data := listData{
		Entry:     h.entry,
		Fields:    h.fields,
		Records:   records[start:end],
		Page:      page,
		Approvals: h.entry.Resource == access.ResourceForms,
	}
	status := http.StatusOK
	if err != nil {
		h.logger.Error("list records failed", slog.Any("error", err), slog.String("resource", string(h.entry.Resource)))
		data.Error = apiclient.UserMessage(err)
		status = http.StatusBadGateway
	}
	h.renderer.Render(w, r, "pages/resource_list.html", h.entry.Label, data, status)
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "", apiclient.Record{}, map[string]string{}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	rec, errs := h.bind(r)
	if len(errs) > 0 {
		h.renderForm(w, r, "", rec, errs, http.StatusBadRequest)
		return
	}
	_, err := h.client.Create(r.Context(), identity(r), h.entry.Resource, rec)
	if h.guard.Handle(w, r, err) {
		return
	}
	if err != nil {
		h.logger.Error("create record failed", slog.Any("error", err), slog.String("resource", string(h.entry.Resource)))
		h.renderForm(w, r, "", rec, map[string]string{"general": apiclient.UserMessage(err)}, statusFor(err))
		return
	}
	h.redirectWithFlash(w, r, h.entry.Route, "success", h.entry.Label+" record created")
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.client.Get(r.Context(), identity(r), h.entry.Resource, id)
	if h.guard.Handle(w, r, err) {
		return
	}
	if err != nil {
		h.logger.Error("get record failed", slog.Any("error", err), slog.String("resource", string(h.entry.Resource)), slog.String("id", id))
		h.redirectWithFlash(w, r, h.entry.Route, "error", apiclient.UserMessage(err))
		return
	}
	h.renderForm(w, r, id, rec, map[string]string{}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	rec, errs := h.bind(r)
	if len(errs) > 0 {
		h.renderForm(w, r, id, rec, errs, http.StatusBadRequest)
		return
	}
	rec["id"] = id
	_, err := h.client.Update(r.Context(), identity(r), h.entry.Resource, rec)
	if h.guard.Handle(w, r, err) {
		return
	}
	if err != nil {
		h.logger.Error("update record failed", slog.Any("error", err), slog.String("resource", string(h.entry.Resource)), slog.String("id", id))
		h.renderForm(w, r, id, rec, map[string]string{"general": apiclient.UserMessage(err)}, statusFor(err))
		return
	}
	h.redirectWithFlash(w, r, h.entry.Route, "success", h.entry.Label+" record updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.client.Delete(r.Context(), identity(r), h.entry.Resource, id)
	if h.guard.Handle(w, r, err) {
		return
	}
	if err != nil {
		h.logger.Error("delete record failed", slog.Any("error", err), slog.String("resource", string(h.entry.Resource)), slog.String("id", id))
		h.redirectWithFlash(w, r, h.entry.Route, "error", apiclient.UserMessage(err))
		return
	}
	h.redirectWithFlash(w, r, h.entry.Route, "success", h.entry.Label+" record deleted")
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.client.ApproveForm, "approved")
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.client.RejectForm, "rejected")
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, shared.Identity, string) error, outcome string) {
	id := chi.URLParam(r, "id")
	err := fn(r.Context(), identity(r), id)
	if h.guard.Handle(w, r, err) {
		return
	}
	if err != nil {
		h.logger.Error("form decision failed", slog.Any("error", err), slog.String("id", id), slog.String("outcome", outcome))
		h.redirectWithFlash(w, r, h.entry.Route, "error", apiclient.UserMessage(err))
		return
	}
	h.redirectWithFlash(w, r, h.entry.Route, "success", "Form "+outcome)
}

// bind copies the submitted fields into a record and validates them.
func (h *Handler) bind(r *http.Request) (apiclient.Record, map[string]string) {
	rec := apiclient.Record{}
	errs := map[string]string{}
	for _, f := range h.fields {
		value := strings.TrimSpace(r.PostFormValue(f.Name))
		if tag := rulesFor(f); tag != "" {
			if err := h.validator.Var(value, tag); err != nil {
				errs[f.Name] = messageFor(f, err)
			}
		}
		if value != "" {
			rec[f.Name] = value
		}
	}
	return rec, errs
}

func rulesFor(f Field) string {
	var rules []string
	if f.Required {
		rules = append(rules, "required")
	} else if f.Type == "email" {
		rules = append(rules, "omitempty")
	}
	if f.Type == "email" {
		rules = append(rules, "email")
	}
	return strings.Join(rules, ",")
}

func messageFor(f Field, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "email" {
		return f.Label + " must be a valid email address"
	}
	return f.Label + " is required"
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, id string, rec apiclient.Record, errs map[string]string, status int) {
	title := "New " + h.entry.Label
	if id != "" {
		title = "Edit " + h.entry.Label
	}
	h.renderer.Render(w, r, "pages/resource_form.html", title, formData{
		Entry:    h.entry,
		Fields:   h.fields,
		RecordID: id,
		Record:   rec,
		Errors:   errs,
	}, status)
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func identity(r *http.Request) shared.Identity {
	return shared.SessionFromContext(r.Context()).Identity()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apiclient.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apiclient.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apiclient.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
