// Package dashboard renders the landing view with record counts for every
// resource the signed-in role can see.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/portal/internal/access"
	"github.com/odyssey-erp/portal/internal/apiclient"
	"github.com/odyssey-erp/portal/internal/guard"
	"github.com/odyssey-erp/portal/internal/nav"
	"github.com/odyssey-erp/portal/internal/shared"
	"github.com/odyssey-erp/portal/internal/view"
)

// Lister is the read side of the CRUD client.
type Lister interface {
	List(ctx context.Context, id shared.Identity, res access.Resource) ([]apiclient.Record, error)
}

// Card is one counter tile.
type Card struct {
	Entry nav.Entry
	Count int
	Err   error
}

// Handler serves the dashboard.
type Handler struct {
	logger   *slog.Logger
	lister   Lister
	renderer *view.Renderer
	guard    *guard.Guard
}

// NewHandler constructs a dashboard Handler.
func NewHandler(logger *slog.Logger, lister Lister, renderer *view.Renderer, g *guard.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, lister: lister, renderer: renderer, guard: g}
}

// MountRoutes registers the dashboard route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id := shared.SessionFromContext(r.Context()).Identity()
	cards, err := Cards(r.Context(), h.lister, id)
	if h.guard.Handle(w, r, err) {
		return
	}
	for _, c := range cards {
		if c.Err != nil {
			h.logger.Warn("dashboard count failed", slog.String("resource", string(c.Entry.Resource)), slog.Any("error", c.Err))
		}
	}
	h.renderer.Render(w, r, "pages/dashboard.html", "Dashboard", map[string]any{"Cards": cards}, http.StatusOK)
}

// Cards counts the records of every resource in the identity's menu,
// fetching them concurrently. An authentication rejection aborts the whole
// set and is returned; other failures are recorded on their card.
func Cards(ctx context.Context, lister Lister, id shared.Identity) ([]Card, error) {
	var cards []Card
	for _, e := range nav.BuildMenu(access.ParseRole(id.Role)) {
		if _, ok := apiclient.Endpoint(e.Resource); ok {
			cards = append(cards, Card{Entry: e})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range cards {
		card := &cards[i]
		g.Go(func() error {
			records, err := lister.List(gctx, id, card.Entry.Resource)
			if errors.Is(err, apiclient.ErrUnauthenticated) {
				return err
			}
			card.Count, card.Err = len(records), err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cards, nil
}
