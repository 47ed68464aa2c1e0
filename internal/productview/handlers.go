package productview

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/pagination"
	"github.com/noah-isme/toko-storefront/internal/search"
)

// Handler exposes the product page endpoints.
type Handler struct {
	service    *Service
	pageSize   int
	pageWindow int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service    *Service
	PageSize   int
	PageWindow int
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, pageSize: cfg.PageSize, pageWindow: cfg.PageWindow}
}

// Middlewares wrap single endpoints. Nil entries are skipped.
type Middlewares struct {
	Favorite func(http.Handler) http.Handler
	Cart     func(http.Handler) http.Handler
	Delete   func(http.Handler) http.Handler
}

// Routes mounts the product and draft routes.
func (h *Handler) Routes(r chi.Router, mw Middlewares) {
	r.Post("/products/{id}/drafts", h.Open)
	r.With(orPass(mw.Delete)).Delete("/products/{id}", h.Delete)
	r.Get("/products/{id}/links", h.Links)
	r.Route("/drafts/{draftID}", func(d chi.Router) {
		d.Get("/", h.Get)
		d.Delete("/", h.Discard)
		d.Post("/options/{optionID}", h.Select)
		d.Delete("/options/{optionID}", h.Remove)
		d.Post("/options/{optionID}/increase", h.Increase)
		d.Post("/options/{optionID}/decrease", h.Decrease)
		d.Put("/image/{index}", h.SelectImage)
		d.With(orPass(mw.Favorite)).Post("/favorite", h.ToggleFavorite)
		d.With(orPass(mw.Cart)).Post("/cart", h.AddToCart)
	})
}

func orPass(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

// Open handles POST /api/v1/products/{id}/drafts.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	id, err := common.Int64Param(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.Open(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/drafts/"+view.DraftID)
	common.JSON(w, http.StatusCreated, view)
}

// Get handles GET /api/v1/drafts/{draftID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), auth.FromRequest(r), chi.URLParam(r, "draftID"))
	respond(w, view, err)
}

// Discard handles DELETE /api/v1/drafts/{draftID}.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Discard(r.Context(), chi.URLParam(r, "draftID")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select handles POST /api/v1/drafts/{draftID}/options/{optionID}.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	h.option(w, r, h.service.Select)
}

// Remove handles DELETE /api/v1/drafts/{draftID}/options/{optionID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	h.option(w, r, h.service.Remove)
}

// Increase handles POST /api/v1/drafts/{draftID}/options/{optionID}/increase.
func (h *Handler) Increase(w http.ResponseWriter, r *http.Request) {
	h.option(w, r, h.service.Increase)
}

// Decrease handles POST /api/v1/drafts/{draftID}/options/{optionID}/decrease.
func (h *Handler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.option(w, r, h.service.Decrease)
}

type optionAction func(ctx context.Context, p auth.Principal, draftID string, optionID int64) (View, error)

func (h *Handler) option(w http.ResponseWriter, r *http.Request, action optionAction) {
	optionID, err := common.Int64Param(r, "optionID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := action(r.Context(), auth.FromRequest(r), chi.URLParam(r, "draftID"), optionID)
	respond(w, view, err)
}

// SelectImage handles PUT /api/v1/drafts/{draftID}/image/{index}.
func (h *Handler) SelectImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "index")))
	if err != nil {
		common.WriteError(w, common.BadRequest("invalid index", err))
		return
	}
	view, err := h.service.SelectImage(r.Context(), auth.FromRequest(r), chi.URLParam(r, "draftID"), index)
	respond(w, view, err)
}

// ToggleFavorite handles POST /api/v1/drafts/{draftID}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ToggleFavorite(r.Context(), auth.FromRequest(r), chi.URLParam(r, "draftID"))
	respond(w, view, err)
}

// AddToCart handles POST /api/v1/drafts/{draftID}/cart.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.AddToCart(r.Context(), auth.FromRequest(r), chi.URLParam(r, "draftID"))
	respond(w, view, err)
}

// Delete handles DELETE /api/v1/products/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := common.Int64Param(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.service.Delete(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// Links handles GET /api/v1/products/{id}/links. It returns the page buttons
// for a search result list, keeping k and c on every link.
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := search.FromValues(q)
	if err != nil {
		common.WriteError(w, common.BadRequest("invalid search", err))
		return
	}
	total := common.AtoiDefault(strings.TrimSpace(q.Get("total")), 0)
	if total < 0 {
		total = 0
	}
	info := pagination.Compute(pagination.ParsePage(q), total, h.pageSize, h.pageWindow)
	common.JSON(w, http.StatusOK, map[string]any{
		"search":   query,
		"pageInfo": info,
		"links":    pagination.Links(info, query.Values()),
	})
}

func respond(w http.ResponseWriter, view View, err error) {
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}
