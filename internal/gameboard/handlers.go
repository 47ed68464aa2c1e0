package gameboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/common"
)

// Handler exposes the board endpoints.
type Handler struct {
	Service *Service
}

// Routes mounts the board routes. like and remove wrap the like and delete
// endpoints when non-nil.
func (h *Handler) Routes(r chi.Router, like, remove func(http.Handler) http.Handler) {
	r.Get("/boards/{id}", h.Get)
	r.With(passThrough(remove)).Delete("/boards/{id}", h.Delete)
	r.With(passThrough(like)).Post("/boards/{id}/like", h.Like)
}

func passThrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

// Get handles GET /api/v1/boards/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := common.Int64Param(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Service.Open(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// Like handles POST /api/v1/boards/{id}/like.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	id, err := common.Int64Param(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.Service.ToggleLike(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, res)
}

// Delete handles DELETE /api/v1/boards/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := common.Int64Param(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.Service.Delete(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, res)
}
