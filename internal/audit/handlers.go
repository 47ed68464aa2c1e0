package audit

import (
	"net/http"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/common"
)

// Handler exposes the recent audit trail to administrators.
type Handler struct {
	Store Store
}

// List handles GET /api/v1/admin/audit.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if !auth.FromRequest(r).IsAdmin() {
		common.WriteError(w, common.Forbidden("administrators only"))
		return
	}
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := h.Store.Recent(r.Context(), limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit entries", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
