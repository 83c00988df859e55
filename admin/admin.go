// Package admin exposes operator endpoints. Reconciliation walks the
// two-sided engagement data (follow edges, like mirrors, bookmark and
// liked-post references) and repairs anything left one-sided.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"quill/models"
	"quill/store"
	"quill/utils"
)

type Handler struct {
	Store store.Reconciler
}

func NewHandler(s store.Reconciler) *Handler {
	return &Handler{Store: s}
}

// Reconcile handles POST /admin/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if utils.GetRoleFromRequest(r) != models.RoleAdmin {
		utils.RespondWithError(w, http.StatusForbidden, "Admin access required")
		return
	}

	// A full scan can outlive the usual handler budget.
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	report, err := h.Store.Repair(ctx)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Reconciliation failed")
		return
	}
	utils.RespondWithData(w, http.StatusOK, report)
}
