package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/reconciler"
)

type Reconciler interface {
	Run(ctx context.Context) (reconciler.Result, error)
}

// NewReconcileHandler serves POST /admin/reconcile.
func NewReconcileHandler(rec Reconciler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := rec.Run(r.Context())
		if err != nil {
			writeError(w, r, logger, "failed to reconcile storage", err)
			return
		}

		logger.InfoContext(r.Context(), "reconcile finished", "scanned", result.Scanned, "removed", result.Removed)
		response.JSONResponse(w, http.StatusOK, result)
	})
}
