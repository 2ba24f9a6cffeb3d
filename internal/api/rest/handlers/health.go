package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/version"
)

// Pinger is a dependency the health check probes.
type Pinger func(ctx context.Context) error

// NewHealthHandler serves GET /health. Any failing check turns the answer into a 503.
func NewHealthHandler(checks map[string]Pinger, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(r.Context()); err != nil {
				logger.ErrorContext(r.Context(), "health check failed", "check", name, "error", err)
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		response.JSONResponse(w, status, map[string]any{
			"version": version.Version,
			"checks":  results,
		})
	})
}
