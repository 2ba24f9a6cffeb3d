package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/capability"
)

// CapabilityHandler lists server capabilities and answers single requests.
type CapabilityHandler struct {
	registry *capability.Registry
	logger   *slog.Logger
}

func NewCapabilityHandler(registry *capability.Registry, logger *slog.Logger) *CapabilityHandler {
	return &CapabilityHandler{registry: registry, logger: logger}
}

// List handles GET /capabilities.
func (h *CapabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	response.JSONResponse(w, http.StatusOK, map[string]any{"data": h.registry.Report(r.Context(), userID.String())})
}

// Request handles GET /capabilities/{name}.
func (h *CapabilityHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	c, err := h.registry.Lookup(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, capability.ErrUnknown) {
			response.JSONErrorResponse(w, http.StatusNotFound, notFoundMessage)
			return
		}
		writeError(w, r, h.logger, "failed to look up capability", err)
		return
	}

	permission, err := c.Request(r.Context(), userID.String())
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to request capability", "capability", c.Name(), "error", err)
	}

	response.JSONResponse(w, http.StatusOK, capability.Report{
		Name:       c.Name(),
		Status:     c.Detect(r.Context()),
		Permission: permission,
	})
}
