package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/export"
)

const maxBackupBytes = 256 << 20

type Importer interface {
	Import(ctx context.Context, userID uuid.UUID, records []domain.Record) (int, error)
}

// ImportHandler restores a JSON backup posted as the request body.
type ImportHandler struct {
	importer Importer
	logger   *slog.Logger
}

func NewImportHandler(importer Importer, logger *slog.Logger) http.Handler {
	return &ImportHandler{importer: importer, logger: logger}
}

func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	records, skipped, err := export.ReadJSON(http.MaxBytesReader(w, r.Body, maxBackupBytes))
	if err != nil {
		h.logger.WarnContext(r.Context(), "rejected backup", "error", err)
		writeError(w, r, h.logger, "failed to read backup", err)
		return
	}

	for _, s := range skipped {
		h.logger.WarnContext(r.Context(), "skipped malformed backup record", "index", s.Index, "error", s.Err)
	}

	imported, err := h.importer.Import(r.Context(), userID, records)
	if err != nil {
		writeError(w, r, h.logger, "failed to import backup", err)
		return
	}

	h.logger.InfoContext(r.Context(), "backup imported",
		"records", len(records), "skipped", len(skipped), "imported", imported)
	response.JSONResponse(w, http.StatusOK, map[string]int{"imported": imported})
}
