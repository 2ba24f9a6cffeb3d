package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/imagepipeline"
	"github.com/CameronXie/tailor-ledger/internal/receipt"
)

type ReceiptComposer interface {
	Compose(ctx context.Context, order *domain.Order) ([]byte, error)
}

// ReceiptHandler serves GET /orders/{id}/receipt as a JPEG, or as a JSON
// data URL with ?format=dataurl.
type ReceiptHandler struct {
	orders   OrderService
	composer ReceiptComposer
	logger   *slog.Logger
}

func NewReceiptHandler(orders OrderService, composer ReceiptComposer, logger *slog.Logger) http.Handler {
	return &ReceiptHandler{orders: orders, composer: composer, logger: logger}
}

func (h *ReceiptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, "failed to get order", err)
		return
	}

	data, err := h.composer.Compose(r.Context(), o)
	if err != nil {
		if errors.Is(err, receipt.ErrNoImages) {
			response.JSONErrorWithMessage(w, http.StatusUnprocessableEntity, "no images", "请至少上传一张照片")
			return
		}

		h.logger.ErrorContext(r.Context(), "failed to compose receipt", "order_id", o.ID, "error", err)
		response.JSONErrorWithMessage(w, http.StatusBadGateway, "failed to compose receipt", "生成图片失败，请检查网络")
		return
	}

	if r.URL.Query().Get("format") == "dataurl" {
		response.JSONResponse(w, http.StatusOK, map[string]string{
			"dataUrl": imagepipeline.EncodeInline(data, "image/jpeg"),
		})
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
