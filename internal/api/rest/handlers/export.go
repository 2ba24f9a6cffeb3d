package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/export"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

type PDFWriter interface {
	Write(w io.Writer, orders []*domain.Order) error
}

// ExportHandler serves GET /export/{format} as a file download.
type ExportHandler struct {
	orders   OrderService
	pdf      PDFWriter
	title    string
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewExportHandler(orders OrderService, pdf PDFWriter, title string, loc *time.Location, logger *slog.Logger) http.Handler {
	return &ExportHandler{orders: orders, pdf: pdf, title: title, location: loc, logger: logger, now: time.Now}
}

func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	format := export.Format(r.PathValue("format"))
	if !format.Valid() {
		response.JSONErrorResponse(w, http.StatusNotFound, notFoundMessage)
		return
	}

	if format == export.FormatPDF && h.pdf == nil {
		response.JSONErrorResponse(w, http.StatusNotImplemented, "pdf export unavailable")
		return
	}

	orders, err := h.orders.List(r.Context(), userID, repository.OrderFilter{})
	if err != nil {
		writeError(w, r, h.logger, "failed to list orders", err)
		return
	}

	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(&buf, orders, h.location)
	case export.FormatJSON:
		err = export.WriteJSON(&buf, orders)
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, orders, h.location)
	case export.FormatPDF:
		err = h.pdf.Write(&buf, orders)
	}

	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to export orders", "format", string(format), "error", err)
		response.JSONErrorResponse(w, http.StatusInternalServerError, internalServerErrorMessage)
		return
	}

	h.logger.InfoContext(r.Context(), "orders exported", "format", string(format), "count", len(orders))
	response.Attachment(w, format.ContentType(), export.FileName(h.title, format, h.now().In(h.location)), buf.Bytes())
}
