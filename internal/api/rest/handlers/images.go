package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
)

const (
	maxUploadBytes  = 32 << 20
	uploadFormField = "file"
)

type ImageCompressor interface {
	Compress(data []byte) (string, error)
}

// ImageUploadHandler handles POST /images: a multipart photo is compressed
// to a JPEG data URL the client adds to the order form.
type ImageUploadHandler struct {
	compressor ImageCompressor
	logger     *slog.Logger
}

func NewImageUploadHandler(compressor ImageCompressor, logger *slog.Logger) http.Handler {
	return &ImageUploadHandler{compressor: compressor, logger: logger}
}

func (h *ImageUploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.JSONErrorResponse(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		response.JSONErrorWithMessage(w, http.StatusBadRequest, invalidRequestBodyMessage, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.JSONErrorResponse(w, http.StatusBadRequest, invalidRequestBodyMessage)
		return
	}

	dataURL, err := h.compressor.Compress(data)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to compress image", "size", len(data), "error", err)
		response.JSONErrorWithMessage(w, http.StatusBadRequest, "invalid image", "图片处理失败")
		return
	}

	response.JSONResponse(w, http.StatusOK, map[string]string{"dataUrl": dataURL})
}
