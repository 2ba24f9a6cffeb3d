package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/storage"
)

const thumbQuality = 80

type MediaStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Verify(key, token string) (int, error)
}

// MediaHandler serves GET /media/{key...} for filesystem storage. The token
// query parameter is the signature issued by SignedURL; a width bound to it
// selects a downscaled rendition.
type MediaHandler struct {
	store  MediaStore
	logger *slog.Logger
}

func NewMediaHandler(store MediaStore, logger *slog.Logger) http.Handler {
	return &MediaHandler{store: store, logger: logger}
}

func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	width, err := h.store.Verify(key, r.URL.Query().Get("token"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "rejected media request", "key", key, "error", err)
		response.JSONErrorResponse(w, http.StatusForbidden, "forbidden")
		return
	}

	data, err := h.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.JSONErrorResponse(w, http.StatusNotFound, notFoundMessage)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to read media", "key", key, "error", err)
		response.JSONErrorResponse(w, http.StatusInternalServerError, internalServerErrorMessage)
		return
	}

	if width > 0 {
		if thumb, err := downscale(data, width); err != nil {
			h.logger.WarnContext(r.Context(), "serving full image, downscale failed", "key", key, "error", err)
		} else {
			data = thumb
		}
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// downscale returns a JPEG no wider than width. Narrower images are returned unchanged.
func downscale(data []byte, width int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dx() <= width {
		return data, nil
	}

	var buf bytes.Buffer
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(thumbQuality)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
