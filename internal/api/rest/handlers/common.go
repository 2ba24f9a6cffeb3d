package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/middlewares"
	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/export"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

const (
	invalidRequestBodyMessage  = "invalid request body"
	invalidQueryMessage        = "invalid query"
	internalServerErrorMessage = "internal server error"
	notFoundMessage            = "not found"
	authenticationRequired     = "authentication required"
)

// userIDFrom reads the authenticated user. It answers 401 itself when the
// id is missing.
func userIDFrom(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	id, ok := middlewares.UserIDFromContext(r.Context())
	if !ok {
		logger.ErrorContext(r.Context(), "user id not found in context")
		response.JSONErrorResponse(w, http.StatusUnauthorized, authenticationRequired)
	}

	return id, ok
}

// writeError maps domain and repository errors to responses. Anything
// unrecognised is logged and answered with a 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	var (
		notFound   *repository.NotFoundError
		validation *domain.ValidationError
	)

	switch {
	case errors.As(err, &notFound):
		response.JSONErrorResponse(w, http.StatusNotFound, notFoundMessage)
	case errors.As(err, &validation):
		response.JSONErrorWithMessage(w, http.StatusBadRequest, "invalid "+validation.Field, validation.Message)
	case errors.Is(err, export.ErrInvalidBackup):
		response.JSONErrorWithMessage(w, http.StatusBadRequest, invalidRequestBodyMessage, export.ErrInvalidBackup.Error())
	default:
		logger.ErrorContext(r.Context(), msg, "error", err)
		response.JSONErrorResponse(w, http.StatusInternalServerError, internalServerErrorMessage)
	}
}

// parseDate reads a query date in the shop time zone. Values without a time
// of day are returned as midnight.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}

	return t, nil
}

// endOfRange turns an inclusive "to" date into an exclusive bound: a bare
// date covers that whole day.
func endOfRange(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.AddDate(0, 0, 1)
	}

	return t
}
