package handlers

import (
	"net/http"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/config"
)

// NewProfileHandler serves GET /profile: the shop title, form shortcuts and time zone.
func NewProfileHandler(profile *config.Profile) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.JSONResponse(w, http.StatusOK, profile)
	})
}
