package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/repository"
	"github.com/CameronXie/tailor-ledger/internal/stats"
)

const monthLayout = "2006-01"

// DashboardHandler serves GET /dashboard?week=YYYY-MM-DD&month=YYYY-MM.
// Every figure is computed from a fresh read of the user's orders.
type DashboardHandler struct {
	orders   OrderService
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewDashboardHandler(orders OrderService, loc *time.Location, logger *slog.Logger) http.Handler {
	return &DashboardHandler{orders: orders, location: loc, logger: logger, now: time.Now}
}

func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	now := h.now()
	weekOf, monthOf := now, now

	q := r.URL.Query()
	if v := q.Get("week"); v != "" {
		t, err := parseDate(v, h.location)
		if err != nil {
			response.JSONErrorWithMessage(w, http.StatusBadRequest, invalidQueryMessage, err.Error())
			return
		}
		weekOf = t
	}

	if v := q.Get("month"); v != "" {
		t, err := time.ParseInLocation(monthLayout, v, h.location)
		if err != nil {
			response.JSONErrorWithMessage(w, http.StatusBadRequest, invalidQueryMessage, "month must be YYYY-MM")
			return
		}
		monthOf = t
	}

	orders, err := h.orders.List(r.Context(), userID, repository.OrderFilter{})
	if err != nil {
		writeError(w, r, h.logger, "failed to list orders", err)
		return
	}

	response.JSONResponse(w, http.StatusOK, stats.Build(orders, now, weekOf, monthOf, h.location))
}
