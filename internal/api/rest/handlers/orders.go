package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/imagepipeline"
	"github.com/CameronXie/tailor-ledger/internal/repository"
	"github.com/CameronXie/tailor-ledger/internal/stats"
)

// maxOrderBody bounds order payloads, which may carry inline photos.
const maxOrderBody = 64 << 20

// OrderService is the order store as seen by the HTTP layer.
type OrderService interface {
	List(ctx context.Context, userID uuid.UUID, filter repository.OrderFilter) ([]*domain.Order, error)
	Get(ctx context.Context, userID uuid.UUID, id string) (*domain.Order, error)
	Save(ctx context.Context, userID uuid.UUID, order *domain.Order) (*domain.Order, error)
	Remove(ctx context.Context, userID uuid.UUID, id string) error
	Toggle(ctx context.Context, userID uuid.UUID, id string, now time.Time) (*domain.Order, error)
}

type ImageResolver interface {
	ResolveAll(ctx context.Context, refs []string, size imagepipeline.Size) []string
}

// OrderView is an order as the client renders it. Images keeps the stored
// references to send back on edit; ImageURLs holds displayable URLs.
type OrderView struct {
	*domain.Record
	ImageURLs   []string      `json:"imageUrls"`
	Urgency     stats.Urgency `json:"urgency,omitempty"`
	PendingDays int           `json:"pendingDays,omitempty"`
}

type OrderHandler struct {
	orders   OrderService
	resolver ImageResolver
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrderHandler(orders OrderService, resolver ImageResolver, loc *time.Location, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		resolver: resolver,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// List handles GET /orders?status=&q=&from=&to=&size=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	filter, err := h.parseFilter(r)
	if err != nil {
		response.JSONErrorWithMessage(w, http.StatusBadRequest, invalidQueryMessage, err.Error())
		return
	}

	orders, err := h.orders.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, h.logger, "failed to list orders", err)
		return
	}

	size := imagepipeline.ParseSize(r.URL.Query().Get("size"))
	now := h.now()

	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, h.view(r.Context(), o, size, now))
	}

	response.JSONResponse(w, http.StatusOK, map[string]any{"data": views})
}

func (h *OrderHandler) parseFilter(r *http.Request) (repository.OrderFilter, error) {
	q := r.URL.Query()
	filter := repository.OrderFilter{
		Status: domain.Status(q.Get("status")),
		Search: q.Get("q"),
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return filter, &domain.ValidationError{Field: "status", Message: "unknown status " + q.Get("status")}
	}

	if v := q.Get("from"); v != "" {
		from, err := parseDate(v, h.location)
		if err != nil {
			return filter, err
		}
		filter.From = from
	}

	if v := q.Get("to"); v != "" {
		to, err := parseDate(v, h.location)
		if err != nil {
			return filter, err
		}
		filter.To = endOfRange(to)
	}

	return filter, nil
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, "failed to get order", err)
		return
	}

	response.JSONResponse(w, http.StatusOK, h.view(r.Context(), o, imagepipeline.SizeFull, h.now()))
}

// Create handles POST /orders. Temporary client ids are replaced.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	o, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	if o.CreatedAt.Equal(time.UnixMilli(0)) {
		o.CreatedAt = h.now()
	}

	h.save(w, r, userID, o, http.StatusCreated)
}

// Update handles PUT /orders/{id}. The order must already exist.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if !domain.IsPermanentID(id) {
		response.JSONErrorResponse(w, http.StatusNotFound, notFoundMessage)
		return
	}

	o, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	existing, err := h.orders.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, "failed to get order", err)
		return
	}

	o.ID = id
	if o.CreatedAt.Equal(time.UnixMilli(0)) {
		o.CreatedAt = existing.CreatedAt
	}

	h.save(w, r, userID, o, http.StatusOK)
}

func (h *OrderHandler) decodeOrder(w http.ResponseWriter, r *http.Request) (*domain.Order, bool) {
	rec := new(domain.Record)
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBody)).Decode(rec); err != nil {
		response.JSONErrorResponse(w, http.StatusBadRequest, invalidRequestBodyMessage)
		return nil, false
	}

	o, err := rec.Order()
	if err != nil {
		response.JSONErrorWithMessage(w, http.StatusBadRequest, "invalid price", "请输入价格")
		return nil, false
	}

	return o, true
}

func (h *OrderHandler) save(w http.ResponseWriter, r *http.Request, userID uuid.UUID, o *domain.Order, status int) {
	saved, err := h.orders.Save(r.Context(), userID, o)
	if err != nil {
		writeError(w, r, h.logger, "failed to save order", err)
		return
	}

	h.logger.InfoContext(r.Context(), "order saved", "order_id", saved.ID, "images", len(saved.Images))
	response.JSONResponse(w, status, h.view(r.Context(), saved, imagepipeline.SizeFull, h.now()))
}

// Toggle handles POST /orders/{id}/toggle.
func (h *OrderHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	o, err := h.orders.Toggle(r.Context(), userID, r.PathValue("id"), h.now())
	if err != nil {
		writeError(w, r, h.logger, "failed to toggle order", err)
		return
	}

	response.JSONResponse(w, http.StatusOK, h.view(r.Context(), o, imagepipeline.SizeThumb, h.now()))
}

// Delete handles DELETE /orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r, h.logger)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.orders.Remove(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, "failed to delete order", err)
		return
	}

	h.logger.InfoContext(r.Context(), "order deleted", "order_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) view(ctx context.Context, o *domain.Order, size imagepipeline.Size, now time.Time) *OrderView {
	v := &OrderView{
		Record:    domain.NewRecord(o),
		ImageURLs: h.resolver.ResolveAll(ctx, o.Images, size),
	}

	if o.Status == domain.StatusPending {
		v.Urgency = stats.UrgencyOf(o, now)
		v.PendingDays = int(math.Floor(o.PendingDays(now)))
	}

	return v
}
