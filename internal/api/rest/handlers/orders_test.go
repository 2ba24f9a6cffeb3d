package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/middlewares"
	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/imagepipeline"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

const orderID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) List(ctx context.Context, userID uuid.UUID, filter repository.OrderFilter) ([]*domain.Order, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *mockOrderService) Get(ctx context.Context, userID uuid.UUID, id string) (*domain.Order, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) Save(ctx context.Context, userID uuid.UUID, order *domain.Order) (*domain.Order, error) {
	args := m.Called(ctx, userID, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) Remove(ctx context.Context, userID uuid.UUID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockOrderService) Toggle(ctx context.Context, userID uuid.UUID, id string, now time.Time) (*domain.Order, error) {
	args := m.Called(ctx, userID, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// prefixResolver marks resolved references so tests can tell them from stored ones.
type prefixResolver struct {
	sizes []imagepipeline.Size
}

func (p *prefixResolver) ResolveAll(_ context.Context, refs []string, size imagepipeline.Size) []string {
	p.sizes = append(p.sizes, size)
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = "https://cdn.example.com/" + ref
	}
	return out
}

var (
	shanghai = time.FixedZone("CST", 8*3600)
	fixedNow = time.Date(2024, 5, 20, 10, 0, 0, 0, shanghai)
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:           orderID,
		CustomerName: "王阿姨",
		CreatedAt:    fixedNow.AddDate(0, 0, -6),
		Images:       []string{"orders/u/o/0.jpg"},
		Price:        decimal.NewFromInt(30),
		Status:       domain.StatusPending,
		Source:       domain.SourceOffline,
		Tags:         []string{"改裤脚"},
	}
}

func newOrderHandler(svc OrderService, resolver ImageResolver, logger *slog.Logger) *OrderHandler {
	h := NewOrderHandler(svc, resolver, shanghai, logger)
	h.now = func() time.Time { return fixedNow }
	return h
}

func authed(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(middlewares.WithUserID(r.Context(), userID))
}

func TestOrderHandler_List(t *testing.T) {
	userID := uuid.New()

	cases := map[string]struct {
		query          string
		expectedFilter repository.OrderFilter
		listErr        error
		expectedStatus int
		expectedSize   imagepipeline.Size
		expectedBody   string
		expectedLog    map[string]string
	}{
		"should list orders with thumbnails": {
			query:          "?status=pending&q=王&size=thumb",
			expectedFilter: repository.OrderFilter{Status: domain.StatusPending, Search: "王"},
			expectedStatus: http.StatusOK,
			expectedSize:   imagepipeline.SizeThumb,
		},
		"should treat the to date as inclusive": {
			query: "?from=2024-05-01&to=2024-05-10",
			expectedFilter: repository.OrderFilter{
				From: time.Date(2024, 5, 1, 0, 0, 0, 0, shanghai),
				To:   time.Date(2024, 5, 11, 0, 0, 0, 0, shanghai),
			},
			expectedStatus: http.StatusOK,
			expectedSize:   imagepipeline.SizeFull,
		},
		"should reject an unknown status": {
			query:          "?status=lost",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid query","message":"invalid status: unknown status lost"}`,
		},
		"should reject a malformed date": {
			query:          "?from=someday",
			expectedStatus: http.StatusBadRequest,
		},
		"should log repository failures": {
			listErr:        errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal server error"}`,
			expectedLog: map[string]string{
				"level": "ERROR",
				"msg":   "failed to list orders",
				"error": "connection reset",
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			svc := new(mockOrderService)
			resolver := new(prefixResolver)
			svc.On("List", mock.Anything, userID, mock.Anything).Return([]*domain.Order{sampleOrder()}, tc.listErr)

			h := newOrderHandler(svc, resolver, slog.New(slog.NewJSONHandler(&buf, nil)))
			w := httptest.NewRecorder()
			h.List(w, authed(httptest.NewRequest(http.MethodGet, "/orders"+tc.query, http.NoBody), userID))

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, w.Body.String())
			}

			if tc.expectedStatus == http.StatusOK {
				svc.AssertCalled(t, "List", mock.Anything, userID, mock.MatchedBy(func(f repository.OrderFilter) bool {
					return f.Status == tc.expectedFilter.Status &&
						f.Search == tc.expectedFilter.Search &&
						f.From.Equal(tc.expectedFilter.From) &&
						f.To.Equal(tc.expectedFilter.To)
				}))
				assert.Equal(t, []imagepipeline.Size{tc.expectedSize}, resolver.sizes)

				var body struct {
					Data []map[string]any `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				require.Len(t, body.Data, 1)
				assert.Equal(t, []any{"orders/u/o/0.jpg"}, body.Data[0]["images"])
				assert.Equal(t, []any{"https://cdn.example.com/orders/u/o/0.jpg"}, body.Data[0]["imageUrls"])
				assert.Equal(t, "warning", body.Data[0]["urgency"])
				assert.InDelta(t, 6, body.Data[0]["pendingDays"], 0)
			}

			for k, v := range tc.expectedLog {
				assert.Contains(t, buf.String(), fmt.Sprintf("%q:%q", k, v))
			}
		})
	}
}

func TestOrderHandler_RequiresUser(t *testing.T) {
	h := newOrderHandler(new(mockOrderService), new(prefixResolver), slog.New(slog.DiscardHandler))

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/orders", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())
}

func TestOrderHandler_Create(t *testing.T) {
	userID := uuid.New()

	cases := map[string]struct {
		body              string
		saveErr           error
		expectedStatus    int
		expectedBody      string
		expectedCreatedAt time.Time
	}{
		"should stamp new orders with the current time": {
			body:              `{"id":"temp-1716170000000","customerName":"王阿姨","images":["data:image/jpeg;base64,AAAA"],"price":30,"tags":[]}`,
			expectedStatus:    http.StatusCreated,
			expectedCreatedAt: fixedNow,
		},
		"should keep a client supplied creation time": {
			body:              `{"customerName":"王阿姨","createdAt":1715000000000,"images":["data:image/jpeg;base64,AAAA"],"price":30}`,
			expectedStatus:    http.StatusCreated,
			expectedCreatedAt: time.UnixMilli(1715000000000),
		},
		"should report the first missing field": {
			body:           `{"customerName":"王阿姨","price":30}`,
			saveErr:        &domain.ValidationError{Field: "images", Message: "请至少上传一张照片"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid images","message":"请至少上传一张照片"}`,
		},
		"should reject a price that is not a number": {
			body:           `{"customerName":"王阿姨","price":"abc"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid request body"}`,
		},
		"should reject malformed json": {
			body:           `{"customerName":`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid request body"}`,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := new(mockOrderService)
			svc.On("Save", mock.Anything, userID, mock.Anything).Return(sampleOrder(), tc.saveErr)

			h := newOrderHandler(svc, new(prefixResolver), slog.New(slog.DiscardHandler))
			w := httptest.NewRecorder()
			h.Create(w, authed(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tc.body)), userID))

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, w.Body.String())
			}

			if !tc.expectedCreatedAt.IsZero() {
				svc.AssertCalled(t, "Save", mock.Anything, userID, mock.MatchedBy(func(o *domain.Order) bool {
					return o.CreatedAt.Equal(tc.expectedCreatedAt) && o.Status == domain.StatusPending
				}))
			}
		})
	}
}

func TestOrderHandler_Update(t *testing.T) {
	userID := uuid.New()
	existing := sampleOrder()

	cases := map[string]struct {
		id             string
		getErr         error
		expectedStatus int
	}{
		"should save over an existing order": {
			id:             orderID,
			expectedStatus: http.StatusOK,
		},
		"should not create orders through update": {
			id:             orderID,
			getErr:         &repository.NotFoundError{Resource: "order", Key: "id", Value: orderID},
			expectedStatus: http.StatusNotFound,
		},
		"should treat temporary ids as unknown": {
			id:             "temp-1716170000000",
			expectedStatus: http.StatusNotFound,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := new(mockOrderService)
			svc.On("Get", mock.Anything, userID, tc.id).Return(existing, tc.getErr)
			svc.On("Save", mock.Anything, userID, mock.Anything).Return(existing, nil)

			h := newOrderHandler(svc, new(prefixResolver), slog.New(slog.DiscardHandler))

			body := `{"id":"ignored","customerName":"王阿姨","images":["orders/u/o/0.jpg"],"price":45}`
			r := httptest.NewRequest(http.MethodPut, "/orders/"+tc.id, strings.NewReader(body))
			r.SetPathValue("id", tc.id)

			w := httptest.NewRecorder()
			h.Update(w, authed(r, userID))

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedStatus == http.StatusOK {
				svc.AssertCalled(t, "Save", mock.Anything, userID, mock.MatchedBy(func(o *domain.Order) bool {
					return o.ID == orderID && o.CreatedAt.Equal(existing.CreatedAt) && o.Price.Equal(decimal.NewFromInt(45))
				}))
			} else {
				svc.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestOrderHandler_Toggle(t *testing.T) {
	userID := uuid.New()
	completed := sampleOrder()
	completed.Toggle(fixedNow)

	svc := new(mockOrderService)
	svc.On("Toggle", mock.Anything, userID, orderID, fixedNow).Return(completed, nil)
	svc.On("Toggle", mock.Anything, userID, "missing", fixedNow).Return(nil, &repository.NotFoundError{Resource: "order", Key: "id", Value: "missing"})

	h := newOrderHandler(svc, new(prefixResolver), slog.New(slog.DiscardHandler))

	r := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/toggle", http.NoBody)
	r.SetPathValue("id", orderID)
	w := httptest.NewRecorder()
	h.Toggle(w, authed(r, userID))

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "completed", body["status"])
	assert.InDelta(t, fixedNow.UnixMilli(), body["completedAt"], 0)
	assert.NotContains(t, body, "urgency")

	r = httptest.NewRequest(http.MethodPost, "/orders/missing/toggle", http.NoBody)
	r.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	h.Toggle(w, authed(r, userID))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_Delete(t *testing.T) {
	userID := uuid.New()

	cases := map[string]struct {
		removeErr      error
		expectedStatus int
		expectedLog    map[string]string
	}{
		"should delete the order": {
			expectedStatus: http.StatusNoContent,
			expectedLog:    map[string]string{"msg": "order deleted", "order_id": orderID},
		},
		"should answer 404 for unknown orders": {
			removeErr:      &repository.NotFoundError{Resource: "order", Key: "id", Value: orderID},
			expectedStatus: http.StatusNotFound,
		},
		"should log storage failures": {
			removeErr:      errors.New("bucket unavailable"),
			expectedStatus: http.StatusInternalServerError,
			expectedLog:    map[string]string{"msg": "failed to delete order", "error": "bucket unavailable"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			svc := new(mockOrderService)
			svc.On("Remove", mock.Anything, userID, orderID).Return(tc.removeErr)

			h := newOrderHandler(svc, new(prefixResolver), slog.New(slog.NewJSONHandler(&buf, nil)))

			r := httptest.NewRequest(http.MethodDelete, "/orders/"+orderID, http.NoBody)
			r.SetPathValue("id", orderID)
			w := httptest.NewRecorder()
			h.Delete(w, authed(r, userID))

			assert.Equal(t, tc.expectedStatus, w.Code)
			for k, v := range tc.expectedLog {
				assert.Contains(t, buf.String(), fmt.Sprintf("%q:%q", k, v))
			}
		})
	}
}
