package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

type stubPDF struct {
	err error
}

func (s stubPDF) Write(w io.Writer, _ []*domain.Order) error {
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, "%PDF-1.3")
	return err
}

func TestExportHandler_ServeHTTP(t *testing.T) {
	userID := uuid.New()

	cases := map[string]struct {
		format              string
		pdf                 PDFWriter
		expectedStatus      int
		expectedContentType string
		expectedFilename    string
		assertBody          func(t *testing.T, body string)
	}{
		"should export csv with a bom": {
			format:              "csv",
			expectedStatus:      http.StatusOK,
			expectedContentType: "text/csv; charset=utf-8",
			expectedFilename:    "tailor-shop-2024-05-20.csv",
			assertBody: func(t *testing.T, body string) {
				assert.True(t, strings.HasPrefix(body, "\uFEFF"))
				assert.Contains(t, body, "王阿姨")
			},
		},
		"should export a json backup": {
			format:              "json",
			expectedStatus:      http.StatusOK,
			expectedContentType: "application/json",
			expectedFilename:    "tailor-shop-2024-05-20.json",
			assertBody: func(t *testing.T, body string) {
				var records []domain.Record
				require.NoError(t, json.Unmarshal([]byte(body), &records))
				require.Len(t, records, 1)
				assert.Equal(t, orderID, records[0].ID)
			},
		},
		"should export pdf through the renderer": {
			format:              "pdf",
			pdf:                 stubPDF{},
			expectedStatus:      http.StatusOK,
			expectedContentType: "application/pdf",
			expectedFilename:    "tailor-shop-2024-05-20.pdf",
			assertBody: func(t *testing.T, body string) {
				assert.Equal(t, "%PDF-1.3", body)
			},
		},
		"should answer 501 without a pdf renderer": {
			format:         "pdf",
			expectedStatus: http.StatusNotImplemented,
		},
		"should log renderer failures": {
			format:         "pdf",
			pdf:            stubPDF{err: errors.New("font missing")},
			expectedStatus: http.StatusInternalServerError,
		},
		"should answer 404 for unknown formats": {
			format:         "docx",
			expectedStatus: http.StatusNotFound,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := new(mockOrderService)
			svc.On("List", mock.Anything, userID, repository.OrderFilter{}).Return([]*domain.Order{sampleOrder()}, nil)

			h := NewExportHandler(svc, tc.pdf, "Tailor Shop", shanghai, slog.New(slog.DiscardHandler)).(*ExportHandler)
			h.now = func() time.Time { return fixedNow }

			r := httptest.NewRequest(http.MethodGet, "/export/"+tc.format, http.NoBody)
			r.SetPathValue("format", tc.format)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, authed(r, userID))

			require.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedStatus != http.StatusOK {
				return
			}

			assert.Equal(t, tc.expectedContentType, w.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="`+tc.expectedFilename+`"`, w.Header().Get("Content-Disposition"))
			tc.assertBody(t, w.Body.String())
		})
	}
}
