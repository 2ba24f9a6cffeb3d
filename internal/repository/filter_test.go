package repository

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/tailor-ledger/internal/domain"
)

func TestOrderFilter_Apply(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	testCases := map[string]struct {
		filter       OrderFilter
		timeValue    TimeValue
		expectedSQL  string
		expectedArgs []any
	}{
		"should add nothing for an empty filter": {
			filter:      OrderFilter{},
			timeValue:   AsTime,
			expectedSQL: "SELECT id FROM orders WHERE user_id = ? ORDER BY created_at DESC, id",
			expectedArgs: []any{
				"u1",
			},
		},
		"should filter by status": {
			filter:       OrderFilter{Status: domain.StatusPending},
			timeValue:    AsTime,
			expectedSQL:  "SELECT id FROM orders WHERE user_id = ? AND status = ? ORDER BY created_at DESC, id",
			expectedArgs: []any{"u1", "pending"},
		},
		"should search note and customer case-insensitively": {
			filter:    OrderFilter{Search: "  Zip  "},
			timeValue: AsTime,
			expectedSQL: "SELECT id FROM orders WHERE user_id = ? AND " +
				`(LOWER(note) LIKE ? ESCAPE '\' OR LOWER(customer_name) LIKE ? ESCAPE '\')` +
				" ORDER BY created_at DESC, id",
			expectedArgs: []any{"u1", "%zip%", "%zip%"},
		},
		"should escape like wildcards": {
			filter:    OrderFilter{Search: "50%_off"},
			timeValue: AsTime,
			expectedSQL: "SELECT id FROM orders WHERE user_id = ? AND " +
				`(LOWER(note) LIKE ? ESCAPE '\' OR LOWER(customer_name) LIKE ? ESCAPE '\')` +
				" ORDER BY created_at DESC, id",
			expectedArgs: []any{"u1", `%50\%\_off%`, `%50\%\_off%`},
		},
		"should bound the created range in milliseconds": {
			filter:       OrderFilter{From: from, To: to},
			timeValue:    AsUnixMilli,
			expectedSQL:  "SELECT id FROM orders WHERE user_id = ? AND created_at >= ? AND created_at < ? ORDER BY created_at DESC, id",
			expectedArgs: []any{"u1", from.UnixMilli(), to.UnixMilli()},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			b := sq.Select("id").From("orders").Where(sq.Eq{"user_id": "u1"})
			query, args, err := NewestFirst(tc.filter.Apply(b, tc.timeValue)).ToSql()

			require.NoError(t, err)
			assert.Equal(t, tc.expectedSQL, query)
			assert.Equal(t, tc.expectedArgs, args)
		})
	}
}
