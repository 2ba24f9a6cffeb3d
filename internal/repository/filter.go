package repository

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/CameronXie/tailor-ledger/internal/domain"
)

const (
	OrderResource = "order"
	UserResource  = "user"
)

// OrderFilter narrows an order listing. Zero values mean "no constraint".
type OrderFilter struct {
	Status domain.Status
	// Search is matched case-insensitively against note and customer name.
	Search string
	From   time.Time
	To     time.Time
}

// TimeValue converts a timestamp into the column representation of a given backend.
type TimeValue func(time.Time) any

// AsTime passes timestamps through untouched.
func AsTime(t time.Time) any { return t }

// AsUnixMilli stores timestamps as epoch milliseconds.
func AsUnixMilli(t time.Time) any { return t.UnixMilli() }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Apply adds the filter's predicates to b.
func (f OrderFilter) Apply(b sq.SelectBuilder, timeValue TimeValue) sq.SelectBuilder {
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": string(f.Status)})
	}

	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		b = b.Where(sq.Or{
			sq.Expr(`LOWER(note) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`LOWER(customer_name) LIKE ? ESCAPE '\'`, pattern),
		})
	}

	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": timeValue(f.From)})
	}

	if !f.To.IsZero() {
		b = b.Where(sq.Lt{"created_at": timeValue(f.To)})
	}

	return b
}

// NewestFirst is the listing order used by every backend.
func NewestFirst(b sq.SelectBuilder) sq.SelectBuilder {
	return b.OrderBy("created_at DESC", "id")
}
