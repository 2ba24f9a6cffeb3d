package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the two-valued lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Source records which capture control produced the order.
type Source string

const (
	SourceOnline  Source = "online"
	SourceOffline Source = "offline"
)

// Valid reports whether s is a known source. Legacy rows may carry no source at all.
func (s Source) Valid() bool {
	return s == "" || s == SourceOnline || s == SourceOffline
}

// TemporaryIDPrefix marks client-side ids issued before the first save.
const TemporaryIDPrefix = "temp-"

var permanentIDPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// IsPermanentID reports whether id is a server-assigned UUID v4.
func IsPermanentID(id string) bool {
	return permanentIDPattern.MatchString(id)
}

// NewTemporaryID returns a client-style id for an order that has not been saved yet.
func NewTemporaryID(now time.Time) string {
	return fmt.Sprintf("%s%d", TemporaryIDPrefix, now.UnixMilli())
}

// Order is one customer alteration job.
type Order struct {
	ID           string
	CustomerName string
	CreatedAt    time.Time
	CompletedAt  *time.Time
	// Images is ordered; the first entry is the cover thumbnail.
	Images []string
	Note   string
	Price  decimal.Decimal
	Status Status
	Source Source
	Tags   []string
}

// ValidationError describes a required field that blocks saving an order.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks the fields required before an order can be persisted.
// Checks run in form order: images, price, customer name.
func (o *Order) Validate() error {
	if len(o.Images) == 0 {
		return &ValidationError{Field: "images", Message: "请至少上传一张照片"}
	}

	if o.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "请输入价格"}
	}

	if strings.TrimSpace(o.CustomerName) == "" {
		return &ValidationError{Field: "customerName", Message: "请输入顾客姓名或单号"}
	}

	if !o.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", o.Status)}
	}

	if !o.Source.Valid() {
		return &ValidationError{Field: "source", Message: fmt.Sprintf("unknown source %q", o.Source)}
	}

	return nil
}

// Toggle flips the status between pending and completed.
// completedAt is stamped with now on completion and cleared on the way back.
func (o *Order) Toggle(now time.Time) {
	if o.Status == StatusCompleted {
		o.Status = StatusPending
		o.CompletedAt = nil
		return
	}

	o.Status = StatusCompleted
	o.CompletedAt = &now
}

// Clone returns a deep copy so callers can mutate slices without touching the original.
func (o *Order) Clone() *Order {
	c := *o
	c.Images = append([]string(nil), o.Images...)
	c.Tags = append([]string(nil), o.Tags...)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}

	return &c
}

// PendingDays returns how many days the order has been waiting at now.
func (o *Order) PendingDays(now time.Time) float64 {
	return now.Sub(o.CreatedAt).Hours() / 24
}
