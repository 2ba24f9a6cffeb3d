package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ImageVariant identifies which image field a record carries.
type ImageVariant int

const (
	// NoImages marks a record with neither an image list nor a legacy image.
	NoImages ImageVariant = iota
	// ImageList is the current shape: an ordered images array.
	ImageList
	// LegacyImage is the older single-image shape stored in imageBase64.
	LegacyImage
)

// Record is the wire and backup shape of an order. Timestamps are epoch milliseconds
// and price is a plain JSON number so backups from older releases import unchanged.
type Record struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customerName"`
	CreatedAt    int64       `json:"createdAt"`
	CompletedAt  *int64      `json:"completedAt,omitempty"`
	Images       []string    `json:"images,omitempty"`
	ImageBase64  string      `json:"imageBase64,omitempty"`
	Note         string      `json:"note"`
	Price        json.Number `json:"price"`
	Status       Status      `json:"status"`
	Source       Source      `json:"source,omitempty"`
	Tags         []string    `json:"tags"`
}

// Variant resolves which image field is authoritative. An empty images array falls
// through to the legacy field.
func (r *Record) Variant() ImageVariant {
	switch {
	case len(r.Images) > 0:
		return ImageList
	case r.ImageBase64 != "":
		return LegacyImage
	default:
		return NoImages
	}
}

// ImageRefs returns the canonical image sequence for the record.
func (r *Record) ImageRefs() []string {
	switch r.Variant() {
	case ImageList:
		return append([]string(nil), r.Images...)
	case LegacyImage:
		return []string{r.ImageBase64}
	default:
		return []string{}
	}
}

// Order normalizes the record into the canonical Order.
func (r *Record) Order() (*Order, error) {
	price := decimal.Zero
	if r.Price != "" {
		p, err := decimal.NewFromString(r.Price.String())
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", r.Price, err)
		}
		price = p
	}

	status := r.Status
	if status == "" {
		status = StatusPending
	}

	o := &Order{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		CreatedAt:    time.UnixMilli(r.CreatedAt),
		Images:       r.ImageRefs(),
		Note:         r.Note,
		Price:        price,
		Status:       status,
		Source:       r.Source,
		Tags:         append([]string{}, r.Tags...),
	}

	if r.CompletedAt != nil {
		t := time.UnixMilli(*r.CompletedAt)
		o.CompletedAt = &t
	}

	return o, nil
}

// NewRecord converts an order into its wire shape.
func NewRecord(o *Order) *Record {
	r := &Record{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		CreatedAt:    o.CreatedAt.UnixMilli(),
		Images:       append([]string{}, o.Images...),
		Note:         o.Note,
		Price:        json.Number(o.Price.String()),
		Status:       o.Status,
		Source:       o.Source,
		Tags:         append([]string{}, o.Tags...),
	}

	if o.CompletedAt != nil {
		ms := o.CompletedAt.UnixMilli()
		r.CompletedAt = &ms
	}

	return r
}

// NormalizeImages resolves a stored row's image columns into the canonical sequence.
func NormalizeImages(images []string, legacy string) []string {
	r := Record{Images: images, ImageBase64: legacy}
	return r.ImageRefs()
}
