package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/CameronXie/tailor-ledger/internal/domain"
)

var ErrInvalidBackup = errors.New("backup must be a JSON array of orders")

// WriteJSON writes orders as a backup array.
func WriteJSON(w io.Writer, orders []*domain.Order) error {
	records := make([]*domain.Record, 0, len(orders))
	for _, o := range orders {
		records = append(records, domain.NewRecord(o))
	}

	if err := json.NewEncoder(w).Encode(records); err != nil {
		return fmt.Errorf("write json: %w", err)
	}

	return nil
}

// SkippedRecord is a backup element that could not be read as an order.
type SkippedRecord struct {
	Index int
	Err   error
}

// ReadJSON parses a backup written by WriteJSON or by older releases that
// stored a single imageBase64 field. Only a body that is not a JSON array
// fails; elements that do not decode are returned as skipped.
func ReadJSON(r io.Reader) ([]domain.Record, []SkippedRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	if raw == nil {
		return nil, nil, ErrInvalidBackup
	}

	records := make([]domain.Record, 0, len(raw))
	var skipped []SkippedRecord
	for i, element := range raw {
		var rec domain.Record
		if err := json.Unmarshal(element, &rec); err != nil {
			skipped = append(skipped, SkippedRecord{Index: i, Err: err})
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}
