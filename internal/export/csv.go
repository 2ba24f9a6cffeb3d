package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/CameronXie/tailor-ledger/internal/domain"
)

const utf8BOM = "\uFEFF"

// WriteCSV writes orders with a header line. The BOM makes Excel read the
// file as UTF-8.
func WriteCSV(w io.Writer, orders []*domain.Order, loc *time.Location) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	if err := gocsv.Marshal(rows(orders, loc), w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	return nil
}
