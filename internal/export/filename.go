package export

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatJSON, FormatPDF, FormatXLSX:
		return true
	default:
		return false
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// FileName builds an ASCII download name such as "xiao-liu-cai-feng-pu-2024-05-01.csv".
func FileName(title string, f Format, now time.Time) string {
	base := slug.Make(title)
	if base == "" {
		base = "orders"
	}

	return fmt.Sprintf("%s-%s.%s", base, now.Format(time.DateOnly), f)
}
