package export

import (
	"fmt"
	"io"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"

	"github.com/CameronXie/tailor-ledger/internal/domain"
)

const sheetName = "订单"

// WriteXLSX writes the CSV columns into a single-sheet workbook.
func WriteXLSX(w io.Writer, orders []*domain.Order, loc *time.Location) error {
	xlsx := excelize.NewFile()
	index := xlsx.NewSheet(sheetName)
	xlsx.SetActiveSheet(index)
	xlsx.DeleteSheet("Sheet1")

	for col, title := range columns {
		xlsx.SetCellValue(sheetName, cell(col, 1), title)
	}

	for i, r := range rows(orders, loc) {
		for col, v := range r.values() {
			xlsx.SetCellValue(sheetName, cell(col, i+2), v)
		}
	}

	if err := xlsx.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	return nil
}

func cell(col, row int) string {
	return fmt.Sprintf("%s%d", excelize.ToAlphaString(col), row)
}
