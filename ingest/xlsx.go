package ingest

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads workbook exports of the same table. The data lives on the
// first sheet whose header row carries the expected columns.
type XLSXReader struct{}

// SupportedFormats lists the extensions handled by this reader.
func (r *XLSXReader) SupportedFormats() []string {
	return []string{"xlsx"}
}

// Rows reads every data row from the first sheet with a matching header.
func (r *XLSXReader) Rows(ctx context.Context, path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		if len(records) == 0 {
			continue
		}
		cols, err := mapColumns(records[0])
		if err != nil {
			continue // not the data sheet
		}

		rows := make([]Row, 0, len(records)-1)
		for i, record := range records[1:] {
			rows = append(rows, cols.row(record, i+1))
		}
		return rows, nil
	}
	return nil, fmt.Errorf("no sheet with the expected columns")
}
