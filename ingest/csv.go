package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// CSVReader reads semicolon-separated files, the layout the regional water
// agency publishes.
type CSVReader struct{}

// SupportedFormats lists the extensions handled by this reader.
func (r *CSVReader) SupportedFormats() []string {
	return []string{"csv"}
}

// Rows reads every data row. The first line must hold the column headers.
func (r *CSVReader) Rows(ctx context.Context, path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		rows = append(rows, cols.row(record, line))
	}
	return rows, nil
}
