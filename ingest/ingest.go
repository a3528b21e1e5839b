// Package ingest reads tabular agricultural water records from CSV and XLSX
// files. Readers return raw text fields; numeric parsing happens downstream
// so the builder can decide what a bad value means.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/normalize"
)

// ErrMissingColumn is returned when a required column is absent from the
// header row of a source file.
var ErrMissingColumn = errors.New("ingest: missing required column")

// Row is one agricultural record as read from a source table.
type Row struct {
	Province     string
	Comarca      string
	Municipality string
	CropGroup    string
	Crop         string
	Area         string // hectares, decimal comma
	Allocation   string // m3 per hectare, decimal comma
	Consumption  string // m3, decimal comma
	Cost         string // euros, decimal comma
	Line         int    // 1-based data row position in the source
}

// Reader loads rows from a source file.
type Reader interface {
	// Rows reads every data row from the file at path.
	Rows(ctx context.Context, path string) ([]Row, error)

	// SupportedFormats lists the file extensions this reader handles.
	SupportedFormats() []string
}

// Registry maps file formats to readers.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry returns a registry with the built-in readers registered.
func NewRegistry() *Registry {
	r := &Registry{readers: make(map[string]Reader)}
	for _, rd := range []Reader{&CSVReader{}, &XLSXReader{}} {
		for _, f := range rd.SupportedFormats() {
			r.readers[f] = rd
		}
	}
	return r
}

// Get returns the reader for a format.
func (r *Registry) Get(format string) (Reader, error) {
	rd, ok := r.readers[format]
	if !ok {
		return nil, fmt.Errorf("no reader for format: %s", format)
	}
	return rd, nil
}

// Register adds or replaces the reader for a format.
func (r *Registry) Register(format string, rd Reader) {
	r.readers[format] = rd
}

// columns holds the index of each required column in the source header.
type columns struct {
	province     int
	comarca      int
	municipality int
	group        int
	crop         int
	area         int
	allocation   int
	consumption  int
	cost         int
}

// mapColumns matches header cells to the required columns. Matching runs on
// normalized header text, so case, accents and unit suffixes such as
// "(m3/ha)" do not matter.
func mapColumns(header []string) (columns, error) {
	cols := columns{
		province: -1, comarca: -1, municipality: -1,
		group: -1, crop: -1,
		area: -1, allocation: -1, consumption: -1, cost: -1,
	}
	for i, h := range header {
		key := normalize.CleanName(h)
		switch {
		case strings.HasPrefix(key, "provincia"):
			cols.province = i
		case strings.HasPrefix(key, "comarca"):
			cols.comarca = i
		case strings.HasPrefix(key, "municipio"):
			cols.municipality = i
		case strings.HasPrefix(key, "grupo"):
			cols.group = i
		case strings.HasPrefix(key, "cultivo"):
			cols.crop = i
		case strings.HasPrefix(key, "superficie"):
			cols.area = i
		case strings.HasPrefix(key, "dotacion"):
			cols.allocation = i
		case strings.HasPrefix(key, "consumo"):
			cols.consumption = i
		case strings.HasPrefix(key, "coste"):
			cols.cost = i
		}
	}

	var missing []string
	for _, c := range []struct {
		name string
		idx  int
	}{
		{"provincia", cols.province},
		{"comarca", cols.comarca},
		{"municipio", cols.municipality},
		{"grupo de cultivo", cols.group},
		{"cultivo", cols.crop},
		{"superficie", cols.area},
		{"dotacion", cols.allocation},
		{"consumo", cols.consumption},
		{"coste", cols.cost},
	} {
		if c.idx < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// row builds a Row from one record using the mapped column indexes.
func (c columns) row(record []string, line int) Row {
	return Row{
		Province:     field(record, c.province),
		Comarca:      field(record, c.comarca),
		Municipality: field(record, c.municipality),
		CropGroup:    field(record, c.group),
		Crop:         field(record, c.crop),
		Area:         field(record, c.area),
		Allocation:   field(record, c.allocation),
		Consumption:  field(record, c.consumption),
		Cost:         field(record, c.cost),
		Line:         line,
	}
}

// field returns the trimmed cell at idx, tolerating short records.
func field(record []string, idx int) string {
	if idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
