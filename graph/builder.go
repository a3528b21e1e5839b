package graph

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/ingest"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/normalize"
)

// BuildStats counts what a build pass did. Row-level problems are counted
// here instead of aborting the pass.
type BuildStats struct {
	RowsProcessed   int `json:"rows_processed"`
	RowsSkipped     int `json:"rows_skipped"`
	Places          int `json:"places"`
	Crops           int `json:"crops"`
	Records         int `json:"records"`
	NegativeValues  int `json:"negative_values"`
	ParentConflicts int `json:"parent_conflicts"`
}

// Builder turns rows into hierarchy, catalog and measurement facts on a
// shared store. Rows are validated before anything is written, so a rejected
// row leaves no partial entity behind.
type Builder struct {
	g     *Store
	seq   int
	stats BuildStats
}

// NewBuilder returns a builder writing into g.
func NewBuilder(g *Store) *Builder {
	return &Builder{g: g}
}

// AddRow validates one row and, when valid, writes its facts. Every call
// consumes a sequence number, so rejected rows leave gaps in the record
// numbering instead of shifting later records.
func (b *Builder) AddRow(row ingest.Row) error {
	b.seq++
	if err := b.addRow(row); err != nil {
		b.stats.RowsSkipped++
		return err
	}
	b.stats.RowsProcessed++
	return nil
}

// Stats returns the counters accumulated so far.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Resume moves record numbering past seq, so the next row becomes record
// seq+1. Used when continuing on an imported graph.
func (b *Builder) Resume(seq int) {
	if seq > b.seq {
		b.seq = seq
	}
}

func (b *Builder) addRow(row ingest.Row) error {
	provincia := strings.TrimSpace(row.Province)
	comarca := strings.TrimSpace(row.Comarca)
	municipio := strings.TrimSpace(row.Municipality)
	grupo := strings.TrimSpace(row.CropGroup)
	cultivo := strings.TrimSpace(row.Crop)
	if provincia == "" || comarca == "" || municipio == "" || grupo == "" || cultivo == "" {
		return fmt.Errorf("row %d: missing place or crop name", row.Line)
	}
	for _, name := range []string{provincia, comarca, municipio, grupo, cultivo} {
		if normalize.CleanName(name) == "" {
			return fmt.Errorf("row %d: unusable name %q", row.Line, name)
		}
	}

	superficie, err := parseDecimal(row.Area)
	if err != nil {
		return fmt.Errorf("row %d: superficie: %w", row.Line, err)
	}
	dotacion, err := parseDecimal(row.Allocation)
	if err != nil {
		return fmt.Errorf("row %d: dotacion: %w", row.Line, err)
	}
	consumo, err := parseDecimal(row.Consumption)
	if err != nil {
		return fmt.Errorf("row %d: consumo: %w", row.Line, err)
	}
	coste, err := parseDecimal(row.Cost)
	if err != nil {
		return fmt.Errorf("row %d: coste: %w", row.Line, err)
	}

	provURI, err := b.ensurePlace("provincia", provincia, "")
	if err != nil {
		return fmt.Errorf("row %d: %w", row.Line, err)
	}
	comURI, err := b.ensurePlace("comarca", comarca, provURI)
	if err != nil {
		return fmt.Errorf("row %d: %w", row.Line, err)
	}
	muniURI, err := b.ensurePlace("municipio", municipio, comURI)
	if err != nil {
		return fmt.Errorf("row %d: %w", row.Line, err)
	}

	cropURI, err := b.ensureCrop(grupo, cultivo, municipio, muniURI)
	if err != nil {
		return fmt.Errorf("row %d: %w", row.Line, err)
	}

	reg := NS + "registro/" + strconv.Itoa(b.seq)
	b.g.Add(reg, RDFType, IRI(SchemaEvent))
	b.g.Add(reg, SchemaName, Text(fmt.Sprintf("Cultivo de %s en %s", cultivo, municipio), "es"))
	b.g.Add(reg, SchemaLocation, IRI(muniURI))
	b.g.Add(reg, SchemaAbout, IRI(cropURI))
	b.stats.Records++

	b.addQuantity(reg, "superficie", "Superficie cultivada", "HEC", SchemaArea, superficie)
	b.addQuantity(reg, "dotacion", "Dotación de agua", "MTQ", SchemaAdditionalProperty, dotacion)
	b.addQuantity(reg, "consumo", "Consumo estimado de agua", "MTQ", SchemaAdditionalProperty, consumo)
	b.addAmount(reg, "coste", "Coste estimado de producción", "EUR", coste)

	for _, v := range []float64{superficie, dotacion, consumo, coste} {
		if v < 0 {
			b.stats.NegativeValues++
		}
	}
	return nil
}

// ensurePlace mints a place entity the first time its identifier appears.
// Later rows reuse the entity; their spelling and parent are ignored, though
// a conflicting parent is counted. Parents always sit one level up the
// kind-typed IRI paths, which keeps the containment forest acyclic.
func (b *Builder) ensurePlace(kind, name, parentURI string) (string, error) {
	slug := normalize.CleanName(name)
	if slug == "" {
		return "", fmt.Errorf("unusable %s name %q", kind, name)
	}
	uri := NS + kind + "/" + slug
	if !b.g.Add(uri, RDFType, IRI(SchemaPlace)) {
		if parentURI != "" && !b.g.Has(uri, SchemaContainedInPlace, IRI(parentURI)) {
			b.stats.ParentConflicts++
			slog.Debug("graph: conflicting parent ignored", "place", uri, "parent", parentURI)
		}
		return uri, nil
	}
	b.g.Add(uri, SchemaName, Text(name, "es"))
	b.g.Add(uri, SchemaAdditionalType, Text(kind, "es"))
	if parentURI != "" {
		b.g.Add(uri, SchemaContainedInPlace, IRI(parentURI))
	}
	b.stats.Places++
	return uri, nil
}

// ensureCrop mints a crop entity scoped to its municipality, so the same
// crop grown in two places stays two entities.
func (b *Builder) ensureCrop(group, name, muniName, muniURI string) (string, error) {
	groupSlug := normalize.CleanName(group)
	nameSlug := normalize.CleanName(name)
	if groupSlug == "" || nameSlug == "" {
		return "", fmt.Errorf("unusable crop name %q in group %q", name, group)
	}
	uri := NS + "cultivo/" + normalize.CleanName(muniName) + "/" + groupSlug + "_" + nameSlug
	if !b.g.Add(uri, RDFType, IRI(SchemaProduct)) {
		return uri, nil
	}
	b.g.Add(uri, SchemaName, Text(name, "es"))
	b.g.Add(uri, SchemaCategory, Text(group, "es"))
	b.g.Add(uri, SchemaLocation, IRI(muniURI))
	b.stats.Crops++
	return uri, nil
}

func (b *Builder) addQuantity(record, path, name, unit, link string, v float64) {
	m := record + "/" + path
	b.g.Add(m, RDFType, IRI(SchemaQuantitativeValue))
	b.g.Add(m, SchemaValue, Decimal(v))
	b.g.Add(m, SchemaUnitCode, Literal(unit))
	b.g.Add(m, SchemaName, Text(name, "es"))
	b.g.Add(record, link, IRI(m))
}

func (b *Builder) addAmount(record, path, name, currency string, v float64) {
	m := record + "/" + path
	b.g.Add(m, RDFType, IRI(SchemaMonetaryAmount))
	b.g.Add(m, SchemaValue, Decimal(v))
	b.g.Add(m, SchemaCurrency, Literal(currency))
	b.g.Add(m, SchemaName, Text(name, "es"))
	b.g.Add(record, SchemaAdditionalProperty, IRI(m))
}

// parseDecimal reads a decimal-comma number, the format the source tables
// use for every measurement.
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", s)
	}
	return v, nil
}
