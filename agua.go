package agua

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/graph"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/ingest"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/linker"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/reports"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/store"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/wikidata"
)

// Pipeline is the main entry point for the agricultural water-use graph.
type Pipeline interface {
	// Transform reads rows from a tabular file and adds their facts to the
	// graph. Counters accumulate across calls.
	Transform(ctx context.Context, path string) (*graph.BuildStats, error)

	// Enrich resolves places and crops against the knowledge base and links
	// the matches into the graph.
	Enrich(ctx context.Context, opts ...EnrichOption) (*linker.Summary, error)

	// Validate checks the structural health of the built graph.
	Validate() (*reports.Validation, error)

	// Graph exposes the underlying store for reports and diagnostics.
	Graph() *graph.Store

	// Export serializes the graph to w in the named format.
	Export(w io.Writer, format string) error

	// ExportFile serializes the graph to path, picking the format from the
	// file extension.
	ExportFile(path string) error

	// Import replaces the graph with one parsed from r (Turtle).
	Import(r io.Reader) error

	// ImportFile replaces the graph with one parsed from a Turtle or
	// N-Triples file.
	ImportFile(path string) error

	// Close releases the resolution cache. The pipeline is unusable after.
	Close() error
}

// EnrichOption overrides enrichment limits for a single run.
type EnrichOption func(*enrichOptions)

type enrichOptions struct {
	maxPlaces   int
	maxCrops    int
	concurrency int
}

// WithMaxPlaces caps how many unlinked places this run resolves.
func WithMaxPlaces(n int) EnrichOption {
	return func(o *enrichOptions) {
		if n > 0 {
			o.maxPlaces = n
		}
	}
}

// WithMaxCrops caps how many unlinked crops this run resolves.
func WithMaxCrops(n int) EnrichOption {
	return func(o *enrichOptions) {
		if n > 0 {
			o.maxCrops = n
		}
	}
}

// WithConcurrency sets how many resolver queries may run in parallel.
func WithConcurrency(n int) EnrichOption {
	return func(o *enrichOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// pipeline is the concrete implementation of Pipeline.
type pipeline struct {
	cfg      Config
	g        *graph.Store
	b        *graph.Builder
	readers  *ingest.Registry
	resolver wikidata.Resolver
	cache    *store.Store
	closed   bool
}

// New creates a pipeline with the given configuration.
func New(cfg Config) (Pipeline, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	g := graph.NewStore()
	p := &pipeline{
		cfg:      cfg,
		g:        g,
		b:        graph.NewBuilder(g),
		readers:  ingest.NewRegistry(),
		resolver: wikidata.NewClient(cfg.clientConfig()),
	}

	if cfg.CacheDBPath != "" {
		cache, err := store.New(cfg.CacheDBPath)
		if err != nil {
			return nil, fmt.Errorf("opening cache store: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Transform reads one tabular file into the graph. Rows that fail validation
// are logged and skipped instead of aborting the file.
func (p *pipeline) Transform(ctx context.Context, path string) (*graph.BuildStats, error) {
	if p.closed {
		return nil, ErrStoreClosed
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	reader, err := p.readers.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	slog.Info("transform: reading rows", "file", filepath.Base(path), "format", format)
	start := time.Now()

	rows, err := reader.Rows(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRows, path)
	}

	for _, row := range rows {
		if err := p.b.AddRow(row); err != nil {
			slog.Warn("transform: row rejected", "error", err)
		}
	}

	stats := p.b.Stats()
	slog.Info("transform: graph updated",
		"file", filepath.Base(path), "rows", len(rows),
		"processed", stats.RowsProcessed, "skipped", stats.RowsSkipped,
		"facts", p.g.Len(), "elapsed", time.Since(start).Round(time.Millisecond))
	return &stats, nil
}

// Enrich runs one resolution pass over the unlinked places and crops.
func (p *pipeline) Enrich(ctx context.Context, opts ...EnrichOption) (*linker.Summary, error) {
	if p.closed {
		return nil, ErrStoreClosed
	}
	if p.g.Len() == 0 {
		return nil, ErrEmptyGraph
	}

	options := &enrichOptions{
		maxPlaces:   p.cfg.MaxPlaces,
		maxCrops:    p.cfg.MaxCrops,
		concurrency: p.cfg.Concurrency,
	}
	for _, o := range opts {
		o(options)
	}

	// A nil *store.Store must not reach the linker as a non-nil interface.
	var cache linker.ResolutionCache
	if p.cache != nil {
		cache = p.cache
	}

	start := time.Now()
	lk := linker.New(p.resolver, cache, linker.Config{
		MaxPlaces:   options.maxPlaces,
		MaxCrops:    options.maxCrops,
		Concurrency: options.concurrency,
	})
	sum := lk.Run(ctx, p.g)

	if p.cache != nil {
		// Recorded with a fresh context so interrupted passes still land
		// in the run history.
		run := store.Run{
			GraphFacts:  p.g.Len(),
			Places:      sum.Places.Linked,
			Crops:       sum.Crops.Linked,
			Queries:     sum.Queries,
			CacheHits:   sum.CacheHits,
			Interrupted: sum.Interrupted,
			StartedAt:   start.UTC().Format(time.RFC3339),
		}
		if _, err := p.cache.RecordRun(context.Background(), run); err != nil {
			slog.Warn("enrich: recording run failed", "error", err)
		}
	}
	return &sum, nil
}

// Validate reports on the structural health of the graph.
func (p *pipeline) Validate() (*reports.Validation, error) {
	if p.closed {
		return nil, ErrStoreClosed
	}
	if p.g.Len() == 0 {
		return nil, ErrEmptyGraph
	}
	return reports.Validate(p.g), nil
}

// Graph returns the underlying store.
func (p *pipeline) Graph() *graph.Store {
	return p.g
}

// Export serializes the graph to w in the named format.
func (p *pipeline) Export(w io.Writer, format string) error {
	if p.closed {
		return ErrStoreClosed
	}
	if p.g.Len() == 0 {
		return ErrEmptyGraph
	}
	return graph.Encode(w, p.g, format)
}

// ExportFile serializes the graph to path.
func (p *pipeline) ExportFile(path string) error {
	if p.closed {
		return ErrStoreClosed
	}
	if p.g.Len() == 0 {
		return ErrEmptyGraph
	}
	return graph.WriteFile(path, p.g)
}

// Import replaces the graph with one parsed from r.
func (p *pipeline) Import(r io.Reader) error {
	if p.closed {
		return ErrStoreClosed
	}
	g, err := graph.DecodeTurtle(r)
	if err != nil {
		return err
	}
	p.replaceGraph(g)
	return nil
}

// ImportFile replaces the graph with one parsed from a file.
func (p *pipeline) ImportFile(path string) error {
	if p.closed {
		return ErrStoreClosed
	}
	g, err := graph.ReadFile(path)
	if err != nil {
		return err
	}
	p.replaceGraph(g)
	return nil
}

// Close shuts down the pipeline. Safe to call more than once.
func (p *pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.cache != nil {
		return p.cache.Close()
	}
	return nil
}

// replaceGraph swaps in an imported graph and moves record numbering past
// the highest imported record, so appended rows do not collide.
func (p *pipeline) replaceGraph(g *graph.Store) {
	p.g = g
	p.b = graph.NewBuilder(g)
	p.b.Resume(maxRecordSeq(g))
	slog.Info("import: graph loaded", "facts", g.Len())
}

func maxRecordSeq(g *graph.Store) int {
	maxSeq := 0
	for _, s := range g.SubjectsWith(graph.RDFType, graph.IRI(graph.SchemaEvent)) {
		rest, ok := strings.CutPrefix(s, graph.NS+"registro/")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq
}
