// Package linker walks a built graph, resolves its municipality and crop
// entities against Wikidata, and writes the returned facts back into the
// graph.
package linker

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/graph"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/normalize"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/store"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/wikidata"
)

// Config bounds one enrichment pass.
type Config struct {
	// MaxPlaces and MaxCrops cap how many unlinked entities of each kind a
	// pass resolves. Entities beyond the cap stay unlinked. Zero or
	// negative means no cap.
	MaxPlaces int
	MaxCrops  int

	// Concurrency is the resolution worker ceiling. Zero or one keeps the
	// pass sequential.
	Concurrency int
}

// ResolutionCache persists lookups across passes. *store.Store implements
// it; a nil cache keeps the pass fully in-memory.
type ResolutionCache interface {
	GetResolution(ctx context.Context, kind, label string) (*store.Resolution, error)
	UpsertResolution(ctx context.Context, r store.Resolution) error
}

var _ ResolutionCache = (*store.Store)(nil)

// KindSummary counts what happened to one candidate batch.
type KindSummary struct {
	Candidates     int `json:"candidates"`
	AlreadyLinked  int `json:"already_linked"`
	Unresolvable   int `json:"unresolvable"`
	Capped         int `json:"capped"`
	Linked         int `json:"linked"`
	NotFound       int `json:"not_found"`
	RetryExhausted int `json:"retry_exhausted"`
}

// Summary is the outcome of one enrichment pass. An interrupted pass is a
// valid partial result, not an error.
type Summary struct {
	Places      KindSummary `json:"places"`
	Crops       KindSummary `json:"crops"`
	Queries     int         `json:"queries"`
	CacheHits   int         `json:"cache_hits"`
	Interrupted bool        `json:"interrupted"`
}

// Linker resolves graph entities through a Resolver, deduplicating lookups
// per (kind, label) within a pass and optionally through a persistent cache
// across passes.
type Linker struct {
	resolver wikidata.Resolver
	cache    ResolutionCache
	cfg      Config
}

// New returns a linker using resolver for lookups. cache may be nil.
func New(resolver wikidata.Resolver, cache ResolutionCache, cfg Config) *Linker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Linker{resolver: resolver, cache: cache, cfg: cfg}
}

// pass holds the per-run lookup state. The memo keeps every outcome for the
// lifetime of the pass, so a label is queried at most once per run no
// matter how many entities carry it.
type pass struct {
	l *Linker
	g *graph.Store

	group singleflight.Group

	mu      sync.Mutex
	memo    map[memoKey]wikidata.Resolution
	queries int

	resolved int
}

type memoKey struct {
	kind  wikidata.Kind
	label string
}

// Run resolves unlinked municipality and crop entities in g. When ctx is
// canceled mid-pass the facts written so far stay in the graph and the
// summary reports Interrupted.
func (l *Linker) Run(ctx context.Context, g *graph.Store) Summary {
	p := &pass{l: l, g: g, memo: make(map[memoKey]wikidata.Resolution)}

	var sum Summary
	sum.Places = p.runBatch(ctx, wikidata.KindPlace, placeCandidates(g), l.cfg.MaxPlaces)
	sum.Crops = p.runBatch(ctx, wikidata.KindCrop, cropCandidates(g), l.cfg.MaxCrops)
	sum.Queries = p.queries
	sum.CacheHits = p.resolved - p.queries
	sum.Interrupted = ctx.Err() != nil

	slog.Info("linker: enrichment pass done",
		"places_linked", sum.Places.Linked,
		"crops_linked", sum.Crops.Linked,
		"queries", sum.Queries,
		"cache_hits", sum.CacheHits,
		"interrupted", sum.Interrupted)
	return sum
}

// candidate pairs a graph subject with the label used to search for it.
type candidate struct {
	subject string
	label   string
}

// placeCandidates returns the municipality entities in subject order.
// Provinces and comarcas stay local; only municipalities are linked.
func placeCandidates(g *graph.Store) []candidate {
	return candidates(g, g.SubjectsWith(graph.SchemaAdditionalType, graph.Text("municipio", "es")))
}

// cropCandidates returns the crop entities in subject order.
func cropCandidates(g *graph.Store) []candidate {
	return candidates(g, g.SubjectsWith(graph.RDFType, graph.IRI(graph.SchemaProduct)))
}

func candidates(g *graph.Store, subjects []string) []candidate {
	sort.Strings(subjects)
	out := make([]candidate, 0, len(subjects))
	for _, s := range subjects {
		name, _ := g.Object(s, graph.SchemaName)
		out = append(out, candidate{subject: s, label: normalize.SearchLabel(name.Value)})
	}
	return out
}

// runBatch resolves one capped candidate batch and writes the match facts.
// Resolution may fan out across workers; facts are applied afterwards on
// the calling goroutine, in subject order.
func (p *pass) runBatch(ctx context.Context, kind wikidata.Kind, cands []candidate, max int) KindSummary {
	ks := KindSummary{Candidates: len(cands)}

	work := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if _, linked := p.g.Object(c.subject, graph.OWLSameAs); linked {
			ks.AlreadyLinked++
			continue
		}
		if c.label == "" {
			ks.Unresolvable++
			slog.Debug("linker: entity has no searchable name", "subject", c.subject)
			continue
		}
		work = append(work, c)
	}
	if max > 0 && len(work) > max {
		ks.Capped = len(work) - max
		work = work[:max]
	}

	results := make([]*wikidata.Resolution, len(work))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.l.cfg.Concurrency)
	for i, c := range work {
		i, c := i, c
		eg.Go(func() error {
			res, err := p.resolve(gctx, kind, c.label)
			if err != nil {
				return err
			}
			results[i] = &res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		slog.Warn("linker: batch interrupted", "kind", kind.String(), "error", err)
	}

	for i, c := range work {
		res := results[i]
		if res == nil {
			continue
		}
		p.resolved++
		switch res.Outcome {
		case wikidata.Matched:
			p.apply(c.subject, kind, res.Match)
			ks.Linked++
		case wikidata.NotFound:
			ks.NotFound++
		case wikidata.RetryExhausted:
			ks.RetryExhausted++
		}
	}
	return ks
}

// resolve answers one label, consulting the pass memo, then the persistent
// cache, then the resolver. Concurrent callers of the same key share a
// single in-flight lookup.
func (p *pass) resolve(ctx context.Context, kind wikidata.Kind, label string) (wikidata.Resolution, error) {
	key := memoKey{kind: kind, label: label}
	p.mu.Lock()
	res, ok := p.memo[key]
	p.mu.Unlock()
	if ok {
		return res, nil
	}

	v, err, _ := p.group.Do(kind.String()+"\x00"+label, func() (any, error) {
		// Recheck the memo: singleflight only collapses in-flight calls,
		// and the lookup may have finished between the check above and
		// entering the group.
		p.mu.Lock()
		res, ok := p.memo[key]
		p.mu.Unlock()
		if ok {
			return res, nil
		}

		if res, ok := p.fromCache(ctx, kind, label); ok {
			p.mu.Lock()
			p.memo[key] = res
			p.mu.Unlock()
			return res, nil
		}

		res, err := p.l.resolver.Resolve(ctx, kind, label)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.queries++
		p.memo[key] = res
		p.mu.Unlock()
		p.toCache(ctx, kind, label, res)
		return res, nil
	})
	if err != nil {
		return wikidata.Resolution{}, err
	}
	return v.(wikidata.Resolution), nil
}

// fromCache consults the persistent cache. A read failure degrades to a
// fresh lookup.
func (p *pass) fromCache(ctx context.Context, kind wikidata.Kind, label string) (wikidata.Resolution, bool) {
	if p.l.cache == nil {
		return wikidata.Resolution{}, false
	}
	row, err := p.l.cache.GetResolution(ctx, kind.String(), label)
	if err != nil {
		slog.Warn("linker: cache read failed", "kind", kind.String(), "label", label, "error", err)
		return wikidata.Resolution{}, false
	}
	if row == nil {
		return wikidata.Resolution{}, false
	}
	outcome, ok := wikidata.ParseOutcome(row.Outcome)
	if !ok || outcome == wikidata.RetryExhausted {
		return wikidata.Resolution{}, false
	}

	res := wikidata.Resolution{Outcome: outcome, Attempts: row.Attempts}
	if outcome == wikidata.Matched {
		m := &wikidata.Match{URI: row.URI, Label: row.MatchedLabel, Taxon: row.Taxon}
		if row.Lon != nil && row.Lat != nil {
			m.Coord = &wikidata.Point{Lon: *row.Lon, Lat: *row.Lat}
		}
		if row.Population != nil {
			pop := *row.Population
			m.Population = &pop
		}
		res.Match = m
	}
	return res, true
}

// toCache persists an outcome worth keeping. RetryExhausted stays unsaved
// so the next pass tries the label again.
func (p *pass) toCache(ctx context.Context, kind wikidata.Kind, label string, res wikidata.Resolution) {
	if p.l.cache == nil || res.Outcome == wikidata.RetryExhausted {
		return
	}
	row := store.Resolution{
		Kind:     kind.String(),
		Label:    label,
		Outcome:  res.Outcome.String(),
		Attempts: res.Attempts,
	}
	if m := res.Match; m != nil {
		row.URI = m.URI
		row.MatchedLabel = m.Label
		row.Taxon = m.Taxon
		if m.Coord != nil {
			lon, lat := m.Coord.Lon, m.Coord.Lat
			row.Lon, row.Lat = &lon, &lat
		}
		if m.Population != nil {
			pop := *m.Population
			row.Population = &pop
		}
	}
	if err := p.l.cache.UpsertResolution(ctx, row); err != nil {
		slog.Warn("linker: cache write failed", "kind", kind.String(), "label", label, "error", err)
	}
}

// apply writes the facts a match carries. The graph's set semantics make
// re-linking an entity a no-op.
func (p *pass) apply(subject string, kind wikidata.Kind, m *wikidata.Match) {
	p.g.Add(subject, graph.OWLSameAs, graph.IRI(m.URI))
	if m.Coord != nil {
		geo := subject + "/geo"
		p.g.Add(geo, graph.RDFType, graph.IRI(graph.SchemaGeoCoordinates))
		p.g.Add(geo, graph.SchemaLongitude, graph.Double(m.Coord.Lon))
		p.g.Add(geo, graph.SchemaLatitude, graph.Double(m.Coord.Lat))
		p.g.Add(subject, graph.SchemaGeo, graph.IRI(geo))
	}
	if m.Population != nil {
		p.g.Add(subject, graph.SchemaPopulation, graph.Integer(*m.Population))
	}
	if m.Taxon != "" {
		p.g.Add(subject, graph.SchemaAdditionalProperty, graph.Text("Taxón: "+m.Taxon, "la"))
	}
	slog.Debug("linker: linked", "kind", kind.String(), "subject", subject, "uri", m.URI)
}
