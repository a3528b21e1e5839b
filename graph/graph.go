// Package graph holds the in-memory triple store for agricultural entities
// and the builder that fills it from tabular rows.
package graph

import (
	"strconv"
	"sync"
)

// TermKind distinguishes IRIs from literals.
type TermKind uint8

const (
	IRITerm TermKind = iota
	LiteralTerm
)

// Term is an RDF node: an IRI, or a literal carrying an optional language
// tag or datatype IRI. Terms are comparable and safe to use as map keys.
type Term struct {
	Kind     TermKind
	Value    string
	Lang     string // language tag, only on literals
	Datatype string // datatype IRI, only on literals without a language tag
}

// IRI returns an IRI term.
func IRI(value string) Term {
	return Term{Kind: IRITerm, Value: value}
}

// Text returns a language-tagged literal.
func Text(value, lang string) Term {
	return Term{Kind: LiteralTerm, Value: value, Lang: lang}
}

// Literal returns a plain literal.
func Literal(value string) Term {
	return Term{Kind: LiteralTerm, Value: value}
}

// Typed returns a literal with an explicit datatype.
func Typed(value, datatype string) Term {
	return Term{Kind: LiteralTerm, Value: value, Datatype: datatype}
}

// Decimal returns an xsd:decimal literal.
func Decimal(v float64) Term {
	return Typed(strconv.FormatFloat(v, 'f', -1, 64), XSDDecimal)
}

// Double returns an xsd:double literal.
func Double(v float64) Term {
	return Typed(strconv.FormatFloat(v, 'f', -1, 64), XSDDouble)
}

// Integer returns an xsd:integer literal.
func Integer(v int64) Term {
	return Typed(strconv.FormatInt(v, 10), XSDInteger)
}

// IsIRI reports whether the term is an IRI.
func (t Term) IsIRI() bool { return t.Kind == IRITerm }

// Float parses the literal value as a float. Returns false for IRIs and
// literals that do not hold a number.
func (t Term) Float() (float64, bool) {
	if t.Kind != LiteralTerm {
		return 0, false
	}
	v, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Triple is one fact in the graph.
type Triple struct {
	Subject   string
	Predicate string
	Object    Term
}

type predObj struct {
	pred string
	obj  Term
}

// Store is an append-only triple store with set semantics: adding a fact
// that is already present changes nothing. It keeps insertion order for
// serialization and is safe for concurrent use, so enrichment workers can
// append while sharing one instance by reference.
type Store struct {
	mu     sync.RWMutex
	order  []Triple
	seen   map[Triple]struct{}
	bySubj map[string][]int
	byPO   map[predObj][]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		seen:   make(map[Triple]struct{}),
		bySubj: make(map[string][]int),
		byPO:   make(map[predObj][]string),
	}
}

// Add appends a fact. It reports whether the fact was new.
func (g *Store) Add(subject, predicate string, object Term) bool {
	return g.AddTriple(Triple{Subject: subject, Predicate: predicate, Object: object})
}

// AddTriple appends a fact. It reports whether the fact was new.
func (g *Store) AddTriple(t Triple) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[t]; ok {
		return false
	}
	g.seen[t] = struct{}{}
	g.bySubj[t.Subject] = append(g.bySubj[t.Subject], len(g.order))
	po := predObj{pred: t.Predicate, obj: t.Object}
	g.byPO[po] = append(g.byPO[po], t.Subject)
	g.order = append(g.order, t)
	return true
}

// Has reports whether the fact is present.
func (g *Store) Has(subject, predicate string, object Term) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.seen[Triple{Subject: subject, Predicate: predicate, Object: object}]
	return ok
}

// Len returns the number of facts.
func (g *Store) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// BySubject returns all facts about a subject in insertion order.
func (g *Store) BySubject(subject string) []Triple {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idxs := g.bySubj[subject]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Triple, len(idxs))
	for i, idx := range idxs {
		out[i] = g.order[idx]
	}
	return out
}

// Objects returns the objects of every (subject, predicate) fact in
// insertion order.
func (g *Store) Objects(subject, predicate string) []Term {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Term
	for _, idx := range g.bySubj[subject] {
		if t := g.order[idx]; t.Predicate == predicate {
			out = append(out, t.Object)
		}
	}
	return out
}

// Object returns the first object of (subject, predicate), if any.
func (g *Store) Object(subject, predicate string) (Term, bool) {
	objs := g.Objects(subject, predicate)
	if len(objs) == 0 {
		return Term{}, false
	}
	return objs[0], true
}

// SubjectsWith returns every subject holding the given predicate and object.
// Set semantics keep the result free of duplicates.
func (g *Store) SubjectsWith(predicate string, object Term) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	subs := g.byPO[predObj{pred: predicate, obj: object}]
	if len(subs) == 0 {
		return nil
	}
	out := make([]string, len(subs))
	copy(out, subs)
	return out
}

// Triples returns a copy of all facts in insertion order.
func (g *Store) Triples() []Triple {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Triple, len(g.order))
	copy(out, g.order)
	return out
}
