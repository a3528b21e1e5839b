// Package wikidata resolves place and crop labels to Wikidata entities
// through the public SPARQL endpoint.
package wikidata

import "context"

// Kind selects which query is built for a label. The two kinds carry
// different filters: places must sit inside the configured region, crops
// must instantiate one of the configured agricultural classes.
type Kind int

const (
	KindPlace Kind = iota
	KindCrop
)

// String returns the kind name used in logs and the persistent cache.
func (k Kind) String() string {
	switch k {
	case KindPlace:
		return "place"
	case KindCrop:
		return "crop"
	default:
		return "unknown"
	}
}

// Outcome classifies how a resolution ended. Every outcome is a normal
// result: a failed lookup never aborts an enrichment pass.
type Outcome int

const (
	// NotFound means the endpoint answered but nothing passed the filters,
	// or the response could not be used.
	NotFound Outcome = iota

	// Matched means the endpoint returned an entity passing every filter.
	Matched

	// RetryExhausted means each attempt failed with a retryable status.
	RetryExhausted
)

// String returns the outcome name used in logs and the persistent cache.
func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NotFound:
		return "not_found"
	case RetryExhausted:
		return "retry_exhausted"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String, used when reading the
// persistent cache.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "matched":
		return Matched, true
	case "not_found":
		return NotFound, true
	case "retry_exhausted":
		return RetryExhausted, true
	}
	return NotFound, false
}

// Point is a WGS84 coordinate. Longitude comes first on the wire.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Match holds what the endpoint returned for a resolved entity. Optional
// fields stay nil or empty when the entity does not carry them.
type Match struct {
	URI        string `json:"uri"`
	Label      string `json:"label,omitempty"`
	Coord      *Point `json:"coord,omitempty"`
	Population *int64 `json:"population,omitempty"`
	Taxon      string `json:"taxon,omitempty"`
}

// Resolution is the explicit result of resolving one label.
type Resolution struct {
	Outcome  Outcome `json:"outcome"`
	Match    *Match  `json:"match,omitempty"`
	Attempts int     `json:"attempts"`
}

// Resolver answers entity lookups. Implementations return an error only for
// cancellation; lookup failures are encoded in the Resolution.
type Resolver interface {
	Resolve(ctx context.Context, kind Kind, label string) (Resolution, error)
}
