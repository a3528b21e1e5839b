package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Defaults used by NewClient for zero config fields.
const (
	DefaultEndpoint  = "https://query.wikidata.org/sparql"
	DefaultUserAgent = "AguaAgricolaBot/1.0 (Student Project)"

	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
	defaultTimeout     = 20 * time.Second
	defaultLanguage    = "es"
)

// Config configures the SPARQL client.
type Config struct {
	Endpoint  string
	UserAgent string

	// Language is the label language used for entity search.
	Language string

	// PlaceClass is the QID places must transitively instantiate.
	PlaceClass string

	// RegionAnchor is the QID places must be contained in (P131*).
	RegionAnchor string

	// CropClasses is the QID allow-list for crop hits.
	CropClasses []string

	// MaxAttempts bounds attempts per label; only retryable HTTP statuses
	// trigger another attempt.
	MaxAttempts int

	// Backoff is the first retry delay. It doubles on each further attempt
	// and a larger Retry-After header takes precedence.
	Backoff time.Duration

	// Timeout bounds a single attempt, connection setup included.
	Timeout time.Duration

	// RateLimit paces requests to the endpoint in requests per second.
	// Zero disables pacing.
	RateLimit float64
}

// Client queries a SPARQL endpoint with bounded retries and optional
// request pacing. It implements Resolver.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient returns a client for the configured endpoint. Zero fields fall
// back to the Wikidata defaults.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{cfg: cfg, client: &http.Client{}}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// Resolve runs the kind-specific query for one label. Lookup failures are
// encoded in the Resolution; the only errors returned are cancellation.
func (c *Client) Resolve(ctx context.Context, kind Kind, label string) (Resolution, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Resolution{Outcome: NotFound}, nil
	}

	var query string
	switch kind {
	case KindPlace:
		query = c.placeQuery(label)
	case KindCrop:
		query = c.cropQuery(label)
	default:
		return Resolution{Outcome: NotFound}, fmt.Errorf("unknown kind %d", kind)
	}

	res := Resolution{Outcome: NotFound}
	var retryAfter time.Duration
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.cfg.Backoff * time.Duration(1<<(attempt-2))
			if retryAfter > delay {
				delay = retryAfter
			}
			retryAfter = 0
			slog.Warn("wikidata: retrying query",
				"kind", kind.String(), "label", label,
				"attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return res, ctx.Err()
			}
		}
		res.Attempts = attempt

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return res, err
			}
		}

		bindings, status, ra, err := c.query(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			// Transport failures, attempt timeouts and unusable payloads
			// terminate the lookup; only retryable statuses loop.
			slog.Warn("wikidata: query failed",
				"kind", kind.String(), "label", label, "error", err)
			res.Outcome = NotFound
			return res, nil
		}
		if status != http.StatusOK {
			lastErr = fmt.Errorf("endpoint returned %d", status)
			if !retryableStatusCode(status) {
				slog.Warn("wikidata: endpoint rejected query",
					"kind", kind.String(), "label", label, "status", status)
				res.Outcome = NotFound
				return res, nil
			}
			retryAfter = ra
			continue
		}

		if len(bindings) == 0 {
			res.Outcome = NotFound
			return res, nil
		}
		m := matchFromBinding(kind, bindings[0])
		if m.URI == "" {
			res.Outcome = NotFound
			return res, nil
		}
		res.Outcome = Matched
		res.Match = &m
		slog.Debug("wikidata: matched",
			"kind", kind.String(), "label", label, "uri", m.URI, "attempts", res.Attempts)
		return res, nil
	}

	slog.Warn("wikidata: retries exhausted",
		"kind", kind.String(), "label", label, "attempts", res.Attempts, "error", lastErr)
	res.Outcome = RetryExhausted
	return res, nil
}

// retryableStatusCode reports whether an HTTP status warrants another
// attempt.
func retryableStatusCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type binding map[string]sparqlValue

type sparqlResponse struct {
	Results struct {
		Bindings []binding `json:"bindings"`
	} `json:"results"`
}

// query performs one GET against the endpoint. A non-nil error means the
// attempt itself failed; HTTP rejections come back as a status code with an
// optional Retry-After duration.
func (c *Client) query(ctx context.Context, query string) ([]binding, int, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Debug("wikidata: error response",
			"status", resp.StatusCode, "body", string(body))
		return nil, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
	}

	var decoded sparqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, 0, 0, fmt.Errorf("decoding response: %w", err)
	}
	return decoded.Results.Bindings, http.StatusOK, 0, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// matchFromBinding extracts the entity fields from one result row. Optional
// fields that fail to parse are dropped rather than failing the match.
func matchFromBinding(kind Kind, b binding) Match {
	m := Match{
		URI:   b["item"].Value,
		Label: b["itemLabel"].Value,
	}
	switch kind {
	case KindPlace:
		if v, ok := b["coord"]; ok {
			if p, ok := parsePoint(v.Value); ok {
				m.Coord = &p
			}
		}
		if v, ok := b["poblacion"]; ok {
			if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
				n := int64(f)
				m.Population = &n
			}
		}
	case KindCrop:
		m.Taxon = b["taxon"].Value
	}
	return m
}

// parsePoint reads the WKT "Point(lon lat)" literal returned for P625.
// Longitude comes first.
func parsePoint(s string) (Point, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "Point(") || !strings.HasSuffix(s, ")") {
		return Point{}, false
	}
	fields := strings.Fields(s[len("Point(") : len(s)-1])
	if len(fields) != 2 {
		return Point{}, false
	}
	lon, errLon := strconv.ParseFloat(fields[0], 64)
	lat, errLat := strconv.ParseFloat(fields[1], 64)
	if errLon != nil || errLat != nil {
		return Point{}, false
	}
	return Point{Lon: lon, Lat: lat}, true
}
