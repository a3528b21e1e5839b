package wikidata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sparqlJSON(rows ...string) string {
	return `{"results":{"bindings":[` + strings.Join(rows, ",") + `]}}`
}

const placeRow = `{
	"item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q929822"},
	"itemLabel": {"type": "literal", "value": "el Campello"},
	"coord": {"type": "literal", "value": "Point(-0.39715 38.42524)"},
	"poblacion": {"type": "literal", "value": "31183"}
}`

const cropRow = `{
	"item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q13184"},
	"itemLabel": {"type": "literal", "value": "naranjo"},
	"taxon": {"type": "literal", "value": "Citrus sinensis"}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		Endpoint:     srv.URL,
		PlaceClass:   "Q2074737",
		RegionAnchor: "Q5720",
		CropClasses:  []string{"Q11344", "Q756"},
		Backoff:      time.Millisecond,
	})
	return c, srv
}

// ---- successful lookups ----

func TestResolvePlaceMatched(t *testing.T) {
	var gotUA atomic.Value
	var gotQuery atomic.Value
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		gotQuery.Store(r.URL.Query().Get("query"))
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format = %q, want %q", r.URL.Query().Get("format"), "json")
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(sparqlJSON(placeRow)))
	})

	res, err := c.Resolve(context.Background(), KindPlace, "el Campello")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want %v", res.Outcome, Matched)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	m := res.Match
	if m.URI != "http://www.wikidata.org/entity/Q929822" {
		t.Errorf("uri = %q", m.URI)
	}
	if m.Label != "el Campello" {
		t.Errorf("label = %q", m.Label)
	}
	if m.Coord == nil {
		t.Fatal("coord missing")
	}
	if m.Coord.Lon != -0.39715 || m.Coord.Lat != 38.42524 {
		t.Errorf("coord = %+v, want lon=-0.39715 lat=38.42524", *m.Coord)
	}
	if m.Population == nil || *m.Population != 31183 {
		t.Errorf("population = %v, want 31183", m.Population)
	}

	if ua := gotUA.Load(); ua != DefaultUserAgent {
		t.Errorf("user agent = %q, want %q", ua, DefaultUserAgent)
	}
	q, _ := gotQuery.Load().(string)
	for _, want := range []string{"EntitySearch", "el Campello", "wd:Q2074737", "wd:Q5720"} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q", want)
		}
	}
}

func TestResolveCropMatched(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sparqlJSON(cropRow)))
	})

	res, err := c.Resolve(context.Background(), KindCrop, "naranjo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want %v", res.Outcome, Matched)
	}
	if res.Match.Taxon != "Citrus sinensis" {
		t.Errorf("taxon = %q, want %q", res.Match.Taxon, "Citrus sinensis")
	}
	if res.Match.Coord != nil || res.Match.Population != nil {
		t.Error("crop match carries place fields")
	}
}

func TestResolveMatchWithoutOptionalFields(t *testing.T) {
	row := `{
		"item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q1"},
		"itemLabel": {"type": "literal", "value": "x"}
	}`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sparqlJSON(row)))
	})

	res, err := c.Resolve(context.Background(), KindPlace, "x")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want %v", res.Outcome, Matched)
	}
	if res.Match.Coord != nil {
		t.Error("coord should be nil when the endpoint omits it")
	}
	if res.Match.Population != nil {
		t.Error("population should be nil when the endpoint omits it")
	}
}

// ---- misses and failures ----

func TestResolveNoBindings(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(sparqlJSON()))
	})

	res, err := c.Resolve(context.Background(), KindPlace, "nowhere")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != NotFound {
		t.Errorf("outcome = %v, want %v", res.Outcome, NotFound)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestResolveEmptyLabel(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for empty label")
	})

	res, err := c.Resolve(context.Background(), KindPlace, "   ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != NotFound {
		t.Errorf("outcome = %v, want %v", res.Outcome, NotFound)
	}
}

func TestResolveClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "malformed query", http.StatusBadRequest)
	})

	res, err := c.Resolve(context.Background(), KindPlace, "x")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != NotFound {
		t.Errorf("outcome = %v, want %v", res.Outcome, NotFound)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestResolveRetriesThenMatches(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(sparqlJSON(placeRow)))
	})

	res, err := c.Resolve(context.Background(), KindPlace, "el Campello")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want %v", res.Outcome, Matched)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestResolveRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	res, err := c.Resolve(context.Background(), KindCrop, "naranjo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != RetryExhausted {
		t.Errorf("outcome = %v, want %v", res.Outcome, RetryExhausted)
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestResolveMalformedResponse(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"results": [not json`))
	})

	res, err := c.Resolve(context.Background(), KindPlace, "x")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != NotFound {
		t.Errorf("outcome = %v, want %v", res.Outcome, NotFound)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestResolveAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{Endpoint: srv.URL, Timeout: 30 * time.Millisecond, Backoff: time.Millisecond})

	res, err := c.Resolve(context.Background(), KindPlace, "x")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != NotFound {
		t.Errorf("outcome = %v, want %v", res.Outcome, NotFound)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestResolveCanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sparqlJSON(placeRow)))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Resolve(ctx, KindPlace, "x")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

// ---- parsing helpers ----

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		lon, la float64
		ok      bool
	}{
		{"Point(-0.39715 38.42524)", -0.39715, 38.42524, true},
		{"Point(0 0)", 0, 0, true},
		{" Point(1.5 2.5) ", 1.5, 2.5, true},
		{"Point(1.5)", 0, 0, false},
		{"POINT(1 2)", 0, 0, false},
		{"Point(a b)", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		p, ok := parsePoint(tt.in)
		if ok != tt.ok {
			t.Errorf("parsePoint(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && (p.Lon != tt.lon || p.Lat != tt.la) {
			t.Errorf("parsePoint(%q) = %+v, want lon=%v lat=%v", tt.in, p, tt.lon, tt.la)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{"0", 0},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
