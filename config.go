package agua

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/wikidata"
)

// Config holds all configuration for the water-use pipeline.
type Config struct {
	// Endpoint is the SPARQL endpoint queried during enrichment.
	// If empty, defaults to the public Wikidata query service.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UserAgent identifies this client to the endpoint. Wikimedia rejects
	// anonymous clients, so a descriptive value is required.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// SearchLanguage is the label language for entity search and display.
	SearchLanguage string `json:"search_language" yaml:"search_language"`

	// PlaceClass is the entity class a place candidate must be an instance
	// of, directly or through subclasses.
	PlaceClass string `json:"place_class" yaml:"place_class"`

	// RegionAnchor is the entity every place candidate must be located in,
	// directly or through the containment chain. It is what keeps a
	// same-named town on another continent from matching.
	RegionAnchor string `json:"region_anchor" yaml:"region_anchor"`

	// CropClasses is the allow-list of entity classes a crop candidate may
	// be an instance of.
	CropClasses []string `json:"crop_classes" yaml:"crop_classes"`

	// Retry behavior for endpoint queries.
	MaxAttempts    int `json:"max_attempts" yaml:"max_attempts"`
	BackoffMillis  int `json:"backoff_ms" yaml:"backoff_ms"`
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`

	// RateLimit caps outgoing queries per second. Zero disables pacing.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// Enrichment batch caps and parallelism.
	MaxPlaces   int `json:"max_places" yaml:"max_places"`
	MaxCrops    int `json:"max_crops" yaml:"max_crops"`
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// CacheDBPath is the SQLite file for the persistent resolution cache.
	// If empty, resolutions are only memoized for the duration of a run.
	CacheDBPath string `json:"cache_db_path" yaml:"cache_db_path"`
}

// DefaultConfig returns a Config tuned for the Valencian agricultural
// dataset: Spanish labels, municipality search anchored to the Comunitat
// Valenciana, and the crop taxonomy classes the catalog actually contains.
func DefaultConfig() Config {
	return Config{
		Endpoint:       wikidata.DefaultEndpoint,
		UserAgent:      wikidata.DefaultUserAgent,
		SearchLanguage: "es",
		PlaceClass:     "Q2074737",
		RegionAnchor:   "Q5720",
		CropClasses: []string{
			"Q25403900", "Q43263", "Q11344", "Q10998", "Q756", "Q5255892", "Q23392",
		},
		MaxAttempts:    3,
		BackoffMillis:  500,
		TimeoutSeconds: 20,
		MaxPlaces:      600,
		MaxCrops:       50,
		Concurrency:    1,
	}
}

// LoadConfig reads a YAML config file over the defaults. Fields absent from
// the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// withDefaults fills zero-valued fields so a partially specified Config is
// always usable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = def.Endpoint
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.SearchLanguage == "" {
		c.SearchLanguage = def.SearchLanguage
	}
	if c.PlaceClass == "" {
		c.PlaceClass = def.PlaceClass
	}
	if c.RegionAnchor == "" {
		c.RegionAnchor = def.RegionAnchor
	}
	if len(c.CropClasses) == 0 {
		c.CropClasses = def.CropClasses
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BackoffMillis == 0 {
		c.BackoffMillis = def.BackoffMillis
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
	if c.MaxPlaces == 0 {
		c.MaxPlaces = def.MaxPlaces
	}
	if c.MaxCrops == 0 {
		c.MaxCrops = def.MaxCrops
	}
	if c.Concurrency == 0 {
		c.Concurrency = def.Concurrency
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.MaxAttempts < 0:
		return fmt.Errorf("%w: max_attempts must not be negative", ErrInvalidConfig)
	case c.BackoffMillis < 0:
		return fmt.Errorf("%w: backoff_ms must not be negative", ErrInvalidConfig)
	case c.TimeoutSeconds < 0:
		return fmt.Errorf("%w: timeout_seconds must not be negative", ErrInvalidConfig)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	case c.MaxPlaces < 0 || c.MaxCrops < 0:
		return fmt.Errorf("%w: batch caps must not be negative", ErrInvalidConfig)
	case c.Concurrency < 0:
		return fmt.Errorf("%w: concurrency must not be negative", ErrInvalidConfig)
	}
	return nil
}

// clientConfig translates the flat config into the resolver client's form.
func (c Config) clientConfig() wikidata.Config {
	return wikidata.Config{
		Endpoint:     c.Endpoint,
		UserAgent:    c.UserAgent,
		Language:     c.SearchLanguage,
		PlaceClass:   c.PlaceClass,
		RegionAnchor: c.RegionAnchor,
		CropClasses:  c.CropClasses,
		MaxAttempts:  c.MaxAttempts,
		Backoff:      time.Duration(c.BackoffMillis) * time.Millisecond,
		Timeout:      time.Duration(c.TimeoutSeconds) * time.Second,
		RateLimit:    c.RateLimit,
	}
}
