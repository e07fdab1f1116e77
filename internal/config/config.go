package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Article sources.
	NewsAPIKey     string
	NewsAPIURL     string
	NewsQueries    []string
	RSSFeeds       []string
	RequestTimeout time.Duration
	MinTextLength  int
	FetchUserAgent string

	// Resolution cache.
	ArticleCacheTTL time.Duration
	GeocodeCacheTTL time.Duration
	CacheMaxEntries int

	// Geocoding.
	GeocodeProvider   string
	NominatimURL      string
	GeocodeUserAgent  string
	GeocodeRateLimit  time.Duration
	GeocodeMaxRetries int
	MapboxToken       string
	MapboxTimeout     time.Duration
	FallbackLat       float64
	FallbackLon       float64

	// Location matching.
	DefaultAlias        string
	GazetteerPath       string
	MatchLooseSubstring bool
	MatchMinScore       int

	// Pipeline.
	ResolveWorkers  int
	RefreshInterval time.Duration
	TimelineStart   string
	DeoverlapStep   float64

	// Sinks.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
	DatabaseURL    string
}

// Provider names accepted by GEOCODE_PROVIDER.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		NewsAPIKey:     os.Getenv("NEWSAPI_KEY"),
		NewsAPIURL:     sharedcfg.EnvOrDefault("NEWSAPI_URL", "https://newsapi.org"),
		NewsQueries:    splitList(os.Getenv("NEWS_QUERIES"), ";"),
		RSSFeeds:       splitList(os.Getenv("RSS_FEEDS"), ","),
		RequestTimeout: p.duration("REQUEST_TIMEOUT", "10s", false),
		MinTextLength:  p.integer("MIN_TEXT_LENGTH", 200, 0),
		FetchUserAgent: sharedcfg.EnvOrDefault("FETCH_USER_AGENT", "Mozilla/5.0 (compatible; ICE-GIS-App/1.0)"),

		ArticleCacheTTL: p.duration("ARTICLE_CACHE_TTL", "30m", true),
		GeocodeCacheTTL: p.duration("GEOCODE_CACHE_TTL", "24h", true),
		CacheMaxEntries: p.integer("CACHE_MAX_ENTRIES", 0, 0),

		GeocodeProvider:   strings.ToLower(sharedcfg.EnvOrDefault("GEOCODE_PROVIDER", ProviderNominatim)),
		NominatimURL:      sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocodeUserAgent:  sharedcfg.EnvOrDefault("GEOCODE_USER_AGENT", "ice_gis_app/1.0"),
		GeocodeRateLimit:  p.duration("GEOCODE_RATE_LIMIT", "2s", true),
		GeocodeMaxRetries: p.integer("GEOCODE_MAX_RETRIES", 3, 0),
		MapboxToken:       os.Getenv("MAPBOX_TOKEN"),
		MapboxTimeout:     p.duration("MAPBOX_TIMEOUT", "5s", false),
		FallbackLat:       p.float("FALLBACK_LAT", 39.8283),
		FallbackLon:       p.float("FALLBACK_LON", -98.5795),

		DefaultAlias:        strings.ToLower(sharedcfg.EnvOrDefault("DEFAULT_ALIAS", "washington")),
		GazetteerPath:       os.Getenv("GAZETTEER_PATH"),
		MatchLooseSubstring: p.boolean("MATCH_LOOSE_SUBSTRING", false),
		MatchMinScore:       p.integer("MATCH_MIN_SCORE", 3, 0),

		ResolveWorkers:  p.integer("RESOLVE_WORKERS", 4, 1),
		RefreshInterval: p.duration("REFRESH_INTERVAL", "30m", false),
		TimelineStart:   sharedcfg.EnvOrDefault("TIMELINE_START", "2025-01-20"),
		DeoverlapStep:   p.float("DEOVERLAP_STEP", 0.01),

		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "resolved-news-articles"),
		KafkaEnabled:   p.boolean("KAFKA_ENABLED", false),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if _, err := time.Parse(time.DateOnly, cfg.TimelineStart); err != nil {
		return nil, errors.New("invalid TIMELINE_START: want YYYY-MM-DD")
	}
	if cfg.DeoverlapStep <= 0 {
		return nil, errors.New("invalid DEOVERLAP_STEP: must be positive")
	}
	if cfg.FallbackLat < -90 || cfg.FallbackLat > 90 {
		return nil, errors.New("invalid FALLBACK_LAT: out of range")
	}
	if cfg.FallbackLon < -180 || cfg.FallbackLon > 180 {
		return nil, errors.New("invalid FALLBACK_LON: out of range")
	}
	switch cfg.GeocodeProvider {
	case ProviderNominatim:
	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODE_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODE_PROVIDER %q: want nominatim or mapbox", cfg.GeocodeProvider)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// parser records the first invalid variable so Load can report it.
type parser struct {
	err error
}

func (p *parser) fail(key string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s", key)
	}
}

// duration parses key; zero is accepted only when allowZero is set.
func (p *parser) duration(key, def string, allowZero bool) time.Duration {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		p.fail(key)
		return 0
	}
	return d
}

func (p *parser) integer(key string, def, minimum int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		p.fail(key)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key)
		return def
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key)
		return def
	}
	return b
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
