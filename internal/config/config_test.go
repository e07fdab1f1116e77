package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Empty(t, cfg.NewsAPIKey)
	assert.Equal(t, "https://newsapi.org", cfg.NewsAPIURL)
	assert.Empty(t, cfg.NewsQueries)
	assert.Empty(t, cfg.RSSFeeds)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 200, cfg.MinTextLength)

	assert.Equal(t, 30*time.Minute, cfg.ArticleCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.GeocodeCacheTTL)
	assert.Equal(t, 0, cfg.CacheMaxEntries)

	assert.Equal(t, ProviderNominatim, cfg.GeocodeProvider)
	assert.Equal(t, "ice_gis_app/1.0", cfg.GeocodeUserAgent)
	assert.Equal(t, 2*time.Second, cfg.GeocodeRateLimit)
	assert.Equal(t, 3, cfg.GeocodeMaxRetries)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 39.8283, cfg.FallbackLat)
	assert.Equal(t, -98.5795, cfg.FallbackLon)

	assert.Equal(t, "washington", cfg.DefaultAlias)
	assert.Empty(t, cfg.GazetteerPath)
	assert.False(t, cfg.MatchLooseSubstring)
	assert.Equal(t, 3, cfg.MatchMinScore)

	assert.Equal(t, 4, cfg.ResolveWorkers)
	assert.Equal(t, 30*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "2025-01-20", cfg.TimelineStart)
	assert.Equal(t, 0.01, cfg.DeoverlapStep)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "resolved-news-articles", cfg.KafkaSinkTopic)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("NEWSAPI_KEY", "abc")
	t.Setenv("NEWS_QUERIES", "ICE raids; border patrol ;")
	t.Setenv("RSS_FEEDS", "https://a.example/rss, https://b.example/atom")
	t.Setenv("ARTICLE_CACHE_TTL", "0")
	t.Setenv("CACHE_MAX_ENTRIES", "500")
	t.Setenv("GEOCODE_PROVIDER", "Mapbox")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("GEOCODE_RATE_LIMIT", "0s")
	t.Setenv("MATCH_LOOSE_SUBSTRING", "true")
	t.Setenv("RESOLVE_WORKERS", "1")
	t.Setenv("DEFAULT_ALIAS", "Denver")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/geomap")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "abc", cfg.NewsAPIKey)
	assert.Equal(t, []string{"ICE raids", "border patrol"}, cfg.NewsQueries)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/atom"}, cfg.RSSFeeds)
	assert.Equal(t, time.Duration(0), cfg.ArticleCacheTTL)
	assert.Equal(t, 500, cfg.CacheMaxEntries)
	assert.Equal(t, ProviderMapbox, cfg.GeocodeProvider)
	assert.Equal(t, time.Duration(0), cfg.GeocodeRateLimit)
	assert.True(t, cfg.MatchLooseSubstring)
	assert.Equal(t, 1, cfg.ResolveWorkers)
	assert.Equal(t, "denver", cfg.DefaultAlias)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "postgres://u:p@db/geomap", cfg.DatabaseURL)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValuesNameTheVariable(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"REQUEST_TIMEOUT", "0s"},
		{"REQUEST_TIMEOUT", "soon"},
		{"GEOCODE_CACHE_TTL", "-1h"},
		{"MAPBOX_TIMEOUT", "bad"},
		{"RESOLVE_WORKERS", "0"},
		{"GEOCODE_MAX_RETRIES", "-1"},
		{"MIN_TEXT_LENGTH", "many"},
		{"FALLBACK_LAT", "north"},
		{"FALLBACK_LAT", "91"},
		{"FALLBACK_LON", "-181"},
		{"MATCH_LOOSE_SUBSTRING", "sometimes"},
		{"TIMELINE_START", "20/01/2025"},
		{"DEOVERLAP_STEP", "0"},
		{"REFRESH_INTERVAL", "0"},
		{"GEOCODE_PROVIDER", "google"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MapboxWithoutToken(t *testing.T) {
	t.Setenv("GEOCODE_PROVIDER", "mapbox")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}
