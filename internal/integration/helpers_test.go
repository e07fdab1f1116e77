//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/couchcryptid/ice-news-geomap/internal/app"
	"github.com/couchcryptid/ice-news-geomap/internal/cache"
	"github.com/couchcryptid/ice-news-geomap/internal/config"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
	"github.com/couchcryptid/ice-news-geomap/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("geomap-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("geomap"),
		tcpostgres.WithUsername("geomap"),
		tcpostgres.WithPassword("geomap"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// countByDate reads the number of stored articles per calendar date.
func countByDate(ctx context.Context, t *testing.T, dsn string) map[string]int {
	t.Helper()
	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, `SELECT to_char(article_date, 'YYYY-MM-DD'), count(*) FROM resolved_articles GROUP BY article_date`)
	require.NoError(t, err)
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var date string
		var n int
		require.NoError(t, rows.Scan(&date, &n))
		out[date] = n
	}
	require.NoError(t, rows.Err())
	return out
}

// stubSource serves a fixed batch of raw articles.
type stubSource struct {
	raws []domain.RawArticle
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) FetchArticles(context.Context, domain.Window) ([]domain.RawArticle, error) {
	return s.raws, nil
}

// fixtureArticles are dated relative to now so they fall inside the
// 30-day window.
func fixtureArticles() []domain.RawArticle {
	day := time.Now().UTC().AddDate(0, 0, -2).Format(time.RFC3339)
	return []domain.RawArticle{
		{Title: "ICE raids in Houston leave dozens detained", URL: "https://example.com/houston-1", PublishedAt: day, SourceName: "Wire"},
		{Title: "More arrests in Houston overnight", URL: "https://example.com/houston-2", PublishedAt: day, SourceName: "Wire"},
		{Title: "Federal agents conduct immigration operation", URL: "https://example.com/dc-1", PublishedAt: day, SourceName: "Wire"},
	}
}

// newPipeline wires the real resolution stack against a local geocoder that
// answers every query with Houston.
func newPipeline(t *testing.T, loaders ...pipeline.BatchLoader) (*pipeline.Pipeline, *pipeline.Snapshot) {
	t.Helper()
	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"29.7604","lon":"-95.3698"}]`))
	}))
	t.Cleanup(geocoder.Close)

	cfg := &config.Config{
		RequestTimeout:    5 * time.Second,
		ArticleCacheTTL:   30 * time.Minute,
		GeocodeCacheTTL:   24 * time.Hour,
		GeocodeProvider:   config.ProviderNominatim,
		NominatimURL:      geocoder.URL,
		GeocodeUserAgent:  "geomap-integration",
		GeocodeMaxRetries: 1,
		FallbackLat:       39.8283,
		FallbackLon:       -98.5795,
		DefaultAlias:      "washington",
		MatchMinScore:     3,
		ResolveWorkers:    2,
		DeoverlapStep:     0.01,
		RefreshInterval:   time.Hour,
		TimelineStart:     "2025-01-20",
	}
	metrics := observability.NewMetricsForTesting()
	components, err := app.Build(cfg, metrics, discardLogger())
	require.NoError(t, err)

	collector := pipeline.NewCollector(
		[]pipeline.ArticleSource{stubSource{raws: fixtureArticles()}},
		cache.NewStore(0, nil), cfg.ArticleCacheTTL, metrics, discardLogger())

	snapshot := &pipeline.Snapshot{}
	p := pipeline.New(collector, components.Resolver, snapshot, loaders,
		cfg.RefreshInterval, cfg.TimelineStart, discardLogger(), metrics)
	return p, snapshot
}
