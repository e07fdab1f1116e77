// Package postgres persists resolved articles to PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS resolved_articles (
    url            TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    published_at   TIMESTAMPTZ NOT NULL,
    article_date   DATE NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    source         TEXT NOT NULL DEFAULT '',
    location_alias TEXT NOT NULL,
    location       TEXT NOT NULL,
    lat            DOUBLE PRECISION NOT NULL,
    lon            DOUBLE PRECISION NOT NULL,
    orig_lat       DOUBLE PRECISION NOT NULL,
    orig_lon       DOUBLE PRECISION NOT NULL,
    geohash        TEXT NOT NULL,
    geocode_status TEXT NOT NULL,
    match_strategy TEXT NOT NULL,
    match_score    INTEGER NOT NULL,
    run_id         TEXT NOT NULL,
    resolved_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS resolved_articles_date_idx ON resolved_articles (article_date);
`

const upsertSQL = `
INSERT INTO resolved_articles (
    url, title, published_at, article_date, description, source,
    location_alias, location, lat, lon, orig_lat, orig_lon,
    geohash, geocode_status, match_strategy, match_score, run_id, resolved_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (url) DO UPDATE SET
    title          = EXCLUDED.title,
    description    = EXCLUDED.description,
    location_alias = EXCLUDED.location_alias,
    location       = EXCLUDED.location,
    lat            = EXCLUDED.lat,
    lon            = EXCLUDED.lon,
    orig_lat       = EXCLUDED.orig_lat,
    orig_lon       = EXCLUDED.orig_lon,
    geohash        = EXCLUDED.geohash,
    geocode_status = EXCLUDED.geocode_status,
    match_strategy = EXCLUDED.match_strategy,
    match_score    = EXCLUDED.match_score,
    run_id         = EXCLUDED.run_id,
    resolved_at    = EXCLUDED.resolved_at
`

// Store wraps a pgx connection pool. It implements pipeline.BatchLoader.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore connects to connString and returns a Store.
func NewStore(ctx context.Context, connString string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "postgres" }

// EnsureSchema creates the resolved_articles table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LoadBatch upserts every article of the run keyed by URL.
func (s *Store) LoadBatch(ctx context.Context, tl domain.Timeline) error {
	articles := tl.Articles()
	if len(articles) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range articles {
		batch.Queue(upsertSQL, upsertArgs(a, tl.RunID, tl.GeneratedAt)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, a := range articles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert %s: %w", a.URL, err)
		}
	}
	s.logger.Debug("upserted resolved articles", "count", len(articles), "run_id", tl.RunID)
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func upsertArgs(a domain.ResolvedArticle, runID string, resolvedAt time.Time) []any {
	date := a.Date
	if date == "" {
		date = a.PublishedAt.UTC().Format(time.DateOnly)
	}
	return []any{
		a.URL, a.Title, a.PublishedAt, date, a.Description, a.Source,
		a.LocationAlias, a.Location, a.Coordinate.Lat, a.Coordinate.Lon, a.Original.Lat, a.Original.Lon,
		a.Geohash, string(a.GeocodeStatus), string(a.MatchStrategy), a.MatchScore, runID, resolvedAt,
	}
}
