// Package app assembles the resolution stack from configuration. Both the
// long-running service and the one-shot CLI build their components here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ice-news-geomap/internal/adapter/mapbox"
	"github.com/couchcryptid/ice-news-geomap/internal/adapter/newsapi"
	"github.com/couchcryptid/ice-news-geomap/internal/adapter/nominatim"
	"github.com/couchcryptid/ice-news-geomap/internal/adapter/rss"
	"github.com/couchcryptid/ice-news-geomap/internal/cache"
	"github.com/couchcryptid/ice-news-geomap/internal/config"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/gazetteer"
	"github.com/couchcryptid/ice-news-geomap/internal/geocode"
	"github.com/couchcryptid/ice-news-geomap/internal/matcher"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
	"github.com/couchcryptid/ice-news-geomap/internal/pipeline"
	"github.com/couchcryptid/ice-news-geomap/internal/textnorm"
)

// Components are the collection and resolution stages sharing one cache.
type Components struct {
	Gazetteer *gazetteer.Gazetteer
	Store     *cache.Store
	Geocoder  *geocode.Service
	Collector *pipeline.Collector
	Resolver  *pipeline.Resolver
}

// Build wires the gazetteer, cache, geocoder, article sources, collector and
// resolver described by cfg.
func Build(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Components, error) {
	gaz, err := loadGazetteer(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MatchLooseSubstring {
		gaz = gaz.WithLooseSubstring()
	}
	if _, ok := gaz.Lookup(cfg.DefaultAlias); !ok {
		return nil, fmt.Errorf("invalid DEFAULT_ALIAS: %q is not in the gazetteer", cfg.DefaultAlias)
	}

	store := cache.NewStore(cfg.CacheMaxEntries, nil)

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := geocode.Options{
		MinInterval:    cfg.GeocodeRateLimit,
		MaxRetries:     cfg.GeocodeMaxRetries,
		InitialBackoff: geocode.DefaultOptions().InitialBackoff,
		Fallback:       domain.Coordinate{Lat: cfg.FallbackLat, Lon: cfg.FallbackLon},
	}
	geocoder := geocode.NewService(provider, gaz, store, cfg.GeocodeCacheTTL, opts, metrics, logger)

	th := matcher.DefaultThresholds()
	th.MinScore = cfg.MatchMinScore
	fetcher := pipeline.InstrumentFetcher(textnorm.NewHTTPFetcher(cfg.RequestTimeout, cfg.FetchUserAgent, logger), metrics)

	resolver := pipeline.NewResolver(
		textnorm.New(fetcher, cfg.MinTextLength, logger),
		matcher.New(gaz, th, cfg.DefaultAlias, logger),
		geocoder,
		gaz,
		cfg.ResolveWorkers,
		cfg.DeoverlapStep,
		metrics,
		logger,
	)

	collector := pipeline.NewCollector(Sources(cfg, logger), store, cfg.ArticleCacheTTL, metrics, logger)

	logger.Info("resolution stack ready",
		"gazetteer_entries", gaz.Len(),
		"geocode_provider", cfg.GeocodeProvider,
		"workers", cfg.ResolveWorkers,
	)
	return &Components{
		Gazetteer: gaz,
		Store:     store,
		Geocoder:  geocoder,
		Collector: collector,
		Resolver:  resolver,
	}, nil
}

// Sources returns the article sources enabled by cfg: NewsAPI when a key is
// set, RSS when feeds are listed.
func Sources(cfg *config.Config, logger *slog.Logger) []pipeline.ArticleSource {
	var sources []pipeline.ArticleSource
	if cfg.NewsAPIKey != "" {
		sources = append(sources, newsapi.NewClient(cfg.NewsAPIKey, cfg.NewsAPIURL, cfg.NewsQueries, cfg.RequestTimeout, logger))
	} else {
		logger.Warn("NEWSAPI_KEY not set, newsapi source disabled")
	}
	if len(cfg.RSSFeeds) > 0 {
		sources = append(sources, rss.NewSource(cfg.RSSFeeds, cfg.RequestTimeout, cfg.FetchUserAgent, logger))
	}
	return sources
}

func loadGazetteer(cfg *config.Config) (*gazetteer.Gazetteer, error) {
	if cfg.GazetteerPath == "" {
		return gazetteer.Default()
	}
	g, err := gazetteer.LoadFile(cfg.GazetteerPath)
	if err != nil {
		return nil, fmt.Errorf("load GAZETTEER_PATH: %w", err)
	}
	return g, nil
}

func newProvider(cfg *config.Config, logger *slog.Logger) (domain.Geocoder, error) {
	switch cfg.GeocodeProvider {
	case config.ProviderMapbox:
		return mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger), nil
	case config.ProviderNominatim:
		return nominatim.NewClient(cfg.NominatimURL, cfg.GeocodeUserAgent, cfg.RequestTimeout, logger), nil
	default:
		return nil, fmt.Errorf("invalid GEOCODE_PROVIDER: %q", cfg.GeocodeProvider)
	}
}

// Resolve resolves articles and groups them into a timeline for w.
func (c *Components) Resolve(ctx context.Context, runID string, w domain.Window, articles []domain.Article) (domain.Timeline, error) {
	resolved, err := c.Resolver.Resolve(ctx, articles)
	if err != nil {
		return domain.Timeline{}, err
	}
	return domain.NewTimeline(runID, w.From, w.To, resolved), nil
}
