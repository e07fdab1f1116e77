package pipeline

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/ice-news-geomap/internal/deoverlap"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
)

// TextNormalizer produces the matcher input for an article.
type TextNormalizer interface {
	Normalize(ctx context.Context, a domain.Article) string
}

// LocationMatcher picks a location alias from an article's title and normalized text.
type LocationMatcher interface {
	Match(title, text string) domain.LocationMatch
}

// Locator resolves a location alias to a coordinate. It never fails.
type Locator interface {
	Locate(ctx context.Context, name string) domain.Resolution
}

// CanonicalNamer maps an alias to its display name, or "" when unknown.
type CanonicalNamer interface {
	Canonical(alias string) string
}

// Resolver places articles on the map: normalize, match, geocode, then
// spread coincident points apart.
type Resolver struct {
	normalizer TextNormalizer
	matcher    LocationMatcher
	locator    Locator
	names      CanonicalNamer
	workers    int
	step       float64
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewResolver creates a Resolver running up to workers articles at once.
// One worker processes articles strictly in order.
func NewResolver(n TextNormalizer, m LocationMatcher, l Locator, names CanonicalNamer, workers int, step float64, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		normalizer: n,
		matcher:    m,
		locator:    l,
		names:      names,
		workers:    max(workers, 1),
		step:       step,
		metrics:    metrics,
		logger:     logger,
	}
}

// Resolve returns one ResolvedArticle per input, in input order, with
// pairwise-distinct coordinates. It fails only when ctx is cancelled.
func (r *Resolver) Resolve(ctx context.Context, articles []domain.Article) ([]domain.ResolvedArticle, error) {
	out := make([]domain.ResolvedArticle, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, a := range articles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = r.resolveOne(gctx, a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	originals := make([]domain.Coordinate, len(out))
	for i := range out {
		originals[i] = out[i].Original
	}
	spread := deoverlap.Spread(originals, r.step)
	for i := range out {
		out[i].DisplayID = domain.DisplayID(i)
		out[i].Coordinate = spread[i]
		out[i].Geohash = spread[i].Geohash()
		out[i].OffsetKm = math.Round(out[i].Original.DistanceKm(spread[i])*1000) / 1000
	}

	r.metrics.ArticlesResolved.Add(float64(len(out)))
	return out, nil
}

func (r *Resolver) resolveOne(ctx context.Context, a domain.Article) domain.ResolvedArticle {
	text := r.normalizer.Normalize(ctx, a)
	match := r.matcher.Match(a.Title, text)
	r.metrics.MatchStrategy.WithLabelValues(string(match.Strategy)).Inc()

	res := r.locator.Locate(ctx, match.Alias)

	location := r.names.Canonical(match.Alias)
	if location == "" {
		location = match.Alias
	}
	r.logger.Debug("article resolved",
		"url", a.URL,
		"alias", match.Alias,
		"strategy", match.Strategy,
		"status", res.Status,
	)
	return domain.NewResolvedArticle(a, match, location, res)
}
