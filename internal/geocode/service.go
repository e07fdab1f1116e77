// Package geocode turns location aliases into coordinates. Every lookup
// yields a usable coordinate: provider misses and failures fall back to a
// configured point and are cached like successes.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/ice-news-geomap/internal/cache"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/gazetteer"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
)

const countrySuffix = ", United States"

// DefaultFallback is the geographic centre of the contiguous United States.
var DefaultFallback = domain.Coordinate{Lat: 39.8283, Lon: -98.5795}

// errCancelled marks a lookup abandoned by the caller; it is never cached.
var errCancelled = errors.New("geocode lookup cancelled")

// Options tunes provider access.
type Options struct {
	// MinInterval is the minimum delay between provider calls. Zero disables limiting.
	MinInterval time.Duration
	// MaxRetries is the number of retries after a failed provider call.
	MaxRetries int
	// InitialBackoff is the first retry delay; it grows exponentially.
	InitialBackoff time.Duration
	Fallback       domain.Coordinate
}

// DefaultOptions returns the stock provider settings.
func DefaultOptions() Options {
	return Options{
		MinInterval:    2 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		Fallback:       DefaultFallback,
	}
}

// Service resolves place names through a cache, a rate limiter and a provider.
type Service struct {
	provider domain.Geocoder
	gaz      *gazetteer.Gazetteer
	cache    *cache.Namespace[domain.Resolution]
	limiter  *rate.Limiter
	opts     Options
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService creates a geocoding service. Resolutions are stored in store
// under the geocode_ prefix and stay fresh for ttl.
func NewService(provider domain.Geocoder, gaz *gazetteer.Gazetteer, store *cache.Store, ttl time.Duration, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Service {
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	return &Service{
		provider: provider,
		gaz:      gaz,
		cache:    cache.NewNamespace[domain.Resolution](store, cache.GeocodePrefix, ttl),
		limiter:  rate.NewLimiter(limit, 1),
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// Locate returns the coordinate for a place name. It never fails; when the
// provider finds nothing or keeps failing the fallback coordinate is returned
// with a status saying why.
func (s *Service) Locate(ctx context.Context, name string) domain.Resolution {
	key := strings.ToLower(strings.TrimSpace(name))

	res, hit, err := s.cache.GetOrCompute(key, func() (domain.Resolution, error) {
		return s.lookup(ctx, name)
	})
	// A shared lookup started by a caller that has since gone away; run our own.
	for errors.Is(err, errCancelled) && ctx.Err() == nil {
		res, hit, err = s.cache.GetOrCompute(key, func() (domain.Resolution, error) {
			return s.lookup(ctx, name)
		})
	}
	if hit {
		s.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		s.logger.Debug("using cached coordinates", "name", name)
		return res
	}
	s.metrics.GeocodeCache.WithLabelValues("miss").Inc()
	if err != nil {
		return domain.Resolution{
			Coordinate: s.opts.Fallback,
			Status:     domain.GeocodeTransientError,
			Query:      s.Query(name),
		}
	}
	return res
}

// Query builds the provider query for a place name: the gazetteer's
// canonical form, qualified with the country.
func (s *Service) Query(name string) string {
	q := s.gaz.Normalize(name)
	if !strings.Contains(strings.ToLower(q), "united states") {
		q += countrySuffix
	}
	return q
}

func (s *Service) lookup(ctx context.Context, name string) (domain.Resolution, error) {
	query := s.Query(name)

	start := time.Now()
	result, err := s.call(ctx, query)
	s.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		return domain.Resolution{}, fmt.Errorf("%w: %w", errCancelled, ctx.Err())
	}

	res := domain.Resolution{Coordinate: s.opts.Fallback, Query: query}
	switch {
	case err != nil:
		res.Status = domain.GeocodeTransientError
		s.logger.Error("geocoding error, using fallback", "name", name, "query", query, "error", err)
	case !result.Found:
		res.Status = domain.GeocodeNotFound
		s.logger.Warn("geocoding found nothing, using fallback", "name", name, "query", query)
	default:
		res.Status = domain.GeocodeResolved
		res.Coordinate = domain.Coordinate{Lat: result.Lat, Lon: result.Lon}
		res.Address = result.FormattedAddress
		s.logger.Info("geocoded location", "name", name, "coords", res.Coordinate.String())
	}
	s.metrics.GeocodeRequests.WithLabelValues(string(res.Status)).Inc()
	return res, nil
}

// call invokes the provider under the rate limiter, retrying failures with
// exponential backoff.
func (s *Service) call(ctx context.Context, query string) (domain.GeocodingResult, error) {
	b := backoff.NewExponentialBackOff()
	if s.opts.InitialBackoff > 0 {
		b.InitialInterval = s.opts.InitialBackoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(s.opts.MaxRetries, 0))), ctx)

	var result domain.GeocodingResult
	op := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		r, err := s.provider.ForwardGeocode(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			s.logger.Debug("geocode attempt failed", "query", query, "error", err)
			return err
		}
		result = r
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return domain.GeocodingResult{}, err
	}
	return result, nil
}
