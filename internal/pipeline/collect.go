package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/ice-news-geomap/internal/cache"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
)

// ErrNoArticles is returned when no window yields a relevant article.
var ErrNoArticles = errors.New("no articles found")

// ArticleSource delivers raw article records for a date window.
type ArticleSource interface {
	Name() string
	FetchArticles(ctx context.Context, w domain.Window) ([]domain.RawArticle, error)
}

// Collector gathers validated, relevant, deduplicated articles from every source.
type Collector struct {
	sources []ArticleSource
	terms   []string
	cache   *cache.Namespace[[]domain.Article]
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCollector creates a Collector. Results are cached per window in store
// under the news_data_ prefix for ttl.
func NewCollector(sources []ArticleSource, store *cache.Store, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Collector {
	return &Collector{
		sources: sources,
		terms:   domain.DefaultRelevantTerms,
		cache:   cache.NewNamespace[[]domain.Article](store, cache.NewsDataPrefix, ttl),
		metrics: metrics,
		logger:  logger,
	}
}

// Windows lists the date windows tried in order: the last 30 days, the last
// 60 days, everything since start, then no bound at all.
func Windows(now time.Time, start string) []domain.Window {
	today := now.UTC().Format(time.DateOnly)
	return []domain.Window{
		domain.LastDays(now, 30),
		domain.LastDays(now, 60),
		{From: start, To: today},
		{},
	}
}

// CollectWidening tries each window in turn and returns the first that
// yields articles. Windows whose sources all fail are skipped.
func (c *Collector) CollectWidening(ctx context.Context, windows []domain.Window) (domain.Window, []domain.Article, error) {
	var errs []error
	for _, w := range windows {
		articles, err := c.Collect(ctx, w)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Window{}, nil, ctx.Err()
			}
			c.logger.Warn("collect failed, widening window", "from", w.From, "to", w.To, "error", err)
			errs = append(errs, err)
			continue
		}
		if len(articles) > 0 {
			return w, articles, nil
		}
		c.logger.Info("no articles in window, widening", "from", w.From, "to", w.To)
	}
	if len(errs) > 0 {
		return domain.Window{}, nil, errors.Join(errs...)
	}
	return domain.Window{}, nil, ErrNoArticles
}

// Collect returns the articles for one window, newest first. Non-empty
// results are cached.
func (c *Collector) Collect(ctx context.Context, w domain.Window) ([]domain.Article, error) {
	articles, hit, err := c.cache.GetOrCompute(w.Key(), func() ([]domain.Article, error) {
		articles, err := c.collect(ctx, w)
		if err != nil {
			return nil, err
		}
		if len(articles) == 0 {
			return nil, ErrNoArticles
		}
		return articles, nil
	})
	if errors.Is(err, ErrNoArticles) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if hit {
		c.logger.Info("returning cached news data", "from", w.From, "to", w.To, "count", len(articles))
	}
	return articles, nil
}

func (c *Collector) collect(ctx context.Context, w domain.Window) ([]domain.Article, error) {
	batches := make([][]domain.RawArticle, len(c.sources))
	errs := make([]error, len(c.sources))

	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			raw, err := src.FetchArticles(ctx, w)
			if err != nil {
				c.logger.Error("source failed", "source", src.Name(), "error", err)
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
			}
			c.metrics.ArticlesCollected.WithLabelValues(src.Name()).Add(float64(len(raw)))
			batches[i] = raw
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if len(c.sources) > 0 && failed == len(c.sources) {
		return nil, errors.Join(errs...)
	}

	var out []domain.Article
	seen := make(map[string]bool)
	for _, batch := range batches {
		for _, raw := range batch {
			a, err := domain.ParseArticle(raw)
			if err != nil {
				c.logger.Debug("dropping malformed article", "url", raw.URL, "error", err)
				c.metrics.ArticlesDropped.WithLabelValues("malformed").Inc()
				continue
			}
			if seen[a.URL] {
				c.metrics.ArticlesDropped.WithLabelValues("duplicate").Inc()
				continue
			}
			seen[a.URL] = true
			if !w.Contains(a.Date()) {
				c.metrics.ArticlesDropped.WithLabelValues("out_of_window").Inc()
				continue
			}
			if !domain.IsRelevant(a, c.terms) {
				c.metrics.ArticlesDropped.WithLabelValues("irrelevant").Inc()
				continue
			}
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date() > out[j].Date() })
	c.logger.Info("collected articles", "from", w.From, "to", w.To, "count", len(out))
	return out, nil
}
