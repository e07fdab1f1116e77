package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
)

// ArticleCollector finds the articles for the first productive window.
type ArticleCollector interface {
	CollectWidening(ctx context.Context, windows []domain.Window) (domain.Window, []domain.Article, error)
}

// ArticleResolver places a batch of articles on the map.
type ArticleResolver interface {
	Resolve(ctx context.Context, articles []domain.Article) ([]domain.ResolvedArticle, error)
}

// BatchLoader writes a published timeline to a downstream store.
type BatchLoader interface {
	Name() string
	LoadBatch(ctx context.Context, tl domain.Timeline) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the collect-resolve-publish loop.
type Pipeline struct {
	collector     ArticleCollector
	resolver      ArticleResolver
	snapshot      *Snapshot
	loaders       []BatchLoader
	interval      time.Duration
	timelineStart string
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *observability.Metrics
	ready         atomic.Bool
}

// New creates a Pipeline that refreshes every interval and publishes to snapshot
// and every loader.
func New(c ArticleCollector, r ArticleResolver, snapshot *Snapshot, loaders []BatchLoader, interval time.Duration, timelineStart string, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		collector:     c,
		resolver:      r,
		snapshot:      snapshot,
		loaders:       loaders,
		interval:      interval,
		timelineStart: timelineStart,
		clock:         clockwork.NewRealClock(),
		logger:        logger,
		metrics:       metrics,
	}
}

// SetClock replaces the time source used for windows and sleeps.
func (p *Pipeline) SetClock(c clockwork.Clock) {
	p.clock = c
}

// CheckReadiness returns nil once a timeline has been published, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no timeline has been published yet")
	}
	return nil
}

// Ready reports whether a timeline has been published.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run refreshes the timeline until the context is cancelled. Failed
// refreshes are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "refresh_interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		wait := p.interval
		_, err := p.Refresh(ctx)
		switch {
		case err == nil:
			backoff = initialBackoff
		case ctx.Err() != nil:
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case errors.Is(err, ErrNoArticles):
			// Sources answered with nothing; wait the full interval.
			p.logger.Warn("no articles found in any window", "retry_in", wait)
		default:
			p.metrics.RefreshErrors.Inc()
			p.logger.Error("refresh failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = sharedretry.NextBackoff(backoff, maxBackoff)
		}

		if !p.sleep(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// Refresh runs one collect-resolve-publish cycle. Sink failures are logged
// and do not fail the refresh: the snapshot is already published by then.
func (p *Pipeline) Refresh(ctx context.Context) (domain.Timeline, error) {
	start := p.clock.Now()

	w, articles, err := p.collector.CollectWidening(ctx, Windows(start, p.timelineStart))
	if err != nil {
		return domain.Timeline{}, fmt.Errorf("collect: %w", err)
	}

	resolved, err := p.resolver.Resolve(ctx, articles)
	if err != nil {
		return domain.Timeline{}, fmt.Errorf("resolve: %w", err)
	}

	tl := domain.NewTimeline(uuid.NewString(), w.From, w.To, resolved)
	p.snapshot.Store(tl)
	p.ready.Store(true)

	for _, l := range p.loaders {
		if err := l.LoadBatch(ctx, tl); err != nil {
			p.logger.Error("sink load failed", "sink", l.Name(), "error", err, "run_id", tl.RunID)
			p.metrics.SinkWrites.WithLabelValues(l.Name(), "error").Inc()
			continue
		}
		p.metrics.SinkWrites.WithLabelValues(l.Name(), "success").Inc()
	}

	p.metrics.RefreshDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.RefreshBatchSize.Observe(float64(len(resolved)))
	p.metrics.LastRefresh.Set(float64(p.clock.Now().Unix()))
	p.logger.Info("timeline published",
		"run_id", tl.RunID,
		"articles", tl.TotalArticles,
		"dates", len(tl.Dates),
		"from", w.From,
		"to", w.To,
	)
	return tl, nil
}

// sleep waits on the pipeline clock so tests can drive the loop.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
