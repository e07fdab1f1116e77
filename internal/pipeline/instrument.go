package pipeline

import (
	"context"

	"github.com/couchcryptid/ice-news-geomap/internal/observability"
	"github.com/couchcryptid/ice-news-geomap/internal/textnorm"
)

type instrumentedFetcher struct {
	next    textnorm.PageFetcher
	metrics *observability.Metrics
}

// InstrumentFetcher counts page fetches by outcome.
func InstrumentFetcher(f textnorm.PageFetcher, metrics *observability.Metrics) textnorm.PageFetcher {
	return &instrumentedFetcher{next: f, metrics: metrics}
}

func (f *instrumentedFetcher) FetchText(ctx context.Context, url string) (string, error) {
	text, err := f.next.FetchText(ctx, url)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.metrics.PageFetches.WithLabelValues(outcome).Inc()
	return text, err
}
