package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geomap"

// Metrics holds the Prometheus counters, histograms, and gauges for the geomap pipeline.
type Metrics struct {
	ArticlesCollected *prometheus.CounterVec // labels: source
	ArticlesDropped   *prometheus.CounterVec // labels: reason={malformed,irrelevant,out_of_window,duplicate}
	ArticlesResolved  prometheus.Counter
	MatchStrategy     *prometheus.CounterVec // labels: strategy
	PageFetches       *prometheus.CounterVec // labels: outcome={success,error}
	PipelineRunning   prometheus.Gauge
	RefreshErrors     prometheus.Counter

	// Refresh metrics.
	RefreshDuration  prometheus.Histogram
	RefreshBatchSize prometheus.Histogram
	LastRefresh      prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={resolved,not_found,transient_error}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram

	// Sink metrics.
	SinkWrites *prometheus.CounterVec // labels: sink, outcome={success,error}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ArticlesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_collected_total",
			Help:      "Raw article records received from each source.",
		}, []string{"source"}),
		ArticlesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_dropped_total",
			Help:      "Article records discarded during collection, by reason.",
		}, []string{"reason"}),
		ArticlesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_resolved_total",
			Help:      "Articles placed on the map.",
		}),
		MatchStrategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_strategy_total",
			Help:      "Location matches by the matcher stage that produced them.",
		}, []string{"strategy"}),
		PageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Article page fetches used to enrich short text.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		RefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_errors_total",
			Help:      "Refresh cycles that failed.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete collect-resolve-publish cycle.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		RefreshBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_batch_size",
			Help:      "Number of articles resolved per refresh.",
			Buckets:   []float64{0, 10, 25, 50, 100, 200, 400, 800},
		}),
		LastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding lookups that reached the provider, by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Batch loads into downstream sinks, by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}

	prometheus.MustRegister(
		m.ArticlesCollected,
		m.ArticlesDropped,
		m.ArticlesResolved,
		m.MatchStrategy,
		m.PageFetches,
		m.PipelineRunning,
		m.RefreshErrors,
		m.RefreshDuration,
		m.RefreshBatchSize,
		m.LastRefresh,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.SinkWrites,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ArticlesCollected:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "articles_collected_total"}, []string{"source"}),
		ArticlesDropped:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "articles_dropped_total"}, []string{"reason"}),
		ArticlesResolved:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "articles_resolved_total"}),
		MatchStrategy:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "match_strategy_total"}, []string{"strategy"}),
		PageFetches:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "page_fetches_total"}, []string{"outcome"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		RefreshErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "refresh_errors_total"}),
		RefreshDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "refresh_duration_seconds"}),
		RefreshBatchSize:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "refresh_batch_size"}),
		LastRefresh:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "last_refresh_timestamp_seconds"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "geocode_api_duration_seconds"}),
		SinkWrites:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "sink_writes_total"}, []string{"sink", "outcome"}),
	}
}
