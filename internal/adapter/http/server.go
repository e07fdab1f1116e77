package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
)

// NewsCollector returns the validated articles for a date window.
type NewsCollector interface {
	Collect(ctx context.Context, w domain.Window) ([]domain.Article, error)
}

// TimelineSource returns the most recently published timeline.
type TimelineSource interface {
	Latest() (domain.Timeline, bool)
}

// Server exposes the map API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	news       NewsCollector
	timeline   TimelineSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /api/news and /api/timeline routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, news NewsCollector, timeline TimelineSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		news:     news,
		timeline: timeline,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/timeline", s.handleTimeline)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type newsResponse struct {
	Articles []domain.Article `json:"articles"`
	Count    int              `json:"count"`
	FromDate string           `json:"from_date,omitempty"`
	ToDate   string           `json:"to_date,omitempty"`
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win := domain.Window{From: q.Get("from_date"), To: q.Get("to_date")}
	if err := win.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "from_date and to_date must be YYYY-MM-DD with from_date <= to_date")
		return
	}

	articles, err := s.news.Collect(r.Context(), win)
	if err != nil {
		s.logger.Error("news api failed", "error", err, "from", win.From, "to", win.To)
		writeError(w, http.StatusBadGateway, "news sources unavailable")
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}

	sharedobs.WriteJSON(w, http.StatusOK, newsResponse{
		Articles: articles,
		Count:    len(articles),
		FromDate: win.From,
		ToDate:   win.To,
	})
}

type dateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type timelineResponse struct {
	RunID         string               `json:"run_id"`
	GeneratedAt   time.Time            `json:"generated_at"`
	Dates         []string             `json:"dates"`
	Timeline      []domain.TimelineDay `json:"timeline"`
	TotalArticles int                  `json:"total_articles"`
	DateRange     dateRange            `json:"date_range"`
}

func (s *Server) handleTimeline(w http.ResponseWriter, _ *http.Request) {
	tl, ok := s.timeline.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "timeline not published yet")
		return
	}

	dates := tl.Dates
	if dates == nil {
		dates = []string{}
	}
	days := tl.Days
	if days == nil {
		days = []domain.TimelineDay{}
	}

	sharedobs.WriteJSON(w, http.StatusOK, timelineResponse{
		RunID:         tl.RunID,
		GeneratedAt:   tl.GeneratedAt,
		Dates:         dates,
		Timeline:      days,
		TotalArticles: tl.TotalArticles,
		DateRange:     dateRange{From: tl.From, To: tl.To},
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
