// Command resolve places a batch of news articles on the map once and
// prints the result.
//
// Usage:
//
//	go run ./cmd/resolve -input articles.json -format table
//	cat articles.json | go run ./cmd/resolve -input -
//	go run ./cmd/resolve -from 2025-03-01 -to 2025-03-31 -format json
//
// With no -input, articles are collected from the sources configured in the
// environment (NEWSAPI_KEY, RSS_FEEDS), widening the date window when the
// requested one is empty.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/ice-news-geomap/internal/app"
	"github.com/couchcryptid/ice-news-geomap/internal/config"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
	"github.com/couchcryptid/ice-news-geomap/internal/pipeline"
	"github.com/couchcryptid/ice-news-geomap/internal/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "resolve:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "", `JSON array of raw articles; "-" reads stdin`)
	format := fs.String("format", "table", "output format: table or json")
	from := fs.String("from", "", "first date to include (YYYY-MM-DD)")
	to := fs.String("to", "", "last date to include (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != "table" && *format != "json" {
		return fmt.Errorf("unknown -format %q", *format)
	}
	w := domain.Window{From: *from, To: *to}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("-from/-to: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout stays parseable.
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()

	components, err := app.Build(cfg, metrics, logger)
	if err != nil {
		return err
	}

	var articles []domain.Article
	if *input != "" {
		articles, err = readArticles(*input, stdin, w, logger)
	} else {
		w, articles, err = collect(ctx, components.Collector, w, cfg.TimelineStart)
	}
	if err != nil {
		return err
	}

	tl, err := components.Resolve(ctx, uuid.NewString(), w, articles)
	if err != nil {
		return err
	}

	if *format == "json" {
		return report.WriteJSON(stdout, tl)
	}
	return report.WriteTable(stdout, tl.Articles())
}

func collect(ctx context.Context, c *pipeline.Collector, w domain.Window, start string) (domain.Window, []domain.Article, error) {
	windows := pipeline.Windows(time.Now(), start)
	if !w.Unbounded() {
		windows = []domain.Window{w}
	}
	return c.CollectWidening(ctx, windows)
}

// readArticles parses raw records from path, skipping invalid ones and those
// outside w.
func readArticles(path string, stdin io.Reader, w domain.Window, logger *slog.Logger) ([]domain.Article, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var raws []domain.RawArticle
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	articles := make([]domain.Article, 0, len(raws))
	for i, raw := range raws {
		a, err := domain.ParseArticle(raw)
		if err != nil {
			logger.Warn("skipping invalid article", "index", i, "error", err)
			continue
		}
		if !w.Contains(a.Date()) {
			continue
		}
		articles = append(articles, a)
	}
	if len(articles) == 0 {
		return nil, errors.New("no valid articles in input")
	}
	return articles, nil
}
