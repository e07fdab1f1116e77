// Package rss collects articles from RSS and Atom feeds.
package rss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/textnorm"
)

// Source reads a fixed list of feeds. It implements pipeline.ArticleSource.
type Source struct {
	feeds  []string
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewSource creates a feed source.
func NewSource(feeds []string, timeout time.Duration, userAgent string, logger *slog.Logger) *Source {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &Source{feeds: feeds, parser: p, logger: logger}
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string { return "rss" }

// FetchArticles reads every feed. Window filtering is left to the caller,
// since feeds cannot be queried by date. A failing feed is logged and
// skipped; an error is returned only when every feed fails.
func (s *Source) FetchArticles(ctx context.Context, _ domain.Window) ([]domain.RawArticle, error) {
	var (
		out  []domain.RawArticle
		errs []error
	)
	for _, u := range s.feeds {
		feed, err := s.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.logger.Error("feed fetch failed", "feed", u, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		items := itemsToArticles(feed)
		s.logger.Info("feed read", "feed", u, "items", len(items))
		out = append(out, items...)
	}
	if len(s.feeds) > 0 && len(errs) == len(s.feeds) {
		return nil, fmt.Errorf("all feeds failed: %w", errors.Join(errs...))
	}
	return out, nil
}

func itemsToArticles(feed *gofeed.Feed) []domain.RawArticle {
	out := make([]domain.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		out = append(out, domain.RawArticle{
			Title:       strings.TrimSpace(item.Title),
			URL:         strings.TrimSpace(item.Link),
			PublishedAt: publishedAt(item),
			Description: plainText(item.Description),
			Content:     plainText(item.Content),
			SourceName:  feed.Title,
		})
	}
	return out
}

func publishedAt(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	case item.Published != "":
		return item.Published
	default:
		return item.Updated
	}
}

// plainText strips markup that feeds commonly embed in descriptions.
func plainText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}
	text, err := textnorm.ExtractText(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return text
}
