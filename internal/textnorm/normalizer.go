// Package textnorm builds the lower-cased, accent-folded text the location
// matcher searches, fetching the source page when an article is too thin.
package textnorm

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinTextLength is the length below which the source page is fetched.
const DefaultMinTextLength = 200

// PageFetcher returns the plain text of the page at url.
type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Normalizer produces matcher input from an article.
type Normalizer struct {
	fetcher PageFetcher
	minLen  int
	logger  *slog.Logger
}

// New creates a Normalizer. A nil fetcher disables page augmentation.
func New(fetcher PageFetcher, minLen int, logger *slog.Logger) *Normalizer {
	return &Normalizer{fetcher: fetcher, minLen: minLen, logger: logger}
}

// Normalize joins title, description and body excerpt, folds accents and
// lower-cases the result. Short text is augmented with the page contents;
// fetch failures only cost the augmentation.
func (n *Normalizer) Normalize(ctx context.Context, a domain.Article) string {
	text := Fold(strings.Join([]string{a.Title, a.Description, a.BodyExcerpt}, " "))
	if len(text) >= n.minLen || n.fetcher == nil || a.URL == "" {
		return text
	}

	page, err := n.fetcher.FetchText(ctx, a.URL)
	if err != nil {
		n.logger.Warn("page fetch failed, using article text only",
			"url", a.URL,
			"error", err,
		)
		return text
	}
	if page == "" {
		return text
	}
	return text + " " + Fold(page)
}

// Fold lower-cases s and strips combining marks, so "San José" becomes "san jose".
func Fold(s string) string {
	// Chained transformers keep state; build one per call so Fold is goroutine-safe.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
