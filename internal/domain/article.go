package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ExcerptLength is the number of runes of description kept for display.
const ExcerptLength = 300

var (
	// ErrMissingField is returned when a raw article lacks title, url or published_at.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidDate is returned when published_at matches none of the accepted layouts.
	ErrInvalidDate = errors.New("invalid publication date")
)

// DefaultRelevantTerms are the words that mark an article as being about
// immigration enforcement.
var DefaultRelevantTerms = []string{
	"ice", "immigration", "border", "deportation", "detention",
	"enforcement", "raid", "arrest", "cbp", "hsi", "customs",
	"undocumented", "illegal", "asylum", "refugee",
}

// RawArticle is an article record as delivered by a source, before validation.
type RawArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	SourceName  string `json:"source_name,omitempty"`
}

// Article is a validated article record. URL is its identity.
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description"`
	BodyExcerpt string    `json:"body_excerpt,omitempty"`
	SourceName  string    `json:"source"`
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// ParseArticle validates a raw record and converts it into an Article.
func ParseArticle(raw RawArticle) (Article, error) {
	title := strings.TrimSpace(raw.Title)
	url := strings.TrimSpace(raw.URL)
	published := strings.TrimSpace(raw.PublishedAt)

	switch {
	case title == "":
		return Article{}, fmt.Errorf("%w: title", ErrMissingField)
	case url == "":
		return Article{}, fmt.Errorf("%w: url", ErrMissingField)
	case published == "":
		return Article{}, fmt.Errorf("%w: published_at", ErrMissingField)
	}

	ts, err := parsePublished(published)
	if err != nil {
		return Article{}, err
	}

	source := strings.TrimSpace(raw.SourceName)
	if source == "" {
		source = "Unknown"
	}

	return Article{
		Title:       title,
		URL:         url,
		PublishedAt: ts,
		Description: strings.TrimSpace(raw.Description),
		BodyExcerpt: strings.TrimSpace(raw.Content),
		SourceName:  source,
	}, nil
}

func parsePublished(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if len(s) >= 10 {
		if ts, err := time.Parse(time.DateOnly, s[:10]); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Date returns the UTC calendar date of publication as YYYY-MM-DD.
func (a Article) Date() string {
	return a.PublishedAt.UTC().Format(time.DateOnly)
}

// Excerpt returns the description cut to n runes, with "..." appended when cut.
func (a Article) Excerpt(n int) string {
	if utf8.RuneCountInString(a.Description) <= n {
		return a.Description
	}
	runes := []rune(a.Description)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

// IsRelevant reports whether any term occurs in the article's title or description.
func IsRelevant(a Article, terms []string) bool {
	title := strings.ToLower(a.Title)
	desc := strings.ToLower(a.Description)
	for _, term := range terms {
		if strings.Contains(title, term) || strings.Contains(desc, term) {
			return true
		}
	}
	return false
}
