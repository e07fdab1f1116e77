// Package newsapi collects articles from the NewsAPI "everything" endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
)

// DefaultBaseURL is the public NewsAPI endpoint.
const DefaultBaseURL = "https://newsapi.org"

const pageSize = 100

// DefaultQueries target immigration enforcement coverage.
var DefaultQueries = []string{
	"ICE raids OR ICE arrests",
	"immigration enforcement",
	"border patrol arrests",
	"ICE detention OR ICE operation",
	"deportation raids",
	"HSI arrests OR homeland security",
	"CBP arrests OR customs border",
}

// Client queries NewsAPI. It implements pipeline.ArticleSource.
type Client struct {
	apiKey     string
	baseURL    string
	queries    []string
	queryDelay time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a NewsAPI client. Queries run in order with queryDelay
// between them.
func NewClient(apiKey, baseURL string, queries []string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if len(queries) == 0 {
		queries = DefaultQueries
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		queries:    queries,
		queryDelay: 300 * time.Millisecond,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name identifies the source in logs and metrics.
func (c *Client) Name() string { return "newsapi" }

// FetchArticles runs every query for the window and returns the raw records
// in response order. A failing query is logged and skipped; an error is
// returned only when every query fails.
func (c *Client) FetchArticles(ctx context.Context, w domain.Window) ([]domain.RawArticle, error) {
	var (
		out  []domain.RawArticle
		errs []error
	)
	for i, q := range c.queries {
		if i > 0 && c.queryDelay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(c.queryDelay):
			}
		}

		c.logger.Info("searching NewsAPI", "query", q, "from", w.From, "to", w.To)
		articles, err := c.search(ctx, q, w)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			c.logger.Error("NewsAPI query failed", "query", q, "error", err)
			errs = append(errs, err)
			continue
		}
		c.logger.Info("NewsAPI query returned articles", "query", q, "count", len(articles))
		out = append(out, articles...)
	}
	if len(errs) == len(c.queries) {
		return nil, fmt.Errorf("all NewsAPI queries failed: %w", errors.Join(errs...))
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, query string, w domain.Window) ([]domain.RawArticle, error) {
	params := url.Values{
		"q":        {query},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	if w.From != "" {
		params.Set("from", w.From)
	}
	if w.To != "" {
		params.Set("to", w.To)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("newsapi error: status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if body.Status == "error" || resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi error: status %d: %s: %s", resp.StatusCode, body.Code, body.Message)
	}

	out := make([]domain.RawArticle, 0, len(body.Articles))
	for _, a := range body.Articles {
		out = append(out, domain.RawArticle{
			Title:       a.Title,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Description: a.Description,
			Content:     a.Content,
			SourceName:  a.Source.Name,
		})
	}
	return out, nil
}

// NewsAPI response types.

type response struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}
