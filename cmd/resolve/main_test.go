package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
)

const input = `[
  {"title": "ICE raids in Houston leave dozens detained", "url": "https://example.com/1", "published_at": "2025-03-14T09:00:00Z"},
  {"title": "More arrests in Houston overnight", "url": "https://example.com/2", "published_at": "2025-03-15T09:00:00Z"},
  {"title": "", "url": "https://example.com/3", "published_at": "2025-03-15T09:00:00Z"}
]`

// setupEnv points geocoding at a local server that always answers Houston.
func setupEnv(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"29.7604","lon":"-95.3698"}]`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("GEOCODE_PROVIDER", "nominatim")
	t.Setenv("NOMINATIM_URL", srv.URL)
	t.Setenv("GEOCODE_RATE_LIMIT", "0s")
	t.Setenv("MIN_TEXT_LENGTH", "0")
	t.Setenv("NEWSAPI_KEY", "")
	t.Setenv("RSS_FEEDS", "")
}

func TestRun_TableFromFile(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "articles.json")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o600))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-input", path}, nil, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "Houston, TX")
	assert.Contains(t, lines[2], "title_pattern")
	assert.Contains(t, stderr.String(), "skipping invalid article")
}

func TestRun_JSONFromStdin(t *testing.T) {
	setupEnv(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-input", "-", "-format", "json", "-from", "2025-03-15"},
		strings.NewReader(input), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var tl domain.Timeline
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &tl))
	assert.Equal(t, 1, tl.TotalArticles)
	assert.Equal(t, []string{"2025-03-15"}, tl.Dates)
	assert.Equal(t, "2025-03-15", tl.From)
}

func TestRun_RejectsBadFlags(t *testing.T) {
	setupEnv(t)
	var stdout, stderr bytes.Buffer

	assert.Error(t, run(context.Background(), []string{"-format", "xml"}, nil, &stdout, &stderr))
	assert.Error(t, run(context.Background(), []string{"-from", "yesterday"}, nil, &stdout, &stderr))
	assert.Error(t, run(context.Background(), []string{"-input", "-"}, strings.NewReader("[]"), &stdout, &stderr))
}
