package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
)

func sample() []domain.ResolvedArticle {
	return []domain.ResolvedArticle{
		{
			DisplayID:     "marker_0",
			Date:          "2025-03-14",
			Title:         "ICE raids in Houston leave dozens detained",
			Location:      "Houston, TX",
			Coordinate:    domain.Coordinate{Lat: 29.7604, Lon: -95.3698},
			MatchStrategy: domain.StrategyTitlePattern,
			GeocodeStatus: domain.GeocodeResolved,
		},
		{
			DisplayID:     "marker_1",
			Date:          "2025-03-15",
			Title:         "移民局突袭 raids reported",
			Location:      "Washington, D.C.",
			Coordinate:    domain.Coordinate{Lat: 38.91, Lon: -76.99},
			MatchStrategy: domain.StrategyDefault,
			GeocodeStatus: domain.GeocodeNotFound,
		},
	}
}

func TestWriteTable_AlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sample()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	width := runewidth.StringWidth(lines[0])
	for _, line := range lines {
		assert.Equal(t, width, runewidth.StringWidth(line), line)
	}
	assert.Contains(t, lines[2], "29.760400")
	assert.Contains(t, lines[3], "not_found")
	assert.True(t, strings.HasPrefix(lines[1], "| --"))
}

func TestWriteTable_TruncatesLongTitles(t *testing.T) {
	a := sample()[:1]
	a[0].Title = strings.Repeat("border ", 20)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, a))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), strings.Repeat("border ", 10))
}

func TestWriteTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, nil))

	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, domain.NewTimeline("run-1", "", "", sample())))

	var got domain.Timeline
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"2025-03-14", "2025-03-15"}, got.Dates)
	assert.Equal(t, 2, got.TotalArticles)
}
