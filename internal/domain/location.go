package domain

import (
	"fmt"
	"sort"
	"time"
)

// MatchStrategy names the matcher stage that produced a location.
type MatchStrategy string

const (
	StrategyTitlePattern  MatchStrategy = "title_pattern"
	StrategyCityState     MatchStrategy = "city_state"
	StrategyScoredKeyword MatchStrategy = "scored_keyword"
	StrategyDirectional   MatchStrategy = "directional"
	StrategyBareMention   MatchStrategy = "bare_mention"
	StrategyDefault       MatchStrategy = "default"
)

// LocationMatch is the alias chosen for one article and how confident the
// matcher was about it.
type LocationMatch struct {
	Alias    string        `json:"alias"`
	Score    int           `json:"score"`
	Strategy MatchStrategy `json:"strategy"`
}

// ResolvedArticle is an article placed on the map. It is not modified after
// de-overlap.
type ResolvedArticle struct {
	DisplayID     string        `json:"id"`
	Title         string        `json:"title"`
	URL           string        `json:"url"`
	Date          string        `json:"date"`
	PublishedAt   time.Time     `json:"published_at"`
	Description   string        `json:"description"`
	Source        string        `json:"source"`
	LocationAlias string        `json:"location_name"`
	Location      string        `json:"location"`
	Coordinate    Coordinate    `json:"coords"`
	Original      Coordinate    `json:"original_coords"`
	OffsetKm      float64       `json:"offset_km"`
	Geohash       string        `json:"geohash"`
	GeocodeStatus GeocodeStatus `json:"geocode_status"`
	MatchStrategy MatchStrategy `json:"match_strategy"`
	MatchScore    int           `json:"match_score"`
}

// DisplayID formats the map marker ID for the article at position i in a run.
func DisplayID(i int) string {
	return fmt.Sprintf("marker_%d", i)
}

// NewResolvedArticle combines an article with its match and geocode outcome.
// Coordinate and Original both start at the geocoded point.
func NewResolvedArticle(a Article, m LocationMatch, location string, r Resolution) ResolvedArticle {
	return ResolvedArticle{
		Title:         a.Title,
		URL:           a.URL,
		Date:          a.Date(),
		PublishedAt:   a.PublishedAt,
		Description:   a.Excerpt(ExcerptLength),
		Source:        a.SourceName,
		LocationAlias: m.Alias,
		Location:      location,
		Coordinate:    r.Coordinate,
		Original:      r.Coordinate,
		GeocodeStatus: r.Status,
		MatchStrategy: m.Strategy,
		MatchScore:    m.Score,
	}
}

// TimelineDay holds the articles published on one calendar date.
type TimelineDay struct {
	Date     string            `json:"date"`
	Articles []ResolvedArticle `json:"articles"`
}

// GroupByDate buckets articles by Date, oldest day first. Order within a day
// follows the input.
func GroupByDate(articles []ResolvedArticle) []TimelineDay {
	index := make(map[string]int)
	var days []TimelineDay
	for _, a := range articles {
		i, ok := index[a.Date]
		if !ok {
			i = len(days)
			index[a.Date] = i
			days = append(days, TimelineDay{Date: a.Date})
		}
		days[i].Articles = append(days[i].Articles, a)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// Timeline is the output of one pipeline run.
type Timeline struct {
	RunID         string        `json:"run_id"`
	GeneratedAt   time.Time     `json:"generated_at"`
	From          string        `json:"from,omitempty"`
	To            string        `json:"to,omitempty"`
	Dates         []string      `json:"dates"`
	Days          []TimelineDay `json:"timeline"`
	TotalArticles int           `json:"total_articles"`
}

// NewTimeline groups the articles of a run and stamps it with the current time.
func NewTimeline(runID, from, to string, articles []ResolvedArticle) Timeline {
	days := GroupByDate(articles)
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.Date
	}
	return Timeline{
		RunID:         runID,
		GeneratedAt:   clock.Now().UTC(),
		From:          from,
		To:            to,
		Dates:         dates,
		Days:          days,
		TotalArticles: len(articles),
	}
}

// Articles flattens the timeline back into arrival order within each day.
func (t Timeline) Articles() []ResolvedArticle {
	out := make([]ResolvedArticle, 0, t.TotalArticles)
	for _, d := range t.Days {
		out = append(out, d.Articles...)
	}
	return out
}
