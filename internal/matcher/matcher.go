// Package matcher infers a single gazetteer alias from article text using an
// ordered chain of heuristics. It is deterministic: the same text and
// gazetteer always produce the same alias.
package matcher

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/gazetteer"
	"github.com/couchcryptid/ice-news-geomap/internal/textnorm"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const capitalizedWord = `[A-Z][\p{L}.'-]*`

var (
	// titleAfterRe captures a capitalized phrase after a locative preposition,
	// e.g. "ICE raids in Houston leave..." -> "Houston".
	titleAfterRe = regexp.MustCompile(`\b(?:[Ii]n|[Aa]t|[Nn]ear|[Ff]rom)\s+(` + capitalizedWord + `(?:\s+` + capitalizedWord + `)*)`)

	// titleBeforeRe captures a capitalized phrase in front of an enforcement
	// word, e.g. "Houston ICE raids..." -> "Houston".
	titleBeforeRe = regexp.MustCompile(`(` + capitalizedWord + `(?:\s+` + capitalizedWord + `)*)(?:,|\s+)(?i:raids?|arrests?|operations?|detention|enforcement|ice|immigration)\b`)

	// cityStateRe matches "City Name, St" in title-cased text.
	cityStateRe = regexp.MustCompile(`\b([A-Z][a-z]+\.?(?:\s+[A-Z][a-z]+\.?)*),\s*([A-Z][a-z])\b`)
)

var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true,
	"FL": true, "GA": true, "HI": true, "ID": true, "IL": true, "IN": true, "IA": true, "KS": true,
	"KY": true, "LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true, "NM": true, "NY": true,
	"NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true,
}

// Matcher picks a location alias for an article.
type Matcher struct {
	gaz          *gazetteer.Gazetteer
	th           Thresholds
	defaultAlias string
	directional  *regexp.Regexp
	logger       *slog.Logger
}

// New creates a Matcher. An empty defaultAlias selects DefaultAlias.
func New(gaz *gazetteer.Gazetteer, th Thresholds, defaultAlias string, logger *slog.Logger) *Matcher {
	if defaultAlias == "" {
		defaultAlias = DefaultAlias
	}
	words := max(th.MaxDirectionalWords, 1)
	return &Matcher{
		gaz:          gaz,
		th:           th,
		defaultAlias: defaultAlias,
		directional: regexp.MustCompile(fmt.Sprintf(
			`\b(?:in|near|from|out\s+of|outside\s+of)\s+([a-z][a-z.]*(?:\s+[a-z][a-z.]*){0,%d})`, words-1)),
		logger: logger,
	}
}

// Match returns the location alias for an article. title is the raw title;
// text is the normalized (folded, lower-case) article text. The result is
// never empty.
func (m *Matcher) Match(title, text string) domain.LocationMatch {
	strategies := []func(title, text string) (domain.LocationMatch, bool){
		m.matchTitlePatterns,
		m.matchCityState,
		m.matchScored,
		m.matchDirectional,
		m.matchBareMention,
	}
	for _, s := range strategies {
		if lm, ok := s(title, text); ok {
			m.logger.Debug("location matched",
				"alias", lm.Alias,
				"strategy", lm.Strategy,
				"score", lm.Score,
			)
			return lm
		}
	}
	m.logger.Debug("no location found, using default", "alias", m.defaultAlias, "title", title)
	return domain.LocationMatch{Alias: m.defaultAlias, Score: DefaultScore, Strategy: domain.StrategyDefault}
}

func (m *Matcher) matchTitlePatterns(title, _ string) (domain.LocationMatch, bool) {
	for _, re := range []*regexp.Regexp{titleAfterRe, titleBeforeRe} {
		for _, sub := range re.FindAllStringSubmatch(title, -1) {
			capture := textnorm.Fold(sub[1])
			if e, ok := m.gaz.Match(capture, m.th.MinCaptureLen); ok {
				return domain.LocationMatch{Alias: e.Alias, Score: TitlePatternScore, Strategy: domain.StrategyTitlePattern}, true
			}
			if e, ok := m.gaz.MatchCity(capture, m.th.MinCaptureLen+1); ok {
				return domain.LocationMatch{Alias: e.Alias, Score: TitlePatternScore, Strategy: domain.StrategyTitlePattern}, true
			}
		}
	}
	return domain.LocationMatch{}, false
}

func (m *Matcher) matchCityState(_, text string) (domain.LocationMatch, bool) {
	titled := cases.Title(language.Und).String(text)
	entries := m.gaz.Entries()

	for _, sub := range cityStateRe.FindAllStringSubmatch(titled, -1) {
		state := strings.ToUpper(sub[2])
		if !stateCodes[state] {
			continue
		}
		words := strings.Fields(strings.ToLower(sub[1]))
		for k := min(3, len(words)); k >= 1; k-- {
			city := strings.Join(words[len(words)-k:], " ")
			for _, e := range entries {
				if e.City() == city && strings.EqualFold(e.Region(), state) {
					return domain.LocationMatch{Alias: e.Alias, Score: CityStateScore, Strategy: domain.StrategyCityState}, true
				}
			}
		}
	}
	return domain.LocationMatch{}, false
}

type scored struct {
	alias string
	score int
}

func (m *Matcher) matchScored(title, text string) (domain.LocationMatch, bool) {
	titleLower := textnorm.Fold(title)

	keywordPos := make([]int, len(ContextKeywords))
	for i, kw := range ContextKeywords {
		keywordPos[i] = strings.Index(text, kw)
	}

	var candidates []scored
	for _, e := range m.gaz.Entries() {
		if pos := m.gaz.Index(text, e.Alias); pos >= 0 {
			score := 2 * len(e.Alias)
			if m.gaz.Contains(titleLower, e.Alias) {
				score += m.th.TitleBonus
			}
			for _, kp := range keywordPos {
				if kp >= 0 && abs(pos-kp) < m.th.ContextWindow {
					score += m.th.ContextBonus
				}
			}
			candidates = append(candidates, scored{alias: e.Alias, score: score})
		}

		city := e.City()
		if len(city) > m.th.CityMinLen && m.gaz.Contains(text, city) {
			score := len(city)
			if m.gaz.Contains(titleLower, city) {
				score += m.th.CityTitleBonus
			}
			candidates = append(candidates, scored{alias: e.Alias, score: score})
		}
	}
	if len(candidates) == 0 {
		return domain.LocationMatch{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	best := candidates[0]
	if best.score <= m.th.MinScore {
		return domain.LocationMatch{}, false
	}
	return domain.LocationMatch{Alias: best.alias, Score: best.score, Strategy: domain.StrategyScoredKeyword}, true
}

// matchDirectional looks up the whole phrase after in/near/from/out of. A
// shorter leading group is never looked up on its own: "new" or "san" would
// sit inside unrelated aliases.
func (m *Matcher) matchDirectional(_, text string) (domain.LocationMatch, bool) {
	for _, sub := range m.directional.FindAllStringSubmatch(text, -1) {
		if e, ok := m.gaz.Match(sub[1], m.th.MinCaptureLen); ok {
			return domain.LocationMatch{Alias: e.Alias, Score: DirectionalScore, Strategy: domain.StrategyDirectional}, true
		}
	}
	return domain.LocationMatch{}, false
}

func (m *Matcher) matchBareMention(_, text string) (domain.LocationMatch, bool) {
	for _, table := range [][]gazetteer.Fallback{m.gaz.MajorCities(), m.gaz.States()} {
		bestPos, bestAlias := -1, ""
		for _, f := range table {
			if p := m.gaz.Index(text, f.Name); p >= 0 && (bestPos < 0 || p < bestPos) {
				bestPos, bestAlias = p, f.Alias
			}
		}
		if bestPos >= 0 {
			return domain.LocationMatch{Alias: bestAlias, Score: BareMentionScore, Strategy: domain.StrategyBareMention}, true
		}
	}
	return domain.LocationMatch{}, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
