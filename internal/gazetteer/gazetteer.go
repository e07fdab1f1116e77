// Package gazetteer holds the static location vocabulary: short lower-case
// aliases mapped to canonical "City, Region" strings, plus the bare-mention
// fallback tables.
package gazetteer

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed gazetteer.yaml
var defaultData []byte

// Entry maps an alias to its canonical location string.
type Entry struct {
	Alias     string `yaml:"alias"`
	Canonical string `yaml:"canonical"`
}

// City returns the lower-cased part of the canonical string before the first comma.
func (e Entry) City() string {
	city, _, _ := strings.Cut(e.Canonical, ",")
	return strings.ToLower(strings.TrimSpace(city))
}

// Region returns the part of the canonical string after the first comma, e.g. "TX".
func (e Entry) Region() string {
	_, region, _ := strings.Cut(e.Canonical, ",")
	return strings.TrimSpace(region)
}

// Fallback maps a bare place name to the alias it should resolve to.
type Fallback struct {
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
}

type document struct {
	Aliases     []Entry    `yaml:"aliases"`
	MajorCities []Fallback `yaml:"major_cities"`
	States      []Fallback `yaml:"states"`
}

// Gazetteer is an immutable, ordered alias table.
type Gazetteer struct {
	entries     []Entry
	index       map[string]int
	majorCities []Fallback
	states      []Fallback
	loose       bool
}

// Default returns the gazetteer compiled into the binary.
func Default() (*Gazetteer, error) {
	return Load(bytes.NewReader(defaultData))
}

// LoadFile reads a gazetteer from a YAML file.
func LoadFile(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a YAML gazetteer.
func Load(r io.Reader) (*Gazetteer, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}
	if len(doc.Aliases) == 0 {
		return nil, errors.New("gazetteer has no aliases")
	}

	g := &Gazetteer{
		entries:     doc.Aliases,
		index:       make(map[string]int, len(doc.Aliases)),
		majorCities: doc.MajorCities,
		states:      doc.States,
	}
	for i, e := range doc.Aliases {
		if e.Alias == "" || e.Alias != strings.ToLower(strings.TrimSpace(e.Alias)) {
			return nil, fmt.Errorf("gazetteer entry %d: alias %q must be non-empty lower-case", i, e.Alias)
		}
		if strings.TrimSpace(e.Canonical) == "" {
			return nil, fmt.Errorf("gazetteer entry %q: canonical is required", e.Alias)
		}
		if _, dup := g.index[e.Alias]; dup {
			return nil, fmt.Errorf("gazetteer entry %q: duplicate alias", e.Alias)
		}
		g.index[e.Alias] = i
	}
	for _, table := range [][]Fallback{doc.MajorCities, doc.States} {
		for _, f := range table {
			if f.Name == "" || f.Name != strings.ToLower(f.Name) {
				return nil, fmt.Errorf("gazetteer fallback %q: name must be non-empty lower-case", f.Name)
			}
			if _, ok := g.index[f.Alias]; !ok {
				return nil, fmt.Errorf("gazetteer fallback %q: unknown alias %q", f.Name, f.Alias)
			}
		}
	}
	return g, nil
}

// WithLooseSubstring returns a copy that matches plain substrings instead of
// whole words. Short aliases such as "la" then match inside unrelated words.
func (g *Gazetteer) WithLooseSubstring() *Gazetteer {
	cp := *g
	cp.loose = true
	return &cp
}

// Len returns the number of aliases.
func (g *Gazetteer) Len() int { return len(g.entries) }

// Entries returns the alias table in priority order.
func (g *Gazetteer) Entries() []Entry {
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// MajorCities returns the bare major-city fallback table.
func (g *Gazetteer) MajorCities() []Fallback { return append([]Fallback(nil), g.majorCities...) }

// States returns the bare state-name fallback table.
func (g *Gazetteer) States() []Fallback { return append([]Fallback(nil), g.states...) }

// Lookup finds an entry by exact alias, ignoring case.
func (g *Gazetteer) Lookup(alias string) (Entry, bool) {
	i, ok := g.index[strings.ToLower(strings.TrimSpace(alias))]
	if !ok {
		return Entry{}, false
	}
	return g.entries[i], true
}

// Canonical returns the canonical string for alias, or "" when unknown.
func (g *Gazetteer) Canonical(alias string) string {
	e, ok := g.Lookup(alias)
	if !ok {
		return ""
	}
	return e.Canonical
}

// Index returns the byte offset of the first occurrence of needle in text
// under the gazetteer's containment policy, or -1.
func (g *Gazetteer) Index(text, needle string) int {
	if g.loose {
		if needle == "" {
			return -1
		}
		return strings.Index(text, needle)
	}
	return indexWord(text, needle)
}

// Contains reports whether needle occurs in text under the containment policy.
func (g *Gazetteer) Contains(text, needle string) bool {
	return g.Index(text, needle) >= 0
}

// Match returns the first entry, in table order, whose alias occurs in
// candidate or which contains candidate. The second direction only applies
// when candidate has at least minLen characters.
func (g *Gazetteer) Match(candidate string, minLen int) (Entry, bool) {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if candidate == "" {
		return Entry{}, false
	}
	reverse := len(candidate) >= minLen
	for _, e := range g.entries {
		if g.Contains(candidate, e.Alias) || (reverse && g.Contains(e.Alias, candidate)) {
			return e, true
		}
	}
	return Entry{}, false
}

// MatchCity is Match against canonical city names instead of aliases.
func (g *Gazetteer) MatchCity(candidate string, minLen int) (Entry, bool) {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if len(candidate) < minLen {
		return Entry{}, false
	}
	for _, e := range g.entries {
		city := e.City()
		if g.Contains(candidate, city) || g.Contains(city, candidate) {
			return e, true
		}
	}
	return Entry{}, false
}

// Normalize rewrites a free-text place name into its canonical form: the
// canonical of an exact alias, else of the first alias the name contains.
// Unknown names are returned trimmed.
func (g *Gazetteer) Normalize(name string) string {
	name = strings.TrimSpace(name)
	if e, ok := g.Lookup(name); ok {
		return e.Canonical
	}
	lower := strings.ToLower(name)
	for _, e := range g.entries {
		if g.Contains(lower, e.Alias) {
			return e.Canonical
		}
	}
	return name
}

func indexWord(text, word string) int {
	if word == "" {
		return -1
	}
	for off := 0; off+len(word) <= len(text); {
		i := strings.Index(text[off:], word)
		if i < 0 {
			return -1
		}
		i += off
		end := i + len(word)
		if (i == 0 || !isWordByte(text[i-1])) && (end == len(text) || !isWordByte(text[end])) {
			return i
		}
		off = i + 1
	}
	return -1
}

// isWordByte treats ASCII letters, digits and any non-ASCII byte as word characters.
func isWordByte(b byte) bool {
	return b >= 0x80 ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
