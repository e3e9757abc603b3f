// Package resolver turns free-text location input into gazetteer cities.
package resolver

import (
	"sort"
	"strings"
	"unicode"

	"github.com/atharv3903/tripcorridor/internal/model"
)

const (
	// MinScore is the exclusive lower bound for a result to be returned.
	MinScore = 0.3

	// DefaultMaxResults applies when the caller passes maxResults <= 0.
	DefaultMaxResults = 5

	maxInputRunes = 200

	scoreExact     = 1.0
	scorePrefix    = 0.9
	scoreContains  = 0.7
	fuzzyScale     = 0.6
	regionBonus    = 0.1
	populationCap  = 10_000_000
	populationMult = 0.05
)

// Match is a ranked gazetteer hit. Score is in (MinScore, 1.0].
type Match struct {
	City  model.City `json:"city"`
	Score float64    `json:"score"`
	// Alias is set when the input was a known short code and scoring was skipped.
	Alias bool `json:"alias,omitempty"`

	total float64
}

var stripped = map[rune]bool{
	'<': true, '>': true, '"': true, '`': true, ';': true,
	'{': true, '}': true, '[': true, ']': true, '\\': true,
}

// Sanitize removes markup and control characters, collapses whitespace and
// caps the length of user input.
func Sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if stripped[r] {
			continue
		}
		if unicode.IsControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if rs := []rune(out); len(rs) > maxInputRunes {
		out = strings.TrimSpace(string(rs[:maxInputRunes]))
	}
	return out
}

// ParseQuery splits sanitized input on its first comma into a primary term and
// an upper-cased region term.
func ParseQuery(input string) model.LocationQuery {
	primary, region, _ := strings.Cut(input, ",")
	region, _, _ = strings.Cut(region, ",")
	return model.LocationQuery{
		Primary: strings.TrimSpace(primary),
		Region:  strings.ToUpper(strings.TrimSpace(region)),
	}
}

// nameScore applies the exact / prefix / substring / subsequence tiers.
// Both arguments must already be lower case.
func nameScore(term, candidate string) float64 {
	switch {
	case term == candidate:
		return scoreExact
	case strings.HasPrefix(candidate, term):
		return scorePrefix
	case strings.Contains(candidate, term):
		return scoreContains
	}
	return fuzzyScore(term, candidate)
}

func fuzzyScore(term, candidate string) float64 {
	in := []rune(term)
	cand := []rune(candidate)
	if len(in) == 0 || len(cand) == 0 {
		return 0
	}
	var acc float64
	j := 0
	for i, r := range cand {
		if j == len(in) {
			break
		}
		if r == in[j] {
			acc += 1 - float64(i)/float64(len(cand))
			j++
		}
	}
	if j < len(in) {
		return 0
	}
	return fuzzyScale * acc / float64(len(in))
}

func populationBonus(pop int) float64 {
	if pop <= 0 {
		return 0
	}
	f := float64(pop) / populationCap
	if f > 1 {
		f = 1
	}
	return populationMult * f
}

// Rank scores cities against free-text input. Empty input, or input that
// matches nothing above MinScore, yields an empty result. Short codes are not
// expanded here; see Resolver.Match.
func Rank(input string, cities []model.City, maxResults int) []Match {
	q := ParseQuery(Sanitize(input))
	term := strings.ToLower(q.Primary)
	if term == "" {
		return []Match{}
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	out := make([]Match, 0, maxResults)
	for _, c := range cities {
		s := nameScore(term, strings.ToLower(c.Name))
		if s == 0 {
			continue
		}
		if q.Region != "" && q.Region == c.Region {
			s += regionBonus
		}
		s += populationBonus(c.Population)
		if s <= MinScore {
			continue
		}
		out = append(out, Match{City: c, Score: min(s, 1.0), total: s})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].total != out[j].total {
			return out[i].total > out[j].total
		}
		if out[i].City.Population != out[j].City.Population {
			return out[i].City.Population > out[j].City.Population
		}
		return out[i].City.Name < out[j].City.Name
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// Resolver holds an immutable gazetteer.
type Resolver struct {
	cities []model.City
	labels map[string]model.City
}

func New(cities []model.City) *Resolver {
	r := &Resolver{cities: cities, labels: make(map[string]model.City, len(cities))}
	for _, c := range cities {
		key := strings.ToLower(c.Label())
		if _, dup := r.labels[key]; !dup {
			r.labels[key] = c
		}
	}
	return r
}

func (r *Resolver) Cities() []model.City { return r.cities }

// Match is Rank over the gazetteer, except that a known short code returns
// its canonical city alone with score 1.0.
func (r *Resolver) Match(input string, maxResults int) []Match {
	if m, ok := r.alias(Sanitize(input)); ok {
		return []Match{m}
	}
	return Rank(input, r.cities, maxResults)
}

func (r *Resolver) alias(clean string) (Match, bool) {
	canonical, ok := Expand(clean)
	if !ok {
		return Match{}, false
	}
	c, found := r.labels[strings.ToLower(canonical)]
	if !found {
		q := ParseQuery(canonical)
		c = model.City{Name: q.Primary, Region: q.Region}
	}
	return Match{City: c, Score: scoreExact, Alias: true, total: scoreExact}, true
}

// Resolve returns the single best city for input. Known short codes are
// expanded first and bypass scoring.
func (r *Resolver) Resolve(input string) (Match, bool) {
	clean := Sanitize(input)
	if clean == "" {
		return Match{}, false
	}
	if m, ok := r.alias(clean); ok {
		return m, true
	}
	ms := Rank(clean, r.cities, 1)
	if len(ms) == 0 {
		return Match{}, false
	}
	return ms[0], true
}
