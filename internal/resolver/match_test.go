package resolver

import (
	"strings"
	"testing"

	"github.com/atharv3903/tripcorridor/internal/model"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "collapse whitespace", input: "  San\tFrancisco   ", want: "San Francisco"},
		{name: "strip markup", input: "<b>Boston</b>", want: "bBoston/b"},
		{name: "strip injection chars", input: `Austin"; DROP TABLE x; --`, want: "Austin DROP TABLE x --"},
		{name: "keep apostrophe", input: "Coeur d'Alene", want: "Coeur d'Alene"},
		{name: "only whitespace", input: " \n\t ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Truncates(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 500))
	if len([]rune(got)) != maxInputRunes {
		t.Fatalf("expected %d runes, got %d", maxInputRunes, len([]rune(got)))
	}
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery("Portland, me, USA")
	if q.Primary != "Portland" || q.Region != "ME" {
		t.Fatalf("unexpected query %+v", q)
	}
	q = ParseQuery("Denver")
	if q.Primary != "Denver" || q.Region != "" {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestRank_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "<>;"} {
		if got := Rank(in, DefaultCities(), 5); len(got) != 0 {
			t.Errorf("Rank(%q) returned %d results, want 0", in, len(got))
		}
	}
}

func TestRank_NoMatch(t *testing.T) {
	if got := Rank("zzqxj", DefaultCities(), 5); len(got) != 0 {
		t.Fatalf("expected no results, got %+v", got)
	}
}

func TestRank_ExactNameRanksFirst(t *testing.T) {
	cities := DefaultCities()
	counts := map[string]int{}
	for _, c := range cities {
		counts[strings.ToLower(c.Name)]++
	}
	for _, c := range cities {
		if counts[strings.ToLower(c.Name)] > 1 {
			continue
		}
		for _, in := range []string{c.Name, strings.ToUpper(c.Name), strings.ToLower(c.Name)} {
			got := Rank(in, cities, 5)
			if len(got) == 0 {
				t.Fatalf("Rank(%q) returned nothing", in)
			}
			if got[0].City != c {
				t.Errorf("Rank(%q) ranked %q first, want %q", in, got[0].City.Label(), c.Label())
			}
			if got[0].Score != 1.0 {
				t.Errorf("Rank(%q) score = %v, want 1.0", in, got[0].Score)
			}
		}
	}
}

func TestRank_PrefixOutranksSubstring(t *testing.T) {
	cities := []model.City{
		{Name: "West Sacramento", Region: "CA", Population: 9_000_000},
		{Name: "Sacramento", Region: "CA", Population: 500_000},
	}
	got := Rank("Sacra", cities, 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].City.Name != "Sacramento" {
		t.Fatalf("expected prefix match first, got %q", got[0].City.Name)
	}
	if got[0].Score < 0.9 {
		t.Errorf("prefix score = %v, want >= 0.9", got[0].Score)
	}
	if got[1].Score >= got[0].Score {
		t.Errorf("substring score %v should be below prefix score %v", got[1].Score, got[0].Score)
	}
}

func TestRank_RegionBonus(t *testing.T) {
	got := Rank("Portland, ME", DefaultCities(), 5)
	if len(got) < 2 {
		t.Fatalf("expected both Portlands, got %d results", len(got))
	}
	if got[0].City.Region != "ME" {
		t.Fatalf("expected Portland, ME first, got %s", got[0].City.Label())
	}

	got = Rank("Portland", DefaultCities(), 5)
	if got[0].City.Region != "OR" {
		t.Fatalf("expected more populous Portland, OR first without region, got %s", got[0].City.Label())
	}
}

func TestRank_Fuzzy(t *testing.T) {
	got := Rank("snfran", DefaultCities(), 3)
	if len(got) == 0 {
		t.Fatal("expected a fuzzy match")
	}
	if got[0].City.Name != "San Francisco" {
		t.Fatalf("expected San Francisco, got %s", got[0].City.Label())
	}
	if got[0].Score <= MinScore || got[0].Score >= scoreContains {
		t.Errorf("fuzzy score %v outside (%v, %v)", got[0].Score, MinScore, scoreContains)
	}
}

func TestRank_MaxResultsAndOrdering(t *testing.T) {
	got := Rank("San", DefaultCities(), 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("results not sorted: %v before %v", got[i-1].Score, got[i].Score)
		}
	}
	for _, m := range got {
		if m.Score <= MinScore || m.Score > 1.0 {
			t.Errorf("score %v out of range", m.Score)
		}
	}
}

func TestFuzzyScore(t *testing.T) {
	tests := []struct {
		term, candidate string
		wantZero        bool
	}{
		{term: "bstn", candidate: "boston"},
		{term: "xyz", candidate: "boston", wantZero: true},
		{term: "notsb", candidate: "boston", wantZero: true},
	}
	for _, tt := range tests {
		got := fuzzyScore(tt.term, tt.candidate)
		if tt.wantZero && got != 0 {
			t.Errorf("fuzzyScore(%q, %q) = %v, want 0", tt.term, tt.candidate, got)
		}
		if !tt.wantZero && (got <= 0 || got >= scoreContains) {
			t.Errorf("fuzzyScore(%q, %q) = %v, want in (0, %v)", tt.term, tt.candidate, got, scoreContains)
		}
	}
	// Earlier positions weigh more.
	if early, late := fuzzyScore("bo", "boston"), fuzzyScore("on", "boston"); early <= late {
		t.Errorf("expected early match %v > late match %v", early, late)
	}
}

func TestResolve_AliasBypassesScoring(t *testing.T) {
	r := New(DefaultCities())
	for _, in := range []string{"NYC", "nyc", " Nyc "} {
		m, ok := r.Resolve(in)
		if !ok {
			t.Fatalf("Resolve(%q) found nothing", in)
		}
		if !m.Alias {
			t.Errorf("Resolve(%q) should come from the alias table", in)
		}
		if m.City.Label() != "New York, NY" || m.Score != 1.0 {
			t.Errorf("Resolve(%q) = %s (%v), want New York, NY (1.0)", in, m.City.Label(), m.Score)
		}
	}
	// "nyc" is not a subsequence of any gazetteer name, so only the alias table can resolve it.
	if got := Rank("NYC", DefaultCities(), 5); len(got) != 0 {
		t.Fatalf("scoring alone should not resolve NYC, got %+v", got)
	}
}

func TestResolve_AliasOutsideGazetteer(t *testing.T) {
	r := New(nil)
	m, ok := r.Resolve("SFO")
	if !ok || m.City.Name != "San Francisco" || m.City.Region != "CA" {
		t.Fatalf("unexpected resolution %+v ok=%v", m, ok)
	}
}

func TestResolve_Ranked(t *testing.T) {
	r := New(DefaultCities())
	m, ok := r.Resolve("San Francisco, CA")
	if !ok || m.City.Label() != "San Francisco, CA" {
		t.Fatalf("unexpected resolution %+v ok=%v", m, ok)
	}
	if _, ok := r.Resolve("   "); ok {
		t.Fatal("blank input should not resolve")
	}
}

func TestLoadCities_BadInput(t *testing.T) {
	if _, err := LoadCities(strings.NewReader("city,state\nx,y\n")); err == nil {
		t.Fatal("expected error for malformed header")
	}
	if _, err := LoadCities(strings.NewReader("name,region,population,lat,lng\nX,CA,many,1,2\n")); err == nil {
		t.Fatal("expected error for bad population")
	}
}

func TestResolverMatch_ExpandsShortCodes(t *testing.T) {
	r := New(DefaultCities())
	tests := []struct {
		in   string
		want string
	}{
		{in: "NYC", want: "New York, NY"},
		{in: "lax", want: "Los Angeles, CA"},
		{in: " SF ", want: "San Francisco, CA"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := r.Match(tt.in, 5)
			if len(got) != 1 {
				t.Fatalf("Match(%q) returned %d results, want 1", tt.in, len(got))
			}
			if got[0].City.Label() != tt.want || got[0].Score != 1.0 || !got[0].Alias {
				t.Fatalf("Match(%q) = %s (%v, alias=%v), want %s", tt.in, got[0].City.Label(), got[0].Score, got[0].Alias, tt.want)
			}
		})
	}

	if got := r.Match("San Fran", 5); len(got) == 0 || got[0].Alias {
		t.Fatalf("plain input should be ranked, got %+v", got)
	}
}
