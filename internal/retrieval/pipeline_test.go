package retrieval

import (
	"math"
	"strings"
	"testing"

	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

func TestExpandQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		contains []string
		verbatim bool
	}{
		{
			name:     "no jargon returns query unchanged",
			query:    "who won the championship",
			verbatim: true,
		},
		{
			name:     "track limits and penalty both expand",
			query:    "track limits penalty at turn 4",
			contains: []string{"sanction", "punishment", "track boundaries", "running wide"},
		},
		{
			name:     "matching is case insensitive",
			query:    "PENALTY for Verstappen",
			contains: []string{"sanction", "punishment"},
		},
		{
			name:     "at most two synonyms per term",
			query:    "collision in the pit lane",
			contains: []string{"crash", "contact"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandQuery(tt.query)
			if tt.verbatim {
				if got != tt.query {
					t.Fatalf("ExpandQuery(%q) = %q, want unchanged", tt.query, got)
				}
				return
			}
			if !strings.HasPrefix(got, tt.query+" ") {
				t.Fatalf("expanded query %q does not start with original %q", got, tt.query)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expanded query %q missing synonym %q", got, want)
				}
			}
		})
	}

	t.Run("collision expands to exactly two synonyms", func(t *testing.T) {
		got := ExpandQuery("collision")
		if strings.Contains(got, "incident") {
			t.Errorf("got third synonym in %q, want at most two", got)
		}
	})
}

func TestExtractRaceContext(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  QueryContext
	}{
		{
			name:  "full scenario",
			query: "Why did Verstappen get a penalty at Silverstone in 2024?",
			want:  QueryContext{Driver: "Max Verstappen", Race: "Silverstone", Season: 2024},
		},
		{
			name:  "three letter code",
			query: "penalty for HAM in quali",
			want:  QueryContext{Driver: "Lewis Hamilton"},
		},
		{
			name:  "table order beats text order",
			query: "Hamilton and Verstappen collided at Monza",
			want:  QueryContext{Driver: "Max Verstappen", Race: "Monza"},
		},
		{
			name:  "year outside plausible range ignored",
			query: "race results from 1976",
			want:  QueryContext{},
		},
		{
			name:  "nothing detected",
			query: "what is the minimum tyre pressure",
			want:  QueryContext{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRaceContext(tt.query)
			if got != tt.want {
				t.Errorf("ExtractRaceContext(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func result(content, source string, score float32) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		Document: vectorstore.Document{
			Content:  content,
			Metadata: map[string]vectorstore.MetaValue{"source": source},
		},
		Score: score,
	}
}

func TestBoostKeywordMatches(t *testing.T) {
	results := []vectorstore.SearchResult{
		result("the stewards reviewed the incident", "a.pdf", 0.70),
		result("a five second penalty for track limits", "b.pdf", 0.68),
	}

	boosted := BoostKeywordMatches(results, "track limits penalty")

	// Two keyword matches worth 0.02 each lift the second result past
	// the first.
	if boosted[0].Document.MetaString("source") != "b.pdf" {
		t.Fatalf("expected boosted result first, got %q", boosted[0].Document.MetaString("source"))
	}
	want := float32(0.68 + 3*0.02)
	if math.Abs(float64(boosted[0].Score-want)) > 1e-6 {
		t.Errorf("boosted score = %v, want %v", boosted[0].Score, want)
	}
	if boosted[1].Score != 0.70 {
		t.Errorf("unmatched result score changed: %v", boosted[1].Score)
	}
}

func TestBoostKeywordMatchesCaps(t *testing.T) {
	content := "penalty sanction collision incident stewards decision review document"
	results := []vectorstore.SearchResult{result(content, "a.pdf", 0.98)}

	boosted := BoostKeywordMatches(results, content)

	// Total boost caps at 0.1 and the score clamps at 1.0.
	if boosted[0].Score != 1.0 {
		t.Errorf("score = %v, want clamp at 1.0", boosted[0].Score)
	}
}

func TestBoostKeywordMatchesIgnoresShortWords(t *testing.T) {
	results := []vectorstore.SearchResult{result("the car hit the wall", "a.pdf", 0.5)}
	boosted := BoostKeywordMatches(results, "car hit the") // all words <= 3 chars
	if boosted[0].Score != 0.5 {
		t.Errorf("score = %v, want unchanged 0.5", boosted[0].Score)
	}
}

func TestDeduplicate(t *testing.T) {
	shared := strings.Repeat("x", 600)
	results := []vectorstore.SearchResult{
		result(shared+"tail-one", "doc.pdf", 0.9),
		result(shared+"tail-two", "doc.pdf", 0.8), // same 500-char prefix, same source
		result(shared+"tail-one", "other.pdf", 0.7),
		result("unique content", "doc.pdf", 0.6),
	}

	got := Deduplicate(results)

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Score != 0.9 {
		t.Errorf("survivor score = %v, want highest-scored first occurrence 0.9", got[0].Score)
	}
	if got[1].Document.MetaString("source") != "other.pdf" {
		t.Errorf("differing source should survive, got %q", got[1].Document.MetaString("source"))
	}
}

func TestDeduplicateDeterministic(t *testing.T) {
	results := []vectorstore.SearchResult{
		result("alpha", "a", 0.9),
		result("beta", "a", 0.8),
		result("alpha", "a", 0.7),
	}
	first := Deduplicate(append([]vectorstore.SearchResult(nil), results...))
	second := Deduplicate(append([]vectorstore.SearchResult(nil), results...))
	if len(first) != len(second) || len(first) != 2 {
		t.Fatalf("runs disagree: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Document.Content != second[i].Document.Content {
			t.Errorf("order differs at %d: %q vs %q", i, first[i].Document.Content, second[i].Document.Content)
		}
	}
}

func TestCombinedContext(t *testing.T) {
	rc := &RetrievalContext{
		Regulations: []vectorstore.SearchResult{
			result("Article 33.3 track limits", "sporting_regs.pdf", 0.9),
		},
		StewardsDecisions: []vectorstore.SearchResult{
			{
				Document: vectorstore.Document{
					Content:  "Car 1 exceeded track limits",
					Metadata: map[string]vectorstore.MetaValue{"event": "British Grand Prix"},
				},
				Score: 0.8,
			},
		},
		RaceData: []vectorstore.SearchResult{
			result("CAR 1 (VER) TIME 1:28.571 DELETED", "", 0.7),
		},
	}

	got := rc.CombinedContext(0)

	for _, want := range []string{
		"=== FIA REGULATIONS ===",
		"[Source: sporting_regs.pdf]\nArticle 33.3 track limits",
		"=== STEWARDS DECISIONS ===",
		"[Event: British Grand Prix]\nCar 1 exceeded track limits",
		"=== RACE CONTROL MESSAGES ===",
		"CAR 1 (VER) TIME 1:28.571 DELETED",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("combined context missing %q in:\n%s", want, got)
		}
	}
	if idx := strings.Index(got, "REGULATIONS"); idx > strings.Index(got, "STEWARDS") {
		t.Error("section order wrong: regulations must precede stewards decisions")
	}
}

func TestCombinedContextMissingMetadata(t *testing.T) {
	rc := &RetrievalContext{
		Regulations: []vectorstore.SearchResult{
			{Document: vectorstore.Document{Content: "Article 54 safety car procedure"}, Score: 0.9},
		},
		StewardsDecisions: []vectorstore.SearchResult{
			{Document: vectorstore.Document{Content: "Car 4 forced another driver off the track"}, Score: 0.8},
		},
	}

	got := rc.CombinedContext(0)

	for _, want := range []string{
		"[Source: Unknown]\nArticle 54 safety car procedure",
		"[Event: Unknown]\nCar 4 forced another driver off the track",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("combined context missing %q in:\n%s", want, got)
		}
	}
}

func TestCombinedContextBudget(t *testing.T) {
	entry := strings.Repeat("r", 60)
	rc := &RetrievalContext{
		Regulations: []vectorstore.SearchResult{
			result(entry, "a.pdf", 0.9),
			result(entry, "b.pdf", 0.8),
			result(entry, "c.pdf", 0.7),
		},
	}

	// The budget is checked before each entry: the first two entries
	// (120 chars) fit, the third is out.
	got := rc.CombinedContext(100)
	if !strings.Contains(got, "[Source: a.pdf]") || !strings.Contains(got, "[Source: b.pdf]") {
		t.Fatalf("expected first two entries in:\n%s", got)
	}
	if strings.Contains(got, "[Source: c.pdf]") {
		t.Errorf("third entry should be over budget:\n%s", got)
	}
}

func TestCombinedContextOversizedFirstEntry(t *testing.T) {
	rc := &RetrievalContext{
		Regulations: []vectorstore.SearchResult{result(strings.Repeat("r", 500), "big.pdf", 0.9)},
	}
	got := rc.CombinedContext(100)
	if !strings.Contains(got, "[Source: big.pdf]") {
		t.Error("a single oversized entry must still be included")
	}
}

func TestCombinedContextEmpty(t *testing.T) {
	rc := &RetrievalContext{}
	got := rc.CombinedContext(0)
	if !strings.Contains(got, "No specific regulatory context found") {
		t.Errorf("empty context = %q, want fallback sentence", got)
	}
}
