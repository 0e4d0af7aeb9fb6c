package retrieval

import (
	"strings"

	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

// DefaultMaxContextChars bounds the assembled context so the prompt
// stays well inside the LLM context window.
const DefaultMaxContextChars = 8000

// noContextFallback is returned when every collection came back empty.
const noContextFallback = "No specific regulatory context found for this query. " +
	"Please provide a general response based on F1 knowledge."

// RetrievalContext holds per-collection search results for a single
// query, ready to be flattened into an LLM prompt.
type RetrievalContext struct {
	Regulations       []vectorstore.SearchResult
	StewardsDecisions []vectorstore.SearchResult
	RaceData          []vectorstore.SearchResult
	Query             string
}

// Empty reports whether no collection returned anything.
func (rc *RetrievalContext) Empty() bool {
	return len(rc.Regulations) == 0 && len(rc.StewardsDecisions) == 0 && len(rc.RaceData) == 0
}

// CombinedContext flattens the per-collection results into a single
// labeled text block, visiting regulations first, then stewards
// decisions, then race data. Entry content counts against maxChars and
// the budget is checked before each entry, so at least one entry is
// always included even when it alone exceeds the budget. A maxChars of
// zero or less falls back to DefaultMaxContextChars.
func (rc *RetrievalContext) CombinedContext(maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	var parts []string
	charCount := 0

	if len(rc.Regulations) > 0 {
		parts = append(parts, "=== FIA REGULATIONS ===")
		for _, result := range rc.Regulations {
			if charCount > maxChars {
				break
			}
			source := result.Document.MetaString("source")
			if source == "" {
				source = "Unknown"
			}
			parts = append(parts, "\n[Source: "+source+"]\n"+result.Document.Content)
			charCount += len(result.Document.Content)
		}
	}

	if len(rc.StewardsDecisions) > 0 {
		parts = append(parts, "=== STEWARDS DECISIONS ===")
		for _, result := range rc.StewardsDecisions {
			if charCount > maxChars {
				break
			}
			event := result.Document.MetaString("event")
			if event == "" {
				event = "Unknown"
			}
			parts = append(parts, "\n[Event: "+event+"]\n"+result.Document.Content)
			charCount += len(result.Document.Content)
		}
	}

	if len(rc.RaceData) > 0 {
		parts = append(parts, "=== RACE CONTROL MESSAGES ===")
		for _, result := range rc.RaceData {
			if charCount > maxChars {
				break
			}
			parts = append(parts, "\n"+result.Document.Content)
			charCount += len(result.Document.Content)
		}
	}

	if len(parts) == 0 {
		return noContextFallback
	}
	return strings.Join(parts, "\n")
}
