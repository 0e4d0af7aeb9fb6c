package retrieval

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

const (
	// boostPerKeyword is the score bump for each matched query keyword.
	boostPerKeyword = 0.02

	// maxBoost caps the total keyword bump at 10%.
	maxBoost = 0.1

	// minKeywordLen filters out stopword-length tokens.
	minKeywordLen = 3

	// dedupPrefixLen is how much leading content feeds the dedup signature.
	dedupPrefixLen = 500
)

// BoostKeywordMatches bumps scores for results whose content literally
// contains the query's keywords, then re-sorts descending. The boost is
// computed from the original user query, not the synonym-expanded one:
// literal terms the user typed deserve the reward, injected synonyms do
// not. Scores are mutated in place and clamped to 1.0; ties keep their
// relative order.
func BoostKeywordMatches(results []vectorstore.SearchResult, query string) []vectorstore.SearchResult {
	var keywords []string
	for _, w := range strings.Fields(query) {
		if len(w) > minKeywordLen {
			keywords = append(keywords, strings.ToLower(w))
		}
	}

	for i := range results {
		contentLower := strings.ToLower(results[i].Document.Content)

		matchCount := 0
		for _, kw := range keywords {
			if strings.Contains(contentLower, kw) {
				matchCount++
			}
		}
		if matchCount == 0 {
			continue
		}

		boost := float32(matchCount) * boostPerKeyword
		if boost > maxBoost {
			boost = maxBoost
		}
		score := results[i].Score + boost
		if score > 1.0 {
			score = 1.0
		}
		results[i].Score = score
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// dedupKey identifies near-duplicate results by source plus a hash of
// the leading content.
type dedupKey struct {
	source string
	hash   uint64
}

// Deduplicate drops results sharing a source and content-prefix
// signature, keeping the first occurrence of each key. Because input is
// score-sorted, the survivor is always the highest-scoring instance.
func Deduplicate(results []vectorstore.SearchResult) []vectorstore.SearchResult {
	seen := make(map[dedupKey]struct{}, len(results))
	deduplicated := make([]vectorstore.SearchResult, 0, len(results))

	for _, result := range results {
		content := result.Document.Content
		if len(content) > dedupPrefixLen {
			content = content[:dedupPrefixLen]
		}

		h := fnv.New64a()
		h.Write([]byte(content))
		key := dedupKey{source: result.Document.MetaString("source"), hash: h.Sum64()}

		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduplicated = append(deduplicated, result)
	}

	return deduplicated
}
