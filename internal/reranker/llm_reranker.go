package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pitwall-ai/pitwall/internal/llm"
	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

// LLMReranker approximates cross-encoder scoring with an LLM call that
// sees the query and all candidate passages together. Slower and noisier
// than a dedicated cross-encoder, but usable anywhere an LLM already is.
type LLMReranker struct {
	llmClient llm.LLM
}

// NewLLMReranker creates an LLM-based reranker.
func NewLLMReranker(llmClient llm.LLM) *LLMReranker {
	return &LLMReranker{llmClient: llmClient}
}

// Available reports whether an LLM client is configured.
func (r *LLMReranker) Available(ctx context.Context) bool {
	return r.llmClient != nil
}

type relevanceScore struct {
	DocIndex int     `json:"doc_index"`
	Score    float32 `json:"score"`
}

type llmRerankResponse struct {
	Scores []relevanceScore `json:"scores"`
}

// Rerank scores each document's relevance to the query via the LLM.
func (r *LLMReranker) Rerank(ctx context.Context, query string, results []vectorstore.SearchResult, topK int) ([]vectorstore.SearchResult, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if len(results) == 1 {
		return results[:min(1, topK)], nil
	}
	if r.llmClient == nil {
		return nil, ErrUnavailable
	}

	response, err := r.llmClient.Generate(ctx, r.buildPrompt(query, results), llm.GenerateOptions{
		Temperature: 0.0, // deterministic scoring
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	scores, err := parseScores(response, len(results))
	if err != nil {
		// Unparseable output: keep vector-similarity order.
		if topK > 0 && len(results) > topK {
			return results[:topK], nil
		}
		return results, nil
	}

	reranked := make([]vectorstore.SearchResult, len(results))
	copy(reranked, results)
	for i := range reranked {
		reranked[i].Score = scores[i]
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if topK > 0 && len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}

func (r *LLMReranker) buildPrompt(query string, results []vectorstore.SearchResult) string {
	var sb strings.Builder

	sb.WriteString("You are a relevance scoring system. Score each document's relevance to the query.\n\n")
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nDocuments to score:\n")

	for i, result := range results {
		content := result.Document.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		fmt.Fprintf(&sb, "[Doc %d]: %s\n\n", i, content)
	}

	sb.WriteString(`Score each document from 0.0 to 1.0 based on relevance to the query.
Output ONLY valid JSON in this exact format:
{"scores": [{"doc_index": 0, "score": 0.9}, {"doc_index": 1, "score": 0.3}, ...]}
Output only JSON, no explanation:`)

	return sb.String()
}

func parseScores(response string, numResults int) ([]float32, error) {
	response = strings.TrimSpace(response)

	// Strip markdown code fences if the model added them.
	if idx := strings.Index(response, "```json"); idx != -1 {
		start := idx + 7
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	} else if idx := strings.Index(response, "```"); idx != -1 {
		start := idx + 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	}

	var parsed llmRerankResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse rerank response: %w", err)
	}

	scores := make([]float32, numResults)
	for i := range scores {
		scores[i] = 0.5 // default for entries the model skipped
	}
	for _, s := range parsed.Scores {
		if s.DocIndex >= 0 && s.DocIndex < numResults {
			scores[s.DocIndex] = clamp01(s.Score)
		}
	}
	return scores, nil
}

// Ensure LLMReranker implements Reranker.
var _ Reranker = (*LLMReranker)(nil)
