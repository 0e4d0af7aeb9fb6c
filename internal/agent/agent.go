// Package agent orchestrates question answering: classification,
// query rewriting, retrieval, prompt assembly and generation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pitwall-ai/pitwall/internal/llm"
	"github.com/pitwall-ai/pitwall/internal/memory"
	"github.com/pitwall-ai/pitwall/internal/repository"
	"github.com/pitwall-ai/pitwall/internal/retrieval"
	"github.com/pitwall-ai/pitwall/internal/textutil"
	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

// ErrEmptyQuery is returned when the question is empty or whitespace.
var ErrEmptyQuery = errors.New("agent: query must not be empty")

// historyWindow is how many messages feed the query rewriter (3 turns).
const historyWindow = 6

// Smalltalk markers emitted by the query rewriter. These short-circuit
// the pipeline: no retrieval, no generation.
const (
	markerDeclined = "[DECLINED]"
	markerThanks   = "[THANKS]"
	markerGreeting = "[GREETING]"
)

var cannedReplies = map[string]string{
	markerDeclined: "No problem! Feel free to ask if anything else about F1 rules or penalties comes up.",
	markerThanks:   "You're welcome! Happy to help with any other F1 regulation questions.",
	markerGreeting: "Hi! Ask me anything about F1 penalties, rules, or stewards decisions.",
}

// Source is a citation attached to an answer.
type Source struct {
	Source  string  `json:"source"`
	DocType string  `json:"doc_type"`
	Score   float32 `json:"score"`
	URL     string  `json:"url,omitempty"`
}

// Response is a complete answer with its provenance.
type Response struct {
	Answer    string    `json:"answer"`
	QueryType QueryType `json:"query_type"`
	Sources   []Source  `json:"sources"`
}

// StreamResponse carries a token stream plus the metadata known before
// generation starts. The caller accumulates the answer and, for
// session-bound chats, records it with SaveExchange.
type StreamResponse struct {
	Chunks    <-chan llm.StreamChunk
	QueryType QueryType
	Sources   []Source
}

// Agent answers F1 regulation questions over the knowledge base.
type Agent struct {
	llm       llm.LLM
	retriever *retrieval.Retriever
	history   memory.History
	stats     repository.StatsRepository
	logger    *slog.Logger
	maxChars  int
}

// Option configures an Agent.
type Option func(*Agent)

// WithHistory enables multi-turn conversations.
func WithHistory(h memory.History) Option {
	return func(a *Agent) { a.history = h }
}

// WithStats enables the analytics path for statistical questions.
func WithStats(repo repository.StatsRepository) Option {
	return func(a *Agent) { a.stats = repo }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithMaxContextChars overrides the context budget.
func WithMaxContextChars(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxChars = n
		}
	}
}

// New creates an Agent. The LLM and retriever are required; history and
// stats are optional capabilities.
func New(llmClient llm.LLM, retriever *retrieval.Retriever, opts ...Option) (*Agent, error) {
	if llmClient == nil {
		return nil, fmt.Errorf("agent: llm client is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("agent: retriever is required")
	}
	a := &Agent{
		llm:       llmClient,
		retriever: retriever,
		logger:    slog.Default(),
		maxChars:  retrieval.DefaultMaxContextChars,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Ask answers a question. A non-empty sessionID pulls chat history into
// a query rewrite and records the exchange afterwards.
func (a *Agent) Ask(ctx context.Context, query, sessionID string) (*Response, error) {
	searchQuery, canned, err := a.prepareQuery(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	if canned != "" {
		resp := &Response{Answer: canned, QueryType: QueryTypeGeneral, Sources: []Source{}}
		a.saveExchange(ctx, sessionID, query, canned)
		return resp, nil
	}

	queryType, rc, prompt, err := a.assemble(ctx, searchQuery)
	if err != nil {
		return nil, err
	}

	answer, err := a.llm.Generate(ctx, prompt, llm.GenerateOptions{SystemPrompt: systemPrompt})
	if err != nil {
		return nil, fmt.Errorf("agent: generate answer: %w", err)
	}

	resp := &Response{
		Answer:    answer,
		QueryType: queryType,
		Sources:   extractSources(rc),
	}
	a.saveExchange(ctx, sessionID, query, answer)
	return resp, nil
}

// AskStream answers a question with a streamed response. Sources and
// the query type are resolved before the first token.
func (a *Agent) AskStream(ctx context.Context, query, sessionID string) (*StreamResponse, error) {
	searchQuery, canned, err := a.prepareQuery(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	if canned != "" {
		ch := make(chan llm.StreamChunk, 2)
		ch <- llm.StreamChunk{Token: canned}
		ch <- llm.StreamChunk{Done: true}
		close(ch)
		return &StreamResponse{Chunks: ch, QueryType: QueryTypeGeneral, Sources: []Source{}}, nil
	}

	queryType, rc, prompt, err := a.assemble(ctx, searchQuery)
	if err != nil {
		return nil, err
	}

	chunks, err := a.llm.GenerateStream(ctx, prompt, llm.GenerateOptions{SystemPrompt: systemPrompt})
	if err != nil {
		return nil, fmt.Errorf("agent: start stream: %w", err)
	}
	return &StreamResponse{
		Chunks:    chunks,
		QueryType: queryType,
		Sources:   extractSources(rc),
	}, nil
}

// SaveExchange records a completed question/answer pair. Streaming
// callers use this once the full answer has been accumulated.
func (a *Agent) SaveExchange(ctx context.Context, sessionID, question, answer string) {
	a.saveExchange(ctx, sessionID, question, answer)
}

// prepareQuery validates the question and rewrites follow-ups into
// standalone queries using session history. The second return value is
// a canned reply for smalltalk, empty otherwise.
func (a *Agent) prepareQuery(ctx context.Context, query, sessionID string) (string, string, error) {
	if strings.TrimSpace(query) == "" {
		return "", "", ErrEmptyQuery
	}

	if a.history == nil || sessionID == "" {
		return query, "", nil
	}

	messages, err := a.history.RecentHistory(ctx, sessionID, historyWindow)
	if err != nil {
		a.logger.Warn("history unavailable, skipping rewrite", "error", err)
		return query, "", nil
	}
	if len(messages) == 0 {
		return query, "", nil
	}

	prompt := fmt.Sprintf(queryRewriteTemplate, memory.FormatForPrompt(messages), query)
	rewritten, err := a.llm.Generate(ctx, prompt, llm.GenerateOptions{})
	if err != nil {
		a.logger.Warn("query rewrite failed, using original", "error", err)
		return query, "", nil
	}
	rewritten = strings.TrimSpace(rewritten)

	if reply, ok := cannedReplies[rewritten]; ok {
		return "", reply, nil
	}
	if rewritten == "" {
		return query, "", nil
	}
	a.logger.Debug("query rewritten", "original", query, "rewritten", rewritten)
	return rewritten, "", nil
}

// assemble classifies the query, retrieves context and builds the
// generation prompt, including stats injection for analytics questions.
func (a *Agent) assemble(ctx context.Context, query string) (QueryType, *retrieval.RetrievalContext, string, error) {
	queryType := ClassifyQuery(query)
	qc := retrieval.ExtractRaceContext(query)
	a.logger.Debug("query analyzed",
		"type", string(queryType),
		"driver", qc.Driver,
		"race", qc.Race,
		"season", qc.Season)

	rc, err := a.retriever.Retrieve(ctx, query, qc)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuery) {
			return "", nil, "", ErrEmptyQuery
		}
		return "", nil, "", fmt.Errorf("agent: retrieve context: %w", err)
	}

	prompt := buildPrompt(query, queryType, rc.CombinedContext(a.maxChars))

	if queryType == QueryTypeAnalytics && a.stats != nil {
		if data := a.queryStats(ctx, query); data != "" {
			prompt += "\n\n=== STATISTICAL DATA (From Database) ===\n" + data +
				"\n\nUse this data to provide a precise answer."
		}
	}
	return queryType, rc, prompt, nil
}

// queryStats asks the LLM for a SELECT over the penalties table, runs
// it through the read-only guard and formats the rows for the prompt.
// Every failure degrades to an empty string; analytics answers then
// fall back on retrieved context alone.
func (a *Agent) queryStats(ctx context.Context, query string) string {
	season := time.Now().Year()
	sqlPrompt := fmt.Sprintf(sqlGenerationTemplate, query, season, season)

	generated, err := a.llm.Generate(ctx, sqlPrompt, llm.GenerateOptions{})
	if err != nil {
		a.logger.Warn("sql generation failed", "error", err)
		return ""
	}
	generated = strings.TrimSpace(strings.NewReplacer("```sql", "", "```", "").Replace(generated))

	result, err := a.stats.ExecuteReadOnly(ctx, generated)
	if err != nil {
		a.logger.Warn("stats query failed", "query", generated, "error", err)
		return ""
	}
	if len(result.Rows) == 0 {
		return "No matching records found in database."
	}

	var b strings.Builder
	b.WriteString("Query: " + generated + "\n")
	b.WriteString("Columns: " + strings.Join(result.Columns, ", ") + "\n")
	for _, row := range result.Rows {
		fmt.Fprintf(&b, "Row: %v\n", row)
	}
	return b.String()
}

func (a *Agent) saveExchange(ctx context.Context, sessionID, question, answer string) {
	if a.history == nil || sessionID == "" {
		return
	}
	if err := a.history.AddMessage(ctx, sessionID, memory.RoleUser, question); err != nil {
		a.logger.Warn("failed to record user message", "error", err)
		return
	}
	if err := a.history.AddMessage(ctx, sessionID, memory.RoleAssistant, answer); err != nil {
		a.logger.Warn("failed to record assistant message", "error", err)
	}
}

// maxSourcesPerList bounds citations per collection.
const maxSourcesPerList = 3

// extractSources builds deduplicated citations from the top results of
// each collection.
func extractSources(rc *retrieval.RetrievalContext) []Source {
	sources := []Source{}
	seen := make(map[string]bool)

	add := func(title, docType, url string, score float32) {
		key := title + "_" + url
		if title == "" || seen[key] {
			return
		}
		seen[key] = true
		sources = append(sources, Source{Source: title, DocType: docType, Score: score, URL: url})
	}

	for _, r := range head(rc.Regulations, maxSourcesPerList) {
		title := textutil.Normalize(metaOr(r.Document, "source", "FIA Regulations"))
		add(title, "regulation", r.Document.MetaString("url"), r.Score)
	}
	for _, r := range head(rc.StewardsDecisions, maxSourcesPerList) {
		event := textutil.Normalize(metaOr(r.Document, "event", "Unknown"))
		source := textutil.Normalize(metaOr(r.Document, "source", "Stewards Decision"))
		add(source+" ("+event+")", "stewards", r.Document.MetaString("url"), r.Score)
	}
	for _, r := range head(rc.RaceData, maxSourcesPerList) {
		race := textutil.Normalize(metaOr(r.Document, "race", "Race"))
		title := race
		if season := r.Document.MetaInt("season"); season != 0 {
			title = fmt.Sprintf("%s %d", race, season)
		}
		add(title, "race_control", r.Document.MetaString("url"), r.Score)
	}
	return sources
}

func head(results []vectorstore.SearchResult, n int) []vectorstore.SearchResult {
	if len(results) > n {
		return results[:n]
	}
	return results
}

func metaOr(doc vectorstore.Document, key, fallback string) string {
	if v := doc.MetaString(key); v != "" {
		return v
	}
	return fallback
}
