package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pitwall-ai/pitwall/internal/repository"
	"github.com/pitwall-ai/pitwall/internal/sources"
)

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	JobID     uuid.UUID     `json:"job_id"`
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Events    int           `json:"events"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Pipeline orchestrates scraping, extraction and indexing. Individual
// document failures are logged and counted, never fatal: one broken PDF
// must not abort a season ingest.
type Pipeline struct {
	scraper     *sources.FIAScraper
	raceControl *sources.RaceControlClient
	schedule    *sources.JolpicaClient
	indexer     *Indexer
	stats       repository.StatsRepository
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithStatsRepository mirrors penalty events into the stats database.
func WithStatsRepository(repo repository.StatsRepository) PipelineOption {
	return func(p *Pipeline) { p.stats = repo }
}

// WithSchedule enables season-wide race control ingestion by resolving
// the race calendar through the Jolpica API.
func WithSchedule(client *sources.JolpicaClient) PipelineOption {
	return func(p *Pipeline) { p.schedule = client }
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline creates a Pipeline.
func NewPipeline(scraper *sources.FIAScraper, raceControl *sources.RaceControlClient, indexer *Indexer, opts ...PipelineOption) (*Pipeline, error) {
	if scraper == nil || raceControl == nil || indexer == nil {
		return nil, fmt.Errorf("ingestion: scraper, race control client and indexer are required")
	}
	p := &Pipeline{
		scraper:     scraper,
		raceControl: raceControl,
		indexer:     indexer,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// IngestRegulations scrapes, downloads and indexes sporting regulations
// for a season.
func (p *Pipeline) IngestRegulations(ctx context.Context, season int) (*IngestResult, error) {
	docs, err := p.scraper.ScrapeRegulations(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("scrape regulations: %w", err)
	}
	return p.ingestDocuments(ctx, docs), nil
}

// IngestStewardsDecisions scrapes, downloads and indexes stewards
// decisions for a season, optionally one race only.
func (p *Pipeline) IngestStewardsDecisions(ctx context.Context, season int, raceName string) (*IngestResult, error) {
	docs, err := p.scraper.ScrapeStewardsDecisions(ctx, season, raceName)
	if err != nil {
		return nil, fmt.Errorf("scrape stewards decisions: %w", err)
	}
	return p.ingestDocuments(ctx, docs), nil
}

func (p *Pipeline) ingestDocuments(ctx context.Context, docs []sources.FIADocument) *IngestResult {
	start := time.Now()
	result := &IngestResult{JobID: uuid.New()}

	for i := range docs {
		doc := &docs[i]
		if _, err := p.scraper.Download(ctx, doc); err != nil {
			p.logger.Warn("download failed", "title", doc.Title, "error", err)
			result.Failed++
			continue
		}
		if err := p.scraper.ExtractText(doc); err != nil {
			p.logger.Warn("text extraction failed", "title", doc.Title, "error", err)
			result.Failed++
			continue
		}
		chunks, err := p.indexer.IndexFIADocument(ctx, doc)
		if err != nil {
			p.logger.Warn("indexing failed", "title", doc.Title, "error", err)
			result.Failed++
			continue
		}
		result.Documents++
		result.Chunks += chunks
	}

	result.Duration = time.Since(start)
	p.logger.Info("document ingest complete",
		"job_id", result.JobID.String(),
		"documents", result.Documents,
		"chunks", result.Chunks,
		"failed", result.Failed,
		"duration", result.Duration)
	return result
}

// IngestSeasonRaceControl ingests race control messages for every race
// on a season's calendar. Races without data yet (future rounds, or
// rounds the message API has not published) are counted as failed and
// skipped.
func (p *Pipeline) IngestSeasonRaceControl(ctx context.Context, season int, sessionType string) (*IngestResult, error) {
	if p.schedule == nil {
		return nil, fmt.Errorf("ingestion: no schedule client configured")
	}
	races, err := p.schedule.Races(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("fetch season calendar: %w", err)
	}

	start := time.Now()
	total := &IngestResult{JobID: uuid.New()}

	for _, race := range races {
		result, err := p.IngestRaceControl(ctx, season, race.Name, sessionType)
		if err != nil {
			p.logger.Warn("race ingest failed", "race", race.Name, "round", race.Round, "error", err)
			total.Failed++
			continue
		}
		total.Events += result.Events
		total.Failed += result.Failed
	}

	total.Duration = time.Since(start)
	p.logger.Info("season race control ingest complete",
		"job_id", total.JobID.String(),
		"season", season,
		"races", len(races),
		"events", total.Events,
		"failed", total.Failed)
	return total, nil
}

// IngestRaceControl fetches penalty-related race control messages for a
// session, indexes each into the vector store and mirrors them into the
// stats database when one is configured.
func (p *Pipeline) IngestRaceControl(ctx context.Context, season int, raceName, sessionType string) (*IngestResult, error) {
	events, err := p.raceControl.PenaltyEvents(ctx, season, raceName, sessionType)
	if err != nil {
		return nil, fmt.Errorf("fetch race control messages: %w", err)
	}

	start := time.Now()
	result := &IngestResult{JobID: uuid.New()}

	for i := range events {
		event := &events[i]
		if _, err := p.indexer.IndexPenaltyEvent(ctx, event); err != nil {
			p.logger.Warn("event indexing failed", "message", event.Message, "error", err)
			result.Failed++
			continue
		}
		result.Events++

		if p.stats != nil {
			rec := &repository.PenaltyRecord{
				Season:   event.Season,
				RaceName: event.RaceName,
				Session:  event.Session,
				Driver:   event.Driver,
				Team:     "Unknown",
				Category: event.Category,
				Message:  event.Message,
			}
			if _, err := p.stats.InsertPenalty(ctx, rec); err != nil {
				p.logger.Warn("stats insert failed", "message", event.Message, "error", err)
			}
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("race control ingest complete",
		"job_id", result.JobID.String(),
		"race", raceName,
		"season", season,
		"events", result.Events,
		"failed", result.Failed)
	return result, nil
}
