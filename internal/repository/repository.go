// Package repository defines domain models and data access interfaces
// for structured penalty statistics.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnsafeSQL is returned when a generated query fails the read-only
// safety validation.
var ErrUnsafeSQL = errors.New("query rejected by safety validation")

// PenaltyRecord is one penalty row from a race weekend, extracted from
// race control messages.
type PenaltyRecord struct {
	ID        int64
	Season    int
	RaceName  string
	Session   string
	Driver    string
	Team      string
	Category  string
	Message   string
	CreatedAt time.Time
}

// QueryResult holds rows from an ad-hoc analytics query.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// StatsRepository stores penalty records and answers analytics queries.
// ExecuteReadOnly exists for LLM-generated SQL, so implementations must
// run every query through ValidateReadOnlySQL first.
type StatsRepository interface {
	// InsertPenalty stores a record and returns its ID.
	InsertPenalty(ctx context.Context, rec *PenaltyRecord) (int64, error)

	// ClearSeason removes all records for a season, used before
	// re-ingesting it.
	ClearSeason(ctx context.Context, season int) error

	// CountBySeason returns the number of penalty records for a season.
	CountBySeason(ctx context.Context, season int) (int64, error)

	// ExecuteReadOnly runs a validated SELECT and returns its rows.
	ExecuteReadOnly(ctx context.Context, query string) (*QueryResult, error)
}
