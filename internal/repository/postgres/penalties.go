package postgres

import (
	"context"
	"fmt"

	"github.com/pitwall-ai/pitwall/internal/repository"
)

// PenaltyRepo implements repository.StatsRepository.
type PenaltyRepo struct {
	db *DB
}

var _ repository.StatsRepository = (*PenaltyRepo)(nil)

// NewPenaltyRepo creates a new penalty statistics repository.
func NewPenaltyRepo(db *DB) *PenaltyRepo {
	return &PenaltyRepo{db: db}
}

// InsertPenalty stores a record and returns its ID.
func (r *PenaltyRepo) InsertPenalty(ctx context.Context, rec *repository.PenaltyRecord) (int64, error) {
	query := `
		INSERT INTO penalties (season, race_name, session, driver, team, category, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.Pool.QueryRow(ctx, query,
		rec.Season, rec.RaceName, rec.Session, rec.Driver, rec.Team,
		rec.Category, rec.Message).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert penalty: %w", err)
	}
	return id, nil
}

// ClearSeason removes all records for a season.
func (r *PenaltyRepo) ClearSeason(ctx context.Context, season int) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM penalties WHERE season = $1`, season); err != nil {
		return fmt.Errorf("failed to clear season %d: %w", season, err)
	}
	return nil
}

// CountBySeason returns the number of penalty records for a season.
func (r *PenaltyRepo) CountBySeason(ctx context.Context, season int) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM penalties WHERE season = $1`, season).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count season %d: %w", season, err)
	}
	return count, nil
}

// ExecuteReadOnly runs an ad-hoc SELECT after validating it against the
// read-only whitelist. Queries come from an LLM, never from user input
// directly, but the validation assumes the worst either way.
func (r *PenaltyRepo) ExecuteReadOnly(ctx context.Context, query string) (*repository.QueryResult, error) {
	if err := repository.ValidateReadOnlySQL(query); err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	result := &repository.QueryResult{}
	for _, fd := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}
