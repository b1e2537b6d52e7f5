package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ForecastBot/internal/domain"
	"ForecastBot/internal/ports"
)

// PostgresRepository records which questions have been forecast so later runs
// can skip them.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ForecastRepository = (*PostgresRepository)(nil)

// NewPostgresRepository connects to the database and ensures the schema
// exists.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := repo.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresRepository) ensureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS forecasts (
			question_id BIGINT PRIMARY KEY,
			group_title TEXT NOT NULL,
			validity    TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create forecasts table: %w", err)
	}
	return nil
}

// AlreadyForecast reports, for each id, whether a valid forecast was already
// recorded. Only valid forecasts count; malformed or incomplete attempts stay
// eligible for retry on the next run.
func (r *PostgresRepository) AlreadyForecast(ctx context.Context, ids []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(ids))
	for _, id := range ids {
		result[id] = false
	}
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := r.builder.
		Select("question_id").
		From("forecasts").
		Where(sq.Expr("question_id = ANY(?)", pq.Array(ids))).
		Where(sq.Eq{"validity": string(domain.ValidityValid)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build forecast lookup: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan forecast row: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast rows: %w", err)
	}
	return result, nil
}

// SaveForecast upserts the forecast record for a question.
func (r *PostgresRepository) SaveForecast(ctx context.Context, questionID int64, groupTitle string, validity domain.Validity) error {
	query, args, err := r.builder.
		Insert("forecasts").
		Columns("question_id", "group_title", "validity").
		Values(questionID, groupTitle, string(validity)).
		Suffix("ON CONFLICT (question_id) DO UPDATE SET group_title = EXCLUDED.group_title, validity = EXCLUDED.validity, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build forecast upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save forecast: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
