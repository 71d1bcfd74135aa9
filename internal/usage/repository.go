package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	FieldSucceeded = "succeeded"
	FieldFailed    = "failed"
)

// DB is satisfied by *pgxpool.Pool and pgxmock.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyUsage, error) {
	query := `
		SELECT date, analyses, succeeded, failed, created_at, updated_at
		FROM analysis_usage_daily
		WHERE date >= $1 AND date <= $2
		ORDER BY date DESC
	`

	rows, err := r.db.Query(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("get daily usage: %w", err)
	}
	defer rows.Close()

	var records []DailyUsage
	for rows.Next() {
		var record DailyUsage
		err := rows.Scan(
			&record.Date,
			&record.Analyses,
			&record.Succeeded,
			&record.Failed,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage records: %w", err)
	}

	return records, nil
}

func (r *Repository) AggregatePeriod(ctx context.Context, startDate, endDate time.Time) (*Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(analyses), 0) as total_analyses,
			COALESCE(SUM(succeeded), 0) as total_succeeded,
			COALESCE(SUM(failed), 0) as total_failed
		FROM analysis_usage_daily
		WHERE date >= $1 AND date <= $2
	`

	var totals Totals
	err := r.db.QueryRow(ctx, query, startDate, endDate).Scan(
		&totals.Analyses,
		&totals.Succeeded,
		&totals.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate period: %w", err)
	}

	return &totals, nil
}

// IncrementDaily adds amount to field and to the analyses total of date's row.
func (r *Repository) IncrementDaily(ctx context.Context, date time.Time, field string, amount int) error {
	if field != FieldSucceeded && field != FieldFailed {
		return fmt.Errorf("invalid field: %s", field)
	}

	query := fmt.Sprintf(`
		INSERT INTO analysis_usage_daily (date, analyses, %s)
		VALUES ($1, $2, $2)
		ON CONFLICT (date)
		DO UPDATE SET analyses = analysis_usage_daily.analyses + EXCLUDED.analyses,
			%s = analysis_usage_daily.%s + EXCLUDED.%s, updated_at = NOW()
	`, field, field, field, field)

	_, err := r.db.Exec(ctx, query, date, amount)
	if err != nil {
		return fmt.Errorf("increment daily %s: %w", field, err)
	}

	return nil
}

// DeleteBefore removes rows older than cutoff and returns how many were removed.
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM analysis_usage_daily WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete usage before %s: %w", cutoff.Format(time.DateOnly), err)
	}
	return tag.RowsAffected(), nil
}
