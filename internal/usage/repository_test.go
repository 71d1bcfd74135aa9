package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func TestRepository_IncrementDaily(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		amount  int
		wantErr bool
	}{
		{
			name:   "increment succeeded",
			field:  FieldSucceeded,
			amount: 1,
		},
		{
			name:   "increment failed",
			field:  FieldFailed,
			amount: 2,
		},
		{
			name:    "invalid field",
			field:   "analyses; DROP TABLE x",
			amount:  1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewRepository(mock)

			if !tt.wantErr {
				mock.ExpectExec("INSERT INTO analysis_usage_daily").
					WithArgs(testDay, tt.amount).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err = repo.IncrementDaily(context.Background(), testDay, tt.field, tt.amount)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_IncrementDaily_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO analysis_usage_daily").
		WithArgs(testDay, 1).
		WillReturnError(errors.New("connection reset"))

	err = NewRepository(mock).IncrementDaily(context.Background(), testDay, FieldFailed, 1)
	assert.ErrorContains(t, err, "increment daily failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetDailyUsage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := testDay.AddDate(0, 0, -1)
	now := time.Now()
	rows := pgxmock.NewRows([]string{"date", "analyses", "succeeded", "failed", "created_at", "updated_at"}).
		AddRow(testDay, 10, 7, 3, now, now).
		AddRow(start, 4, 4, 0, now, now)

	mock.ExpectQuery("SELECT date, analyses, succeeded, failed").
		WithArgs(start, testDay).
		WillReturnRows(rows)

	records, err := NewRepository(mock).GetDailyUsage(context.Background(), start, testDay)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 10, records[0].Analyses)
	assert.Equal(t, 3, records[0].Failed)
	assert.Equal(t, start, records[1].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_AggregatePeriod(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := testDay.AddDate(0, 0, -6)
	mock.ExpectQuery("FROM analysis_usage_daily").
		WithArgs(start, testDay).
		WillReturnRows(pgxmock.NewRows([]string{"total_analyses", "total_succeeded", "total_failed"}).
			AddRow(20, 15, 5))

	totals, err := NewRepository(mock).AggregatePeriod(context.Background(), start, testDay)
	require.NoError(t, err)
	assert.Equal(t, &Totals{Analyses: 20, Succeeded: 15, Failed: 5}, totals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM analysis_usage_daily").
		WithArgs(testDay).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	deleted, err := NewRepository(mock).DeleteBefore(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
