package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ReadingRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewReadingRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestReadingRepository_Insert(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	reading := &Reading{
		CaptureID:  "5b7c1c8e-0d6a-4a55-9c2e-2f1f0e3f1a10",
		Trigger:    "touch",
		Outcome:    "text",
		Text:       "PLATFORM 4",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}

	mock.ExpectExec(`INSERT INTO eyewear_readings`).
		WithArgs(reading.CaptureID, "touch", "text", "PLATFORM 4", reading.StartedAt, reading.FinishedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), reading))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingRepository_InsertError(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO eyewear_readings`).
		WillReturnError(errors.New("connection refused"))

	err := repo.Insert(context.Background(), &Reading{CaptureID: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert reading")
}

func TestReadingRepository_ListRecent(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	t1 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"capture_id", "trigger", "outcome", "text", "started_at", "finished_at"}).
		AddRow("c-2", "manual", "no_text", "No text detected", t1.Add(time.Minute), t1.Add(time.Minute+time.Second)).
		AddRow("c-1", "touch", "text", "EXIT", t1, t1.Add(2*time.Second))

	mock.ExpectQuery(`SELECT capture_id, trigger, outcome, text, started_at, finished_at`).
		WithArgs(20).
		WillReturnRows(rows)

	readings, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "c-2", readings[0].CaptureID)
	assert.Equal(t, "EXIT", readings[1].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingRepository_ListRecent_LimitClamped(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT capture_id, trigger, outcome, text, started_at, finished_at`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"capture_id", "trigger", "outcome", "text", "started_at", "finished_at"}))

	readings, err := repo.ListRecent(context.Background(), 500)
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingRepository_EnsureSchema(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS eyewear_readings`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
