package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Reading 一次识别的历史记录
type Reading struct {
	CaptureID  string    `json:"capture_id"`
	Trigger    string    `json:"trigger"`
	Outcome    string    `json:"outcome"`
	Text       string    `json:"text"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ReadingRepository 识别历史（PostgreSQL）
type ReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingRepository 创建识别历史仓库
func NewReadingRepository(db *sql.DB, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema 建表（幂等）
func (r *ReadingRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS eyewear_readings (
			capture_id  UUID PRIMARY KEY,
			trigger     TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			text        TEXT NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create eyewear_readings table: %w", err)
	}
	return nil
}

// Insert 写入一条识别记录
func (r *ReadingRepository) Insert(ctx context.Context, reading *Reading) error {
	query := `
		INSERT INTO eyewear_readings (capture_id, trigger, outcome, text, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (capture_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		reading.CaptureID,
		reading.Trigger,
		reading.Outcome,
		reading.Text,
		reading.StartedAt,
		reading.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	r.logger.Debug("Reading saved",
		zap.String("capture_id", reading.CaptureID),
		zap.String("outcome", reading.Outcome),
	)
	return nil
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListRecent 按完成时间倒序返回最近的记录，limit 超过上限时取上限
func (r *ReadingRepository) ListRecent(ctx context.Context, limit int) ([]Reading, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	query := `
		SELECT capture_id, trigger, outcome, text, started_at, finished_at
		FROM eyewear_readings
		ORDER BY finished_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := make([]Reading, 0, limit)
	for rows.Next() {
		var reading Reading
		if err := rows.Scan(
			&reading.CaptureID,
			&reading.Trigger,
			&reading.Outcome,
			&reading.Text,
			&reading.StartedAt,
			&reading.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}
