package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/j-veylop/claude-code-metrics/internal/logger"
	"github.com/j-veylop/claude-code-metrics/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// InsertBatch stores one published batch and its records atomically and
// returns the batch ID.
func (db *DB) InsertBatch(ctx context.Context, namespace string, records []models.MetricRecord) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Error("failed to roll back batch insert", "error", err)
		}
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO metric_batches (namespace, record_count) VALUES (?, ?)`,
		namespace, len(records))
	if err != nil {
		return 0, fmt.Errorf("failed to insert metric batch: %w", err)
	}

	batchID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read batch id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_records (
			batch_id, seq, metric_name, dimensions, value, unit, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, rec := range records {
		dims, err := json.Marshal(rec.Dimensions)
		if err != nil {
			return 0, fmt.Errorf("failed to encode dimensions: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			batchID,
			i,
			string(rec.MetricName),
			string(dims),
			rec.Value,
			string(rec.Unit),
			rec.Timestamp.UTC().Format(timestampLayout),
		); err != nil {
			return 0, fmt.Errorf("failed to insert metric record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit metric batch: %w", err)
	}

	return batchID, nil
}

// CountRecords returns the number of stored metric records.
func (db *DB) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM metric_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count metric records: %w", err)
	}
	return n, nil
}

// CleanupOldBatches deletes batches received more than olderThanDays ago,
// together with their records.
func (db *DB) CleanupOldBatches(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("retention must not be negative: %d days", olderThanDays)
	}

	query := `DELETE FROM metric_batches WHERE received_at < datetime('now', ?)`
	windowStr := fmt.Sprintf("-%d days", olderThanDays)

	result, err := db.ExecContext(ctx, query, windowStr)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old batches: %w", err)
	}

	return result.RowsAffected()
}
