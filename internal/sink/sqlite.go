package sink

import (
	"context"
	"fmt"

	"github.com/j-veylop/claude-code-metrics/internal/db"
	"github.com/j-veylop/claude-code-metrics/internal/models"
)

// SQLite writes each batch to the local store. It is meant for running the
// bridge without AWS credentials.
type SQLite struct {
	store *db.DB
}

// NewSQLite creates a sink backed by store.
func NewSQLite(store *db.DB) *SQLite {
	return &SQLite{store: store}
}

// PutMetricData stores records as one batch.
func (s *SQLite) PutMetricData(ctx context.Context, namespace string, records []models.MetricRecord) error {
	if err := checkBatch(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if _, err := s.store.InsertBatch(ctx, namespace, records); err != nil {
		return fmt.Errorf("failed to store metric batch: %w", err)
	}
	return nil
}
