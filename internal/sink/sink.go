// Package sink provides the destinations metric records are published to:
// CloudWatch in production, SQLite or the terminal for local runs.
package sink

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/j-veylop/claude-code-metrics/internal/models"
)

// MaxRecordsPerCall is the CloudWatch PutMetricData limit on metric data per request.
const MaxRecordsPerCall = 1000

// ErrBatchTooLarge is returned when a caller passes more than MaxRecordsPerCall records.
var ErrBatchTooLarge = errors.New("batch exceeds 1000 metric records")

// Call is one recorded PutMetricData invocation.
type Call struct {
	Namespace string
	Records   []models.MetricRecord
}

// Recorder is an in-memory sink that keeps every call. An optional Err is
// returned from each call after it has been recorded.
type Recorder struct {
	Err   error
	calls []Call
	mu    sync.Mutex
}

// PutMetricData records the call.
func (r *Recorder) PutMetricData(_ context.Context, namespace string, records []models.MetricRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Namespace: namespace, Records: slices.Clone(records)})
	return r.Err
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Records returns every recorded record across all calls, in call order.
func (r *Recorder) Records() []models.MetricRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.MetricRecord
	for _, c := range r.calls {
		out = append(out, c.Records...)
	}
	return out
}

func checkBatch(records []models.MetricRecord) error {
	if len(records) > MaxRecordsPerCall {
		return ErrBatchTooLarge
	}
	return nil
}
