// Package translator turns OTLP/JSON metric exports from Claude Code into
// CloudWatch metric records and hands them to a sink in batches.
package translator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/j-veylop/claude-code-metrics/internal/logger"
	"github.com/j-veylop/claude-code-metrics/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OTLP metric names that are republished. Everything else is ignored.
const (
	TokenUsageMetric = "claude_code.token.usage"
	CostUsageMetric  = "claude_code.cost.usage"
)

const (
	// DefaultNamespace is the CloudWatch namespace records are published under.
	DefaultNamespace = "AgenticToolMetrics"

	// MaxBatchSize is the largest number of records passed to a single sink call.
	MaxBatchSize = 1000

	invalidJSONMessage = "Invalid JSON"
)

// ErrInvalidPayload classifies request bodies that cannot be decoded.
var ErrInvalidPayload = errors.New("invalid payload")

// Sink receives batches of metric records. Implementations must not retain
// the records slice after returning.
type Sink interface {
	PutMetricData(ctx context.Context, namespace string, records []models.MetricRecord) error
}

// Config holds configuration for a Translator.
type Config struct {
	Now        func() time.Time
	Namespace  string
	Dimensions DimensionPolicy
	BatchSize  int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Now:        time.Now,
		Namespace:  DefaultNamespace,
		Dimensions: DefaultDimensionPolicy(),
		BatchSize:  MaxBatchSize,
	}
}

// Response is the HTTP-style result of a translation.
type Response struct {
	Body       string
	StatusCode int
}

// Translator converts metric payloads into records. It holds no mutable state
// and is safe for concurrent use.
type Translator struct {
	sink   Sink
	config Config
}

// New creates a Translator that publishes to sink.
func New(sink Sink, config Config) *Translator {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}
	if config.BatchSize <= 0 || config.BatchSize > MaxBatchSize {
		config.BatchSize = MaxBatchSize
	}
	return &Translator{sink: sink, config: config}
}

// Namespace returns the namespace records are published under.
func (t *Translator) Namespace() string {
	return t.config.Namespace
}

// Translate decodes body, publishes every accepted record and reports how many
// were accepted. Undecodable bodies yield a 400 response and a nil error. A
// sink failure stops publishing and is returned alongside the 200 response so
// the caller can apply its own failure policy.
func (t *Translator) Translate(ctx context.Context, body []byte, isBase64 bool) (Response, error) {
	records, err := t.Records(body, isBase64)
	if err != nil {
		logger.Warn("rejected metrics payload", "error", err)
		return errorResponse(http.StatusBadRequest, invalidJSONMessage), nil
	}

	resp := acceptedResponse(len(records))
	if err := t.publish(ctx, records); err != nil {
		return resp, err
	}
	return resp, nil
}

// Records decodes body and returns the accepted records in payload order
// without publishing them.
func (t *Translator) Records(body []byte, isBase64 bool) ([]models.MetricRecord, error) {
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode base64 body: %w", ErrInvalidPayload, err)
		}
		body = decoded
	}

	logger.Debug("received metrics payload", "bytes", len(body))

	payload, err := models.ParsePayload(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return t.collect(payload), nil
}

// collect walks resource → scope → metric → data point in input order.
func (t *Translator) collect(payload *models.Payload) []models.MetricRecord {
	var records []models.MetricRecord

	for _, rm := range payload.ResourceMetrics {
		for _, sm := range rm.ScopeMetrics {
			for _, metric := range sm.Metrics {
				var build func(models.Resource, models.DataPoint) (models.MetricRecord, bool)
				switch metric.Name {
				case TokenUsageMetric:
					build = t.tokenUsageRecord
				case CostUsageMetric:
					build = t.costUsageRecord
				default:
					continue
				}

				for _, dp := range metric.Sum.DataPoints {
					if rec, ok := build(rm.Resource, dp); ok {
						records = append(records, rec)
					}
				}
			}
		}
	}

	return records
}

func (t *Translator) tokenUsageRecord(res models.Resource, dp models.DataPoint) (models.MetricRecord, bool) {
	tokenType := dp.Attributes.Get(attrTokenType)
	if tokenType == "" || !dp.Value.IsPositive() {
		return models.MetricRecord{}, false
	}

	return models.MetricRecord{
		MetricName: models.MetricTokenUsage,
		Dimensions: t.dimensions(res, dp, models.Dimension{Name: DimensionTokenType, Value: tokenType}),
		Value:      dp.Value.Float64(),
		Unit:       models.UnitCount,
		Timestamp:  t.timestamp(dp),
	}, true
}

func (t *Translator) costUsageRecord(res models.Resource, dp models.DataPoint) (models.MetricRecord, bool) {
	if !dp.Value.IsPositive() {
		return models.MetricRecord{}, false
	}

	return models.MetricRecord{
		MetricName: models.MetricCostUsage,
		Dimensions: t.dimensions(res, dp),
		Value:      dp.Value.Float64(),
		Unit:       models.UnitNone,
		Timestamp:  t.timestamp(dp),
	}, true
}

func (t *Translator) timestamp(dp models.DataPoint) time.Time {
	if ts, ok := dp.TimeUnixNano.Time(); ok {
		return ts
	}
	return t.config.Now().UTC()
}

// publish submits records in consecutive batches, stopping at the first
// sink error.
func (t *Translator) publish(ctx context.Context, records []models.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	for _, rec := range records {
		logger.Debug("publishing metric",
			"metric", rec.MetricName,
			"value", rec.Value,
			"dimensions", rec.Dimensions,
			"timestamp", rec.Timestamp)
	}

	batches := 0
	for batch := range slices.Chunk(records, t.config.BatchSize) {
		if err := t.sink.PutMetricData(ctx, t.config.Namespace, batch); err != nil {
			return fmt.Errorf("failed to publish batch %d (%d records): %w", batches+1, len(batch), err)
		}
		batches++
	}

	logger.Info("published metric data points",
		"namespace", t.config.Namespace,
		"records", len(records),
		"batches", batches)
	return nil
}

func acceptedResponse(n int) Response {
	body, _ := json.Marshal(map[string]int{"accepted": n})
	return Response{StatusCode: http.StatusOK, Body: string(body)}
}

func errorResponse(status int, message string) Response {
	body, _ := json.Marshal(map[string]string{"error": message})
	return Response{StatusCode: status, Body: string(body)}
}
