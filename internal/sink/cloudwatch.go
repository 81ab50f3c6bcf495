package sink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/j-veylop/claude-code-metrics/internal/models"
)

// PutMetricDataAPI is the subset of the CloudWatch client used by the sink.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch publishes records with PutMetricData. Retries are left to the
// SDK's configured retryer.
type CloudWatch struct {
	client PutMetricDataAPI
}

// NewCloudWatch wraps an existing CloudWatch client.
func NewCloudWatch(client PutMetricDataAPI) *CloudWatch {
	return &CloudWatch{client: client}
}

// NewCloudWatchFromEnv builds a client from the default AWS credential chain.
// An empty region defers to AWS_REGION and the shared config.
func NewCloudWatchFromEnv(ctx context.Context, region string) (*CloudWatch, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewCloudWatch(cloudwatch.NewFromConfig(cfg)), nil
}

// PutMetricData sends records as a single PutMetricData request.
func (c *CloudWatch) PutMetricData(ctx context.Context, namespace string, records []models.MetricRecord) error {
	if err := checkBatch(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: toMetricData(records),
	}
	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("failed to put metric data to %s: %w", namespace, err)
	}
	return nil
}

func toMetricData(records []models.MetricRecord) []types.MetricDatum {
	data := make([]types.MetricDatum, 0, len(records))
	for _, rec := range records {
		dims := make([]types.Dimension, 0, len(rec.Dimensions))
		for _, d := range rec.Dimensions {
			dims = append(dims, types.Dimension{
				Name:  aws.String(d.Name),
				Value: aws.String(d.Value),
			})
		}

		data = append(data, types.MetricDatum{
			MetricName: aws.String(string(rec.MetricName)),
			Dimensions: dims,
			Value:      aws.Float64(rec.Value),
			Unit:       standardUnit(rec.Unit),
			Timestamp:  aws.Time(rec.Timestamp),
		})
	}
	return data
}

func standardUnit(u models.Unit) types.StandardUnit {
	switch u {
	case models.UnitCount:
		return types.StandardUnitCount
	default:
		return types.StandardUnitNone
	}
}
