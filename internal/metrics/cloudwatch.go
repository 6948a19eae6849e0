// Package metrics emits service telemetry to AWS CloudWatch.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"rainparade/internal/core"
	"rainparade/internal/types"
)

// Metric and dimension names.
const (
	metricRequestCount   = "RequestCount"
	metricRequestLatency = "RequestLatency"
	metricForecastServed = "ForecastServed"

	dimMethod   = "Method"
	dimEndpoint = "Endpoint"
	dimStatus   = "Status"
	dimSource   = "Source"
)

// putTimeout bounds each PutMetricData call so a slow CloudWatch endpoint
// never backs up into request handling.
const putTimeout = 5 * time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchCollector publishes API telemetry to a CloudWatch namespace.
//
// Metrics emitted:
//   - RequestCount:   Dims {Method, Endpoint, Status} -- one per request
//   - RequestLatency: Dims {Method, Endpoint} -- handler latency in ms
//   - ForecastServed: Dims {Source} -- provenance of served forecasts
type CloudWatchCollector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// Compile-time assertion that CloudWatchCollector satisfies the chassis
// collector interface.
var _ core.MetricsCollector = (*CloudWatchCollector)(nil)

// NewCloudWatchCollector creates a collector publishing to the given
// namespace.
func NewCloudWatchCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchCollector{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRequest emits request count and latency metrics. The middleware
// invokes this after the response is written, so the bounded PutMetricData
// call never delays the client.
func (m *CloudWatchCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(metricRequestCount),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String(dimMethod), Value: aws.String(method)},
					{Name: aws.String(dimEndpoint), Value: aws.String(endpoint)},
					{Name: aws.String(dimStatus), Value: aws.String(status)},
				},
			},
			{
				MetricName: aws.String(metricRequestLatency),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String(dimMethod), Value: aws.String(method)},
					{Name: aws.String(dimEndpoint), Value: aws.String(endpoint)},
				},
			},
		},
	}

	m.put(input, "request")
}

// RecordForecastServed emits a count metric dimensioned by forecast
// provenance, so dashboards can track how much traffic is served from the
// seasonal fallback versus the trained model.
func (m *CloudWatchCollector) RecordForecastServed(source types.ForecastSource, days int) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(metricForecastServed),
				Value:      aws.Float64(float64(days)),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String(dimSource), Value: aws.String(string(source))},
				},
			},
		},
	}

	m.put(input, "forecast source")
}

func (m *CloudWatchCollector) put(input *cloudwatch.PutMetricDataInput, kind string) {
	ctx, cancel := context.WithTimeout(context.Background(), putTimeout)
	defer cancel()

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to publish metric",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
