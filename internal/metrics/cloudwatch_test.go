package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rainparade/internal/types"
)

// mockCloudWatchClient records PutMetricData calls for verification.
type mockCloudWatchClient struct {
	calls     []*cloudwatch.PutMetricDataInput
	returnErr error
}

func (m *mockCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func testCollector(cw CloudWatchClient) *CloudWatchCollector {
	return NewCloudWatchCollector(cw, "Rainparade/Test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func dimensionValue(datum cwtypes.MetricDatum, name string) string {
	for _, d := range datum.Dimensions {
		if *d.Name == name {
			return *d.Value
		}
	}
	return ""
}

func TestRecordRequest(t *testing.T) {
	cw := &mockCloudWatchClient{}
	collector := testCollector(cw)

	collector.RecordRequest("POST", "/v1/climate/predict", "200", 120*time.Millisecond)

	require.Len(t, cw.calls, 1)
	input := cw.calls[0]
	assert.Equal(t, "Rainparade/Test", *input.Namespace)
	require.Len(t, input.MetricData, 2)

	count := input.MetricData[0]
	assert.Equal(t, metricRequestCount, *count.MetricName)
	assert.Equal(t, 1.0, *count.Value)
	assert.Equal(t, cwtypes.StandardUnitCount, count.Unit)
	assert.Equal(t, "POST", dimensionValue(count, dimMethod))
	assert.Equal(t, "/v1/climate/predict", dimensionValue(count, dimEndpoint))
	assert.Equal(t, "200", dimensionValue(count, dimStatus))

	latency := input.MetricData[1]
	assert.Equal(t, metricRequestLatency, *latency.MetricName)
	assert.Equal(t, 120.0, *latency.Value)
	assert.Equal(t, cwtypes.StandardUnitMilliseconds, latency.Unit)
}

func TestRecordForecastServed(t *testing.T) {
	cw := &mockCloudWatchClient{}
	collector := testCollector(cw)

	collector.RecordForecastServed(types.SourceSimulated, 7)

	require.Len(t, cw.calls, 1)
	require.Len(t, cw.calls[0].MetricData, 1)

	datum := cw.calls[0].MetricData[0]
	assert.Equal(t, metricForecastServed, *datum.MetricName)
	assert.Equal(t, 7.0, *datum.Value)
	assert.Equal(t, string(types.SourceSimulated), dimensionValue(datum, dimSource))
}

func TestPublishErrorIsSwallowed(t *testing.T) {
	cw := &mockCloudWatchClient{returnErr: errors.New("throttled")}
	collector := testCollector(cw)

	// Must not panic or propagate; failures are logged only.
	collector.RecordRequest("GET", "/health", "200", time.Millisecond)
	assert.Len(t, cw.calls, 1)
}
