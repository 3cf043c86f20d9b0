package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"notesapp/internal/types"
)

const (
	defaultMetricFlushInterval = 30 * time.Second
	defaultMetricBatchSize     = 100
	metricBufferSize           = 1024
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRequestMetrics implements MetricsCollector by batching request
// metrics and publishing them from a single goroutine, so request handling
// never waits on CloudWatch.
//
// Metrics emitted:
//   - APIRequest: Dims {Method, Endpoint, Status}
//   - APILatency: Dims {Method, Endpoint}, milliseconds
//
// When the buffer is full, data points are dropped.
type CloudWatchRequestMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
	queue     chan cwtypes.MetricDatum

	FlushInterval time.Duration
	BatchSize     int
}

var _ MetricsCollector = (*CloudWatchRequestMetrics)(nil)

// NewCloudWatchRequestMetrics creates a collector publishing to namespace.
// Run must be started for anything to be published.
func NewCloudWatchRequestMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchRequestMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = types.DiscardLogger()
	}
	return &CloudWatchRequestMetrics{
		client:        client,
		namespace:     namespace,
		logger:        logger,
		queue:         make(chan cwtypes.MetricDatum, metricBufferSize),
		FlushInterval: defaultMetricFlushInterval,
		BatchSize:     defaultMetricBatchSize,
	}
}

// RecordRequest enqueues the count and latency data points for one request.
func (m *CloudWatchRequestMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	now := time.Now()
	m.enqueue(cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAPIRequest),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  aws.Time(now),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimMethod), Value: aws.String(method)},
			{Name: aws.String(types.DimEndpoint), Value: aws.String(endpoint)},
			{Name: aws.String(types.DimStatus), Value: aws.String(status)},
		},
	})
	m.enqueue(cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAPILatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Timestamp:  aws.Time(now),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimMethod), Value: aws.String(method)},
			{Name: aws.String(types.DimEndpoint), Value: aws.String(endpoint)},
		},
	})
}

func (m *CloudWatchRequestMetrics) enqueue(d cwtypes.MetricDatum) {
	select {
	case m.queue <- d:
	default:
	}
}

// Run publishes queued data points every FlushInterval or whenever a full
// batch is ready. On ctx cancellation it flushes what is left and returns nil.
func (m *CloudWatchRequestMetrics) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.FlushInterval)
	defer ticker.Stop()

	batch := make([]cwtypes.MetricDatum, 0, m.BatchSize)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case d := <-m.queue:
					batch = append(batch, d)
					if len(batch) >= m.BatchSize {
						m.flush(context.WithoutCancel(ctx), batch)
						batch = batch[:0]
					}
				default:
					m.flush(context.WithoutCancel(ctx), batch)
					return nil
				}
			}
		case d := <-m.queue:
			batch = append(batch, d)
			if len(batch) >= m.BatchSize {
				m.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			m.flush(ctx, batch)
			batch = batch[:0]
		}
	}
}

func (m *CloudWatchRequestMetrics) flush(ctx context.Context, batch []cwtypes.MetricDatum) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: append([]cwtypes.MetricDatum(nil), batch...),
	})
	if err != nil {
		m.logger.Error("failed to publish request metrics",
			"error", err.Error(),
			"datapoints", len(batch),
		)
	}
}
