package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"notesapp/internal/types"
)

// CloudWatchClient is the PutMetricData slice of *cloudwatch.Client.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchNotificationMetrics publishes delivery metrics synchronously:
//
//	DeliveryAttempt  {Channel, Result}  one per dispatch outcome
//	DeliveryLatency  {Channel}          time spent in Channel.Send, ms
//	TickProcessed    {Result}           delivered and failed counts per tick
//
// A failed publish is logged; delivery never fails because of metrics.
type CloudWatchNotificationMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

var _ NotificationMetrics = (*CloudWatchNotificationMetrics)(nil)

// NewCloudWatchNotificationMetrics publishes to namespace, or to
// types.MetricNamespace when namespace is empty.
func NewCloudWatchNotificationMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchNotificationMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchNotificationMetrics{client: client, namespace: namespace, logger: logger}
}

func (m *CloudWatchNotificationMetrics) RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult) {
	m.put(ctx, "delivery", datum(types.MetricDeliveryAttempt, 1, cwtypes.StandardUnitCount,
		types.DimChannel, string(channel),
		types.DimResult, string(result),
	))
}

func (m *CloudWatchNotificationMetrics) RecordLatency(ctx context.Context, channel types.ChannelType, d time.Duration) {
	m.put(ctx, "latency", datum(types.MetricDeliveryLatency, float64(d.Milliseconds()), cwtypes.StandardUnitMilliseconds,
		types.DimChannel, string(channel),
	))
}

// RecordTick sends both tick counts in one request.
func (m *CloudWatchNotificationMetrics) RecordTick(ctx context.Context, delivered, failed int) {
	m.put(ctx, "tick",
		datum(types.MetricTickProcessed, float64(delivered), cwtypes.StandardUnitCount, types.DimResult, string(MetricSuccess)),
		datum(types.MetricTickProcessed, float64(failed), cwtypes.StandardUnitCount, types.DimResult, string(MetricFailed)),
	)
}

func (m *CloudWatchNotificationMetrics) put(ctx context.Context, kind string, data ...cwtypes.MetricDatum) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.Error("failed to publish metric", "metric", kind, "error", err.Error())
	}
}

// datum builds a MetricDatum; dims alternate name, value.
func datum(name string, value float64, unit cwtypes.StandardUnit, dims ...string) cwtypes.MetricDatum {
	d := cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
	}
	for i := 0; i+1 < len(dims); i += 2 {
		d.Dimensions = append(d.Dimensions, cwtypes.Dimension{
			Name:  aws.String(dims[i]),
			Value: aws.String(dims[i+1]),
		})
	}
	return d
}
