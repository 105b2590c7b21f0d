package core

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"alertsystem/internal/types"
)

// CloudWatchClient abstracts PutMetricData for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
)

// DeliveryMetrics receives one call per invocation stage. Implementations
// must not fail the invocation; errors are logged and dropped.
type DeliveryMetrics interface {
	RecordClassified(ctx context.Context, kind string)
	RecordOutcomes(ctx context.Context, outcomes []types.DeliveryOutcome)
	RecordEscalation(ctx context.Context, reason string)
}

// NopMetrics is used when METRICS_ENABLED is false.
type NopMetrics struct{}

func (NopMetrics) RecordClassified(context.Context, string)                {}
func (NopMetrics) RecordOutcomes(context.Context, []types.DeliveryOutcome) {}
func (NopMetrics) RecordEscalation(context.Context, string)                {}

// maxDatumsPerCall is the PutMetricData request limit.
const maxDatumsPerCall = 1000

// CloudWatchDeliveryMetrics publishes delivery metrics:
//   - MessageClassified: Dims {MessageKind}
//   - DeliveryAttempt: Dims {Channel, Result}, one datum per channel type and result
//   - DeliveryLatency: Dims {Channel}, one value per outcome
//   - SelfMonitoringEscalation: Dims {Reason}
type CloudWatchDeliveryMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

var _ DeliveryMetrics = (*CloudWatchDeliveryMetrics)(nil)

// NewCloudWatchDeliveryMetrics publishes to namespace, or to
// types.MetricNamespace when namespace is empty.
func NewCloudWatchDeliveryMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchDeliveryMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchDeliveryMetrics{client: client, namespace: namespace, logger: logger}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func (m *CloudWatchDeliveryMetrics) RecordClassified(ctx context.Context, kind string) {
	m.put(ctx, []cwtypes.MetricDatum{{
		MetricName: aws.String(types.MetricMessageClassified),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(types.DimMessageKind, kind)},
	}})
}

func (m *CloudWatchDeliveryMetrics) RecordEscalation(ctx context.Context, reason string) {
	m.put(ctx, []cwtypes.MetricDatum{{
		MetricName: aws.String(types.MetricEscalation),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(types.DimReason, reason)},
	}})
}

// RecordOutcomes aggregates attempts per (channel type, result) so that a
// wide fan-out costs one API call.
func (m *CloudWatchDeliveryMetrics) RecordOutcomes(ctx context.Context, outcomes []types.DeliveryOutcome) {
	if len(outcomes) == 0 {
		return
	}

	type key struct{ channel, result string }
	counts := make(map[key]int)
	latencies := make(map[string][]float64)
	for _, o := range outcomes {
		result := MetricSuccess
		if !o.Succeeded() {
			result = MetricFailed
		}
		counts[key{o.ChannelType, string(result)}]++
		latencies[o.ChannelType] = append(latencies[o.ChannelType], float64(o.Duration.Milliseconds()))
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return keys[i].result < keys[j].result
	})

	data := make([]cwtypes.MetricDatum, 0, len(keys)+len(latencies))
	for _, k := range keys {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricDeliveryAttempt),
			Value:      aws.Float64(float64(counts[k])),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{dim(types.DimChannel, k.channel), dim(types.DimResult, k.result)},
		})
	}

	channels := make([]string, 0, len(latencies))
	for ch := range latencies {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	for _, ch := range channels {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricDeliveryLatency),
			Values:     latencies[ch],
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: []cwtypes.Dimension{dim(types.DimChannel, ch)},
		})
	}

	m.put(ctx, data)
}

func (m *CloudWatchDeliveryMetrics) put(ctx context.Context, data []cwtypes.MetricDatum) {
	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			m.logger.Error("failed to publish delivery metrics",
				"error", err.Error(),
				"namespace", m.namespace,
				"datums", end-start,
			)
		}
	}
}
