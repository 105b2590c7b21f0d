package types

// Telemetry metric names for CloudWatch.
const (
	// Metric Names
	MetricDeliveryAttempt   = "DeliveryAttempt"
	MetricDeliveryLatency   = "DeliveryLatency"
	MetricMessageClassified = "MessageClassified"
	MetricEscalation        = "SelfMonitoringEscalation"

	// Dimension Keys
	DimChannel     = "Channel"
	DimResult      = "Result"
	DimMessageKind = "MessageKind"
	DimReason      = "Reason"

	// Default namespace, overridable through METRIC_NAMESPACE.
	MetricNamespace = "AlertSystem"
)
