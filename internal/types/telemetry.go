package types

// Telemetry metric names for CloudWatch.
const (
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryLatency"
	MetricTickProcessed   = "TickProcessed"
	MetricAPIRequest      = "APIRequest"
	MetricAPILatency      = "APILatency"

	DimChannel  = "Channel"
	DimResult   = "Result"
	DimMethod   = "Method"
	DimEndpoint = "Endpoint"
	DimStatus   = "Status"

	MetricNamespace = "NotesApp"
)
