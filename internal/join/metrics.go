package join

import (
	"go.opentelemetry.io/otel/metric"
)

type engineMetrics struct {
	recomputes metric.Int64Counter
	publishes  metric.Int64Counter
	cancelled  metric.Int64Counter
	duration   metric.Float64ValueRecorder
}

func newEngineMetrics(meter metric.Meter) engineMetrics {
	must := metric.Must(meter)

	return engineMetrics{
		recomputes: must.NewInt64Counter(
			"join/recompute_count",
			metric.WithDescription("Count of started join recomputations"),
		),
		publishes: must.NewInt64Counter(
			"join/publish_count",
			metric.WithDescription("Count of published join results"),
		),
		cancelled: must.NewInt64Counter(
			"join/cancelled_count",
			metric.WithDescription("Count of cancelled join engines"),
		),
		duration: must.NewFloat64ValueRecorder(
			"join/recompute_duration_ms",
			metric.WithDescription("Duration of published join recomputations"),
		),
	}
}
