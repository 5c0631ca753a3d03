package observe

import (
	"context"

	"github.com/sonaptic/earshot/pkg/classify"
)

// MetricsListener implements [classify.Listener] by recording every
// delivery into a [Metrics] instance. Chain it in front of the consumer
// listener with classify.Listeners so results feed both the application and
// the telemetry pipeline.
type MetricsListener struct {
	m *Metrics
}

// NewMetricsListener creates a MetricsListener over m. When m is nil the
// package default instance is used.
func NewMetricsListener(m *Metrics) *MetricsListener {
	if m == nil {
		m = DefaultMetrics()
	}
	return &MetricsListener{m: m}
}

// OnResult records the inference latency and top-label counter.
func (l *MetricsListener) OnResult(bundle classify.ResultBundle) {
	top := ""
	if len(bundle.Categories) > 0 {
		top = bundle.Categories[0].Label
	}
	l.m.RecordResult(context.Background(), top, bundle.InferenceTime.Seconds())
}

// OnError records a failure.
func (l *MetricsListener) OnError(error) {
	l.m.RecordError(context.Background())
}

// Ensure MetricsListener implements classify.Listener at compile time.
var _ classify.Listener = (*MetricsListener)(nil)
