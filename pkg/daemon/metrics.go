package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wqlog/wqlog/pkg/sheets"
	"github.com/wqlog/wqlog/pkg/types"
)

const metricsNamespace = "wqlog"

// Metrics exposes loop activity to Prometheus. A nil *Metrics is a no-op.
type Metrics struct {
	cycles       *prometheus.CounterVec
	readings     *prometheus.GaugeVec
	lastDelivery prometheus.Gauge
	duration     prometheus.Histogram
}

// NewMetrics registers the loop metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_total",
			Help:      "Acquisition cycles by outcome.",
		}, []string{"outcome"}),
		readings: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "reading",
			Help:      "Latest calibrated reading per sensor.",
		}, []string{"sensor"}),
		lastDelivery: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_delivery_timestamp_seconds",
			Help:      "Unix time of the last delivered row.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent sampling and delivering one row.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

func (m *Metrics) observeRow(row sheets.MeasurementRow) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues("temperature").Set(row.Temperature)
	m.readings.WithLabelValues("depth").Set(row.Depth)
	m.readings.WithLabelValues("ph").Set(row.PH)
}

func (m *Metrics) observeCycle(res types.CycleResult) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(string(res.Outcome)).Inc()
	m.duration.Observe(res.Duration().Seconds())
	if res.Outcome == types.OutcomeDelivered {
		m.lastDelivery.Set(float64(res.FinishedAt.Unix()))
	}
}
