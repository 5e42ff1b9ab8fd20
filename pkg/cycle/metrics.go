package cycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vision_replica"

// Metrics holds the cycle's Prometheus collectors.
type Metrics struct {
	CyclesTotal    *prometheus.CounterVec
	CyclesActive   prometheus.Gauge
	StageDuration  *prometheus.HistogramVec
	UploadBytes    prometheus.Histogram
	ResponseBytes  prometheus.Histogram
	UploadLatency  prometheus.Histogram
	CameraSwitches *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Finished capture cycles by outcome",
		}, []string{"outcome"}),
		CyclesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cycles_active",
			Help:      "1 while a capture cycle is in flight",
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each cycle state",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),
		UploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_body_bytes",
			Help:      "Size of uploaded form bodies",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
		ResponseBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_body_bytes",
			Help:      "Size of backend replies",
			Buckets:   prometheus.ExponentialBuckets(4<<10, 2, 10),
		}),
		UploadLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_latency_seconds",
			Help:      "Round trip time of the upload request",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 60},
		}),
		CameraSwitches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_switches_total",
			Help:      "Camera switch attempts by result",
		}, []string{"result"}),
	}
}
