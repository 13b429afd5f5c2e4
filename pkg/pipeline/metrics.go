package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-echosight/pkg/spatial"
)

// Metrics are the pipeline's prometheus collectors.
type Metrics struct {
	frames         *prometheus.CounterVec
	cues           *prometheus.CounterVec
	detectorErrors prometheus.Counter
	latency        prometheus.Histogram
	candidates     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil registry leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "echosight",
			Name:      "frames_total",
			Help:      "Frames processed, by where processing stopped.",
		}, []string{"outcome"}),
		cues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "echosight",
			Name:      "feedback_cues_total",
			Help:      "Haptic and tone cues fired, by proximity tier.",
		}, []string{"proximity"}),
		detectorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "echosight",
			Name:      "detector_errors_total",
			Help:      "Detector calls that failed and were treated as empty frames.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "echosight",
			Name:      "frame_duration_seconds",
			Help:      "Time to process one frame, detection included.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.4, 0.8, 1.6},
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "echosight",
			Name:      "frame_candidates",
			Help:      "Raw detections per analyzed frame.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.frames, m.cues, m.detectorErrors, m.latency, m.candidates)
	}
	return m
}

func (m *Metrics) observeFrame(o Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(o.String()).Inc()
	m.latency.Observe(d.Seconds())
}

func (m *Metrics) observeCue(p spatial.Proximity) {
	if m == nil {
		return
	}
	m.cues.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) observeCandidates(n int) {
	if m == nil {
		return
	}
	m.candidates.Observe(float64(n))
}

func (m *Metrics) detectorError() {
	if m == nil {
		return
	}
	m.detectorErrors.Inc()
}
