package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics of the translation server. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Connection metrics
	ActiveConnections prometheus.Gauge
	ConnectionsTotal  prometheus.Counter

	// Segmentation metrics
	WindowsProcessed     prometheus.Counter
	UtterancesDetected   prometheus.Counter
	UtteranceDuration    prometheus.Histogram
	SegmentationAnomaly  *prometheus.CounterVec
	ClassifierErrors     prometheus.Counter
	SilenceConfigChanges *prometheus.CounterVec

	// Pipeline metrics
	QueueDepth prometheus.Gauge

	// Translation metrics
	TranslationRequests prometheus.Counter
	TranslationFailures prometheus.Counter
	TranslationDuration prometheus.Histogram
}

// NewMetrics creates all metrics and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "jurubahasa_active_connections",
			Help: "Current number of open translation websocket connections",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "jurubahasa_connections_total",
			Help: "Total number of accepted translation websocket connections",
		}),

		WindowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "jurubahasa_vad_windows_processed_total",
			Help: "Total number of audio windows passed to the voice activity classifier",
		}),
		UtterancesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "jurubahasa_utterances_detected_total",
			Help: "Total number of complete utterances produced by segmentation",
		}),
		UtteranceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "jurubahasa_utterance_duration_seconds",
			Help:    "Duration of detected utterances including padding",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		SegmentationAnomaly: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jurubahasa_segmentation_anomalies_total",
			Help: "Total number of unexpected classifier events by kind",
		}, []string{"kind"}),
		ClassifierErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "jurubahasa_vad_errors_total",
			Help: "Total number of classifier invocation errors",
		}),
		SilenceConfigChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jurubahasa_silence_config_changes_total",
			Help: "Total number of silence duration change requests by result",
		}, []string{"result"}),

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "jurubahasa_utterance_queue_depth",
			Help: "Utterances waiting for translation across all connections",
		}),

		TranslationRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "jurubahasa_translation_requests_total",
			Help: "Total number of translation engine invocations",
		}),
		TranslationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "jurubahasa_translation_failures_total",
			Help: "Total number of failed translation engine invocations",
		}),
		TranslationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "jurubahasa_translation_duration_seconds",
			Help:    "Time spent translating one utterance",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

// ConnectionOpened records an accepted connection
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsTotal.Inc()
	m.ActiveConnections.Inc()
}

// ConnectionClosed records a finished connection
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

// RecordWindow records one classified window
func (m *Metrics) RecordWindow() {
	if m == nil {
		return
	}
	m.WindowsProcessed.Inc()
}

// RecordClassifierError records a failed classifier call
func (m *Metrics) RecordClassifierError() {
	if m == nil {
		return
	}
	m.ClassifierErrors.Inc()
}

// RecordUtterance records a detected utterance
func (m *Metrics) RecordUtterance(durationSeconds float64) {
	if m == nil {
		return
	}
	m.UtterancesDetected.Inc()
	m.UtteranceDuration.Observe(durationSeconds)
}

// RecordAnomaly records a classifier event that made no sense in the
// current segmentation state
func (m *Metrics) RecordAnomaly(kind string) {
	if m == nil {
		return
	}
	m.SegmentationAnomaly.WithLabelValues(kind).Inc()
}

// RecordSilenceChange records a silence duration change request
func (m *Metrics) RecordSilenceChange(accepted bool) {
	if m == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	m.SilenceConfigChanges.WithLabelValues(result).Inc()
}

// QueueChanged adds delta to the queue depth gauge
func (m *Metrics) QueueChanged(delta int) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(float64(delta))
}

// RecordTranslation records a translation engine invocation
func (m *Metrics) RecordTranslation(durationSeconds float64, err error) {
	if m == nil {
		return
	}
	m.TranslationRequests.Inc()
	m.TranslationDuration.Observe(durationSeconds)
	if err != nil {
		m.TranslationFailures.Inc()
	}
}
