// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "prosody_caption"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prominence event metrics
	EventsReceived  prometheus.Counter
	EventsDiscarded *prometheus.CounterVec
	BufferSize      prometheus.Gauge

	// Alignment metrics
	Alignments         prometheus.Counter
	WordsFinalized     prometheus.Counter
	InterimUpdates     prometheus.Counter
	NoEvidenceWords    prometheus.Counter
	AlignmentBatchSize prometheus.Histogram

	// Calibration metrics
	VoiceCalibrations      prometheus.Counter
	VoiceCalibrationErrors prometheus.Counter
	NoiseCalibrations      prometheus.Counter
	ThresholdWrites        *prometheus.CounterVec

	// Render metrics
	RenderFrames  prometheus.Counter
	RenderClients prometheus.Gauge
	FallbackTicks prometheus.Counter

	// Recognizer metrics
	RecognizerRestarts prometheus.Counter
	RecognizerErrors   *prometheus.CounterVec

	// Publish metrics
	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec

	// Audio metrics
	AudioChunks prometheus.Counter
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prominence_events_total",
			Help:      "Total prominence events received from the oracle",
		}),
		EventsDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prominence_events_discarded_total",
			Help:      "Prominence events discarded before buffering",
		}, []string{"reason"}),
		BufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_buffer_size",
			Help:      "Number of prominence events currently retained",
		}),

		Alignments: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alignments_total",
			Help:      "Total finalized segments aligned",
		}),
		WordsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "words_finalized_total",
			Help:      "Total words appended to the finalized transcript",
		}),
		InterimUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interim_updates_total",
			Help:      "Total interim word list replacements",
		}),
		NoEvidenceWords: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_evidence_words_total",
			Help:      "Finalized words scored with the no-evidence floor",
		}),
		AlignmentBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alignment_batch_words",
			Help:      "Words per finalized alignment batch",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),

		VoiceCalibrations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_calibrations_total",
			Help:      "Successful voice-range calibrations",
		}),
		VoiceCalibrationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_calibration_errors_total",
			Help:      "Voice calibrations rejected for insufficient samples",
		}),
		NoiseCalibrations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "noise_calibrations_total",
			Help:      "Completed oracle noise-floor calibrations",
		}),
		ThresholdWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threshold_writes_total",
			Help:      "Sensitivity threshold overwrites by source",
		}, []string{"source"}),

		RenderFrames: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_frames_total",
			Help:      "Caption frames broadcast to renderer clients",
		}),
		RenderClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "render_clients",
			Help:      "Connected renderer websocket clients",
		}),
		FallbackTicks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_ticks_total",
			Help:      "Demo words emitted while running degraded",
		}),

		RecognizerRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_restarts_total",
			Help:      "Automatic recognizer restarts after transient errors",
		}),
		RecognizerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_errors_total",
			Help:      "Recognizer errors by class",
		}, []string{"class"}),

		PublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Caption events published to Kafka",
		}, []string{"topic", "event_type"}),
		PublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Kafka publish errors",
		}, []string{"topic", "event_type"}),
		PublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		AudioChunks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_total",
			Help:      "Audio chunks captured and fed to the oracle",
		}),
	}
}

// RecordEvent records a prominence event accepted into the buffer.
func (m *Metrics) RecordEvent(bufferSize int) {
	m.EventsReceived.Inc()
	m.BufferSize.Set(float64(bufferSize))
}

// RecordEventDiscarded records an event dropped before buffering.
func (m *Metrics) RecordEventDiscarded(reason string) {
	m.EventsDiscarded.WithLabelValues(reason).Inc()
}

// RecordAlignment records one finalized segment alignment.
func (m *Metrics) RecordAlignment(words, noEvidence int) {
	m.Alignments.Inc()
	m.WordsFinalized.Add(float64(words))
	m.NoEvidenceWords.Add(float64(noEvidence))
	m.AlignmentBatchSize.Observe(float64(words))
}

// RecordInterim records one interim replacement.
func (m *Metrics) RecordInterim() {
	m.InterimUpdates.Inc()
}

// RecordThresholdWrite records a threshold overwrite by its source.
func (m *Metrics) RecordThresholdWrite(source string) {
	m.ThresholdWrites.WithLabelValues(source).Inc()
}

// RecordPublish records a Kafka publish attempt.
func (m *Metrics) RecordPublish(topic, eventType string, err error, latencySeconds float64) {
	m.PublishTotal.WithLabelValues(topic, eventType).Inc()
	m.PublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.PublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordRecognizerError records a recognizer error by class.
func (m *Metrics) RecordRecognizerError(class string) {
	m.RecognizerErrors.WithLabelValues(class).Inc()
}
