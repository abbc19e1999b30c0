package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// emit durations are dominated by sink latency, which should stay well
// below the pacing delay
var emitBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.2, 0.5}

// ReplayMetrics tracks replay session metrics. A nil *ReplayMetrics is a no-op.
type ReplayMetrics struct {
	recordsEmitted *prometheus.CounterVec
	linesSkipped   *prometheus.CounterVec
	sinkFailures   *prometheus.CounterVec
	cursorIndex    *prometheus.GaugeVec
	sessions       *prometheus.CounterVec
	activeSessions *prometheus.GaugeVec
	emitDuration   *prometheus.HistogramVec
	cursorSaves    *prometheus.CounterVec
	cursorSaveTime *prometheus.HistogramVec
}

// NewReplayMetrics registers replay metrics with the collector
func NewReplayMetrics(collector *Collector) *ReplayMetrics {
	return &ReplayMetrics{
		recordsEmitted: collector.RegisterCounter(
			MetricReplayRecordsEmitted,
			"Total number of coordinate records delivered to the sink",
			[]string{LabelTrack},
		),
		linesSkipped: collector.RegisterCounter(
			MetricReplayLinesSkipped,
			"Total number of malformed or empty track lines skipped",
			[]string{LabelTrack},
		),
		sinkFailures: collector.RegisterCounter(
			MetricReplaySinkFailures,
			"Total number of sink emissions that returned an error or panicked",
			[]string{LabelTrack},
		),
		cursorIndex: collector.RegisterGauge(
			MetricReplayCursorIndex,
			"Index of the track line currently being replayed",
			[]string{LabelTrack},
		),
		sessions: collector.RegisterCounter(
			MetricReplaySessions,
			"Total number of finished replay sessions by terminal status",
			[]string{LabelTrack, LabelStatus},
		),
		activeSessions: collector.RegisterGauge(
			MetricReplayActiveSessions,
			"Number of running replay sessions",
			[]string{LabelTrack},
		),
		emitDuration: collector.RegisterHistogram(
			MetricReplayEmitDuration,
			"Duration of sink emissions in seconds",
			[]string{LabelTrack},
			emitBuckets,
		),
		cursorSaves: collector.RegisterCounter(
			MetricCursorSavesTotal,
			"Total number of cursor persistence attempts",
			[]string{LabelBackend, LabelStatus},
		),
		cursorSaveTime: collector.RegisterHistogram(
			MetricCursorSaveDuration,
			"Duration of cursor persistence in seconds",
			[]string{LabelBackend},
			nil,
		),
	}
}

// RecordEmit records a sink emission
func (m *ReplayMetrics) RecordEmit(track string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.emitDuration.WithLabelValues(track).Observe(duration.Seconds())
	if failed {
		m.sinkFailures.WithLabelValues(track).Inc()
		return
	}
	m.recordsEmitted.WithLabelValues(track).Inc()
}

// RecordSkip records a skipped line
func (m *ReplayMetrics) RecordSkip(track string) {
	if m == nil {
		return
	}
	m.linesSkipped.WithLabelValues(track).Inc()
}

// UpdateCursor sets the cursor gauge
func (m *ReplayMetrics) UpdateCursor(track string, index int) {
	if m == nil {
		return
	}
	m.cursorIndex.WithLabelValues(track).Set(float64(index))
}

// SessionStarted increments the active session gauge
func (m *ReplayMetrics) SessionStarted(track string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(track).Inc()
}

// SessionFinished records a terminal session status
func (m *ReplayMetrics) SessionFinished(track, status string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(track).Dec()
	m.sessions.WithLabelValues(track, status).Inc()
}

// RecordCursorSave records a cursor persistence attempt
func (m *ReplayMetrics) RecordCursorSave(backend string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.cursorSaves.WithLabelValues(backend, status).Inc()
	m.cursorSaveTime.WithLabelValues(backend).Observe(duration.Seconds())
}
