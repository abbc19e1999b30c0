package metrics

// Metric name constants following Prometheus naming conventions
// Format: mockgps_{component}_{metric}_{unit}

// Replay metrics
const (
	MetricReplayRecordsEmitted = "mockgps_replay_records_emitted_total"
	MetricReplayLinesSkipped   = "mockgps_replay_lines_skipped_total"
	MetricReplaySinkFailures   = "mockgps_replay_sink_failures_total"
	MetricReplayCursorIndex    = "mockgps_replay_cursor_index"
	MetricReplaySessions       = "mockgps_replay_sessions_total"
	MetricReplayActiveSessions = "mockgps_replay_active_sessions"
	MetricReplayEmitDuration   = "mockgps_replay_emit_duration_seconds"
)

// Cursor store metrics
const (
	MetricCursorSavesTotal   = "mockgps_cursor_saves_total"
	MetricCursorSaveDuration = "mockgps_cursor_save_duration_seconds"
)

// Label name constants
const (
	LabelTrack   = "track"
	LabelStatus  = "status"
	LabelBackend = "backend"
)
