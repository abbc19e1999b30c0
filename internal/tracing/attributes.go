package tracing

// Span attribute keys
const (
	AttrTrack      = "mockgps.track"
	AttrSessionID  = "mockgps.session.id"
	AttrStartIndex = "mockgps.session.start_index"
	AttrState      = "mockgps.session.state"
	AttrEmitted    = "mockgps.session.emitted"
	AttrSkipped    = "mockgps.session.skipped"
	AttrIndex      = "mockgps.index"
	AttrLatitude   = "mockgps.latitude"
	AttrLongitude  = "mockgps.longitude"
	AttrAltitude   = "mockgps.altitude"
	AttrError      = "mockgps.error"
)
