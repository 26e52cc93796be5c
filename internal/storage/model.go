package storage

import "time"

// Session describes one recorded bridge run.
type Session struct {
	ID             int64
	StartTime      time.Time
	InputEndpoint  string
	OutputEndpoint string
	Config         *string // settings snapshot as JSON, nil when not stored
}

// Sample is one recorded telemetry value: a single variable from a single
// datagram, after conversion.
type Sample struct {
	SessionID int64
	Timestamp time.Time
	Variable  string
	Value     float64
	Converted bool // whether a unit conversion was applied to this value
}
