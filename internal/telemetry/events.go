// Package telemetry defines the typed events footprintd sends over its
// WebSocket stream.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat EventType = "heartbeat"
	EventState     EventType = "state"
	EventStage     EventType = "stage"
	EventProgress  EventType = "progress"
	EventRun       EventType = "run"
	EventCatalog   EventType = "catalog"
	EventLog       EventType = "log"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"ts"`
}

// NowTS returns the current UTC time in the RFC 3339 nano format used by
// every event.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// NewEvent stamps an envelope with the current time.
func NewEvent(t EventType) Event {
	return Event{Type: t, TS: NowTS()}
}

// Heartbeat is sent periodically so clients can detect connectivity.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StateTransition is emitted when the daemon moves between IDLE and
// RUNNING.
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

// StageTransition is emitted whenever a run moves between pipeline stages
// (e.g. Propagated -> Assembled).
type StageTransition struct {
	Event
	Run  uint64 `json:"run"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Progress reports completion inside a long stage, currently propagation.
type Progress struct {
	Event
	Run     uint64  `json:"run"`
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Detail  string  `json:"detail"`
}

// RunSummary closes a run, successful or not.
type RunSummary struct {
	Event
	Run        uint64  `json:"run"`
	OK         bool    `json:"ok"`
	Error      string  `json:"error,omitempty"`
	Satellites int     `json:"satellites"`
	Skipped    int     `json:"skipped"`
	Valid      int     `json:"valid_samples"`
	Invalid    int     `json:"invalid_samples"`
	Hits       int     `json:"hits"`
	Seconds    float64 `json:"seconds"`
}

// CatalogLoaded reports where the element set came from.
type CatalogLoaded struct {
	Event
	Source  string `json:"source"`
	Records int    `json:"records"`
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}
