package sim

import "time"

// Event is one emitted simulation event. Timestamp is virtual time, not wall
// time.
type Event struct {
	EventType string    `json:"event_type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives emitted events. Implementations must tolerate Emit being
// called after a failed Emit; the orchestrator isolates sink errors rather
// than halting the run.
type Sink interface {
	Emit(e *Event) error
	Close() error
}
