package pipeline

import (
	"time"
)

// EventType enumerates the stream event kinds delivered to transports.
type EventType string

const (
	EventSectionStart    EventType = "section-start"
	EventSectionComplete EventType = "section-complete"
	EventProgress        EventType = "progress"
	EventMetadata        EventType = "metadata"
	EventDone            EventType = "done"
	EventError           EventType = "error"
)

// Metadata is the periodic heartbeat payload.
type Metadata struct {
	ElapsedTime       int64   `json:"elapsedTime"` // milliseconds
	EstimatedCost     float64 `json:"estimatedCost"`
	CompletedSections int     `json:"completedSections"`
	TotalSections     int     `json:"totalSections"`
}

// Event is one entry in the run's ordered event stream. Events are ordered
// by the moment the scheduler observes a state transition, not by section
// declaration order.
type Event struct {
	Type       EventType      `json:"type"`
	Section    SectionID      `json:"section,omitempty"`
	Phase      string         `json:"phase,omitempty"`
	Label      string         `json:"label,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Percentage int            `json:"percentage,omitempty"`
	Message    string         `json:"message,omitempty"`
	Code       string         `json:"code,omitempty"`
	Metadata   *Metadata      `json:"metadata,omitempty"`
	At         time.Time      `json:"-"`
}

// Emitter writes the ordered event stream for one pipeline run. The
// scheduler is the only writer; transports (SSE, websocket, polling) read
// the channel independently.
type Emitter struct {
	ch     chan Event
	closed bool
}

// NewEmitter creates an emitter with the given buffer. A generous buffer
// keeps the scheduler from stalling behind a slow transport.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 256
	}
	return &Emitter{ch: make(chan Event, buffer)}
}

// Events exposes the read side of the stream.
func (e *Emitter) Events() <-chan Event { return e.ch }

// Emit appends an event. When the buffer is full the event is dropped
// rather than stalling the scheduler; terminal events use EmitWait.
func (e *Emitter) Emit(ev Event) {
	if e == nil || e.closed {
		return
	}
	ev.At = time.Now()
	select {
	case e.ch <- ev:
	default:
	}
}

// EmitWait appends an event, blocking until there is room. Used for
// terminal done/error events that must not be lost.
func (e *Emitter) EmitWait(ev Event) {
	if e == nil || e.closed {
		return
	}
	ev.At = time.Now()
	e.ch <- ev
}

// Close ends the stream. Emit after Close is a no-op.
func (e *Emitter) Close() {
	if e == nil || e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}
