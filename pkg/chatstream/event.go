package chatstream

import (
	"time"

	"trade-intel-be/internal/entity"
)

type EventType string

const (
	EventInitialMetadata     EventType = "initial_metadata"
	EventSessionInfo         EventType = "session_info"
	EventThinkingStart       EventType = "thinking_start"
	EventThinkingData        EventType = "thinking_data"
	EventThinkingComplete    EventType = "thinking_complete"
	EventMainMessageStart    EventType = "main_message_start"
	EventMainMessageData     EventType = "main_message_data"
	EventDetailButtonReady   EventType = "detail_page_button_ready"
	EventMainMessageComplete EventType = "main_message_complete"
	EventError               EventType = "error"
)

// StreamEvent is the wire-level unit sent to the client. Sequence numbers
// are assigned centrally at emission time; within one stream they are
// strictly increasing with no gaps, and exactly one event carries
// IsComplete = true, after which nothing follows.
type StreamEvent struct {
	EventType      EventType `json:"eventType"`
	SequenceNumber int       `json:"sequenceNumber"`
	Timestamp      time.Time `json:"timestamp"`
	IsComplete     bool      `json:"isComplete"`

	// initial_metadata
	Intent         string   `json:"intent,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	IsTradeRelated *bool    `json:"isTradeRelated,omitempty"`

	// session_info
	IsAuthenticated  *bool `json:"isAuthenticated,omitempty"`
	RecordingEnabled *bool `json:"recordingEnabled,omitempty"`

	// thinking_data / main_message_data / error
	Content string `json:"content,omitempty"`

	// main_message_data, once a code is first detected
	BookmarkData *entity.BookmarkSuggestion `json:"bookmarkData,omitempty"`

	// detail_page_button_ready
	Button *entity.DetailButton `json:"button,omitempty"`

	// main_message_complete
	FullMessage     string              `json:"fullMessage,omitempty"`
	Metadata        *entity.JobMetadata `json:"metadata,omitempty"`
	HistoryRecorded *bool               `json:"historyRecorded,omitempty"`
}

// Sink receives emitted events in order. A sink error means the client is
// unreachable; the orchestrator cancels the job in response.
type Sink func(event StreamEvent) error

// firstSequence is the offset streams start at.
const firstSequence = 1

// emitter assigns sequence numbers and enforces the single-terminal rule.
// It is used from one goroutine only (the merge loop).
type emitter struct {
	sink     Sink
	next     int
	terminal bool
}

func newEmitter(sink Sink) *emitter {
	return &emitter{
		sink: sink,
		next: firstSequence,
	}
}

func (e *emitter) emit(ev StreamEvent) error {
	if e.terminal {
		return nil // nothing follows the terminal event
	}
	ev.SequenceNumber = e.next
	ev.Timestamp = time.Now()
	if ev.IsComplete {
		e.terminal = true
	}
	e.next++
	return e.sink(ev)
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
