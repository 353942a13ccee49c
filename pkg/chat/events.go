package chat

// EventType enumerates the transport-facing event vocabulary. Every adapter
// (polling, SSE, websocket, terminal) relays these four kinds; a successful
// turn emits one message_received, zero or more stream_chunk, then exactly
// one terminal event (stream_complete or error).
type EventType string

const (
	EventMessageReceived EventType = "message_received"
	EventStreamChunk     EventType = "stream_chunk"
	EventStreamComplete  EventType = "stream_complete"
	EventError           EventType = "error"
)

// Event is one streamed occurrence within a conversation turn.
type Event struct {
	Type EventType `json:"type"`
	// Content carries the user text for message_received, the fragment for
	// stream_chunk, and the failure description for error.
	Content string `json:"content,omitempty"`
	// FullContent carries the reply accumulated so far for stream_chunk and
	// the complete reply for stream_complete.
	FullContent string `json:"full_content,omitempty"`
}

// Sink receives the events of one conversation turn. Transport adapters
// implement it over their own wire format; the controller never knows which
// transport is attached. A Publish error means the receiver is gone and the
// turn should be abandoned.
type Sink interface {
	Publish(Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event) error

func (f SinkFunc) Publish(e Event) error { return f(e) }
