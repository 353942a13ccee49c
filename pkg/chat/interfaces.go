package chat

import "context"

// MessageStore is the durable session-keyed message table. All mutation is
// append-only; DeleteSession exists only for the administrative repair path.
//
// Implementations report unreachable storage by wrapping
// ErrStorageUnavailable and undecodable rows by wrapping ErrCorruptSession.
type MessageStore interface {
	// Messages returns every message stored for the session, in insertion
	// order.
	Messages(ctx context.Context, sessionID string) ([]Message, error)
	// Append persists one message at the end of the session.
	Append(ctx context.Context, sessionID string, msg Message) error
	// ListSessions returns the ids of sessions holding strictly more than
	// one message, descending by id.
	ListSessions(ctx context.Context) ([]string, error)
	// DeleteSession removes every row of the session. Repair path only.
	DeleteSession(ctx context.Context, sessionID string) error
}

// Engine produces a streamed completion for an ordered message sequence.
type Engine interface {
	Stream(ctx context.Context, messages []Message) (Stream, error)
}

// Stream is a pull-based, abandonable sequence of reply fragments. Recv
// returns io.EOF after the final fragment. Callers that stop pulling simply
// Close the stream; nothing is buffered on their behalf.
type Stream interface {
	Recv() (string, error)
	Close() error
}
