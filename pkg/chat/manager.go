package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultSessionLabel prefixes generated session identifiers.
const DefaultSessionLabel = "Chat"

// Manager owns session lifecycle: creation, loading, listing and repair.
// It guarantees that every session reachable through it starts with exactly
// one system message carrying the configured instruction text.
type Manager struct {
	store  MessageStore
	system string
	label  string
}

type ManagerOption func(*Manager)

// WithSessionLabel overrides the label used for generated session ids.
func WithSessionLabel(label string) ManagerOption {
	return func(m *Manager) {
		if label != "" {
			m.label = label
		}
	}
}

// NewManager builds a session manager over the given store. systemPrompt is
// the instruction text seeded as the first message of every new session.
func NewManager(store MessageStore, systemPrompt string, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		system: systemPrompt,
		label:  DefaultSessionLabel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// newSessionID generates a fresh identifier. The timestamp suffix makes
// lexicographic descending order coincide with recency, which the session
// listing relies on.
func (m *Manager) newSessionID() string {
	return m.label + " - " + time.Now().Format("2006-01-02 15:04:05")
}

// Open loads the session with the given id, generating a fresh id when it is
// empty. A session whose stored sequence is empty is seeded with the system
// message, persisted immediately. Open performs one full-session read and,
// for brand-new sessions, one write.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = m.newSessionID()
	}
	msgs, err := m.store.Messages(ctx, id)
	if err != nil {
		return nil, errors.WithMessagef(err, "open session %q", id)
	}
	if len(msgs) == 0 {
		sys := Message{Role: RoleSystem, Content: m.system}
		if err := m.store.Append(ctx, id, sys); err != nil {
			return nil, errors.WithMessagef(err, "seed session %q", id)
		}
		msgs = []Message{sys}
		log.Debug().Str("session_id", id).Msg("seeded new session with system message")
	}
	return &Session{ID: id, Messages: msgs}, nil
}

// NewSession opens a session under a freshly generated identifier.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	return m.Open(ctx, "")
}

// LoadSession opens the session with the given id, or returns current
// unchanged when id is empty.
func (m *Manager) LoadSession(ctx context.Context, id string, current *Session) (*Session, error) {
	if id == "" {
		return current, nil
	}
	return m.Open(ctx, id)
}

// ListSessions returns every session id with strictly more than one stored
// message, descending by id. A storage failure degrades to an empty list;
// the failure is logged, not surfaced.
func (m *Manager) ListSessions(ctx context.Context) []string {
	ids, err := m.store.ListSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing sessions failed")
		return nil
	}
	return ids
}

// Repair deletes every row of a corrupted session and reseeds it with a
// fresh system message. This is a destructive administrative operation; the
// conversation history is lost.
func (m *Manager) Repair(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("repair requires a session id")
	}
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return nil, errors.WithMessagef(err, "repair session %q", id)
	}
	log.Warn().Str("session_id", id).Msg("deleted session rows during repair, conversation history lost")
	return m.Open(ctx, id)
}
