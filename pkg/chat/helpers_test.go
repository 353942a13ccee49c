package chat

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// testStore is a minimal in-memory MessageStore with fault injection, so the
// core can be exercised without a database.
type testStore struct {
	mu       sync.Mutex
	sessions map[string][]Message

	appends     int
	failAppend  int // fail the Nth append (1-based), 0 disables
	messagesErr error
	listErr     error
}

func newTestStore() *testStore {
	return &testStore{sessions: map[string][]Message{}}
}

func (s *testStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messagesErr != nil {
		return nil, s.messagesErr
	}
	msgs := s.sessions[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *testStore) Append(ctx context.Context, sessionID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	if s.failAppend != 0 && s.appends >= s.failAppend {
		return errors.Wrap(ErrStorageUnavailable, "injected append failure")
	}
	s.sessions[sessionID] = append(s.sessions[sessionID], msg)
	return nil
}

func (s *testStore) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var ids []string
	for id, msgs := range s.sessions {
		if len(msgs) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (s *testStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *testStore) count(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[sessionID])
}

// testEngine replays scripted fragments, optionally failing after the script
// instead of ending the stream cleanly.
type testEngine struct {
	fragments []string
	err       error
	startErr  error
}

func (e *testEngine) Stream(ctx context.Context, messages []Message) (Stream, error) {
	if e.startErr != nil {
		return nil, e.startErr
	}
	return &testStream{engine: e, ctx: ctx}, nil
}

type testStream struct {
	engine *testEngine
	ctx    context.Context
	pos    int
}

func (s *testStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos < len(s.engine.fragments) {
		f := s.engine.fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.engine.err != nil {
		return "", s.engine.err
	}
	return "", io.EOF
}

func (s *testStream) Close() error { return nil }

// eventCollector records published events; onEvent, when set, runs after each
// append and its error is returned to the controller.
type eventCollector struct {
	events  []Event
	onEvent func(Event) error
}

func (c *eventCollector) Publish(e Event) error {
	c.events = append(c.events, e)
	if c.onEvent != nil {
		return c.onEvent(e)
	}
	return nil
}

func (c *eventCollector) types() []EventType {
	out := make([]EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}
