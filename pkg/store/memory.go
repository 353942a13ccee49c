package store

import (
	"context"
	"sort"
	"sync"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

// MemoryStore keeps sessions in process memory. It backs tests and
// ephemeral/offline runs where durability does not matter.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]chat.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]chat.Message{}}
}

func (s *MemoryStore) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.sessions[sessionID]
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], msg)
	return nil
}

func (s *MemoryStore) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, msgs := range s.sessions {
		if len(msgs) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

var _ chat.MessageStore = (*MemoryStore)(nil)
