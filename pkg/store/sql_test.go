package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore("sqlite3", filepath.Join(t.TempDir(), "chatrelay.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSQLStoreAppendAndMessagesRoundTrip(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	msgs := []chat.Message{
		{Role: chat.RoleSystem, Content: "be helpful"},
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "hi, how can I help?"},
	}
	for _, m := range msgs {
		require.NoError(t, s.Append(ctx, "sess-1", m))
	}

	got, err := s.Messages(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestSQLStoreMessagesEmptySession(t *testing.T) {
	s := newTestSQLStore(t)

	got, err := s.Messages(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLStoreMessagesAreScopedBySession(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "A", chat.Message{Role: chat.RoleSystem, Content: "a"}))
	require.NoError(t, s.Append(ctx, "B", chat.Message{Role: chat.RoleSystem, Content: "b"}))

	got, err := s.Messages(ctx, "A")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Content)
}

func TestSQLStoreListSessionsRequiresMoreThanOneRow(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	// A has a full turn, B only the system message
	require.NoError(t, s.Append(ctx, "A", chat.Message{Role: chat.RoleSystem, Content: "p"}))
	require.NoError(t, s.Append(ctx, "A", chat.Message{Role: chat.RoleUser, Content: "hi"}))
	require.NoError(t, s.Append(ctx, "A", chat.Message{Role: chat.RoleAssistant, Content: "hello"}))
	require.NoError(t, s.Append(ctx, "B", chat.Message{Role: chat.RoleSystem, Content: "p"}))

	ids, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids)
}

func TestSQLStoreListSessionsDescendingOrder(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	for _, id := range []string{"Chat - 2024-01-01 10:00:00", "Chat - 2024-06-01 10:00:00"} {
		require.NoError(t, s.Append(ctx, id, chat.Message{Role: chat.RoleSystem, Content: "p"}))
		require.NoError(t, s.Append(ctx, id, chat.Message{Role: chat.RoleUser, Content: "hi"}))
	}

	ids, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Chat - 2024-06-01 10:00:00",
		"Chat - 2024-01-01 10:00:00",
	}, ids)
}

func TestSQLStoreDeleteSession(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "sess-1", chat.Message{Role: chat.RoleSystem, Content: "p"}))
	require.NoError(t, s.Append(ctx, "sess-1", chat.Message{Role: chat.RoleUser, Content: "hi"}))
	require.NoError(t, s.DeleteSession(ctx, "sess-1"))

	got, err := s.Messages(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLStoreCorruptRowSurfacesCorruptSession(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "sess-1", chat.Message{Role: chat.RoleSystem, Content: "p"}))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_store (session_id, message) VALUES (?, ?)`,
		"sess-1", "not json at all")
	require.NoError(t, err)

	_, err = s.Messages(ctx, "sess-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, chat.ErrCorruptSession)
}

func TestSQLStoreUnknownRoleSurfacesCorruptSession(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_store (session_id, message) VALUES (?, ?)`,
		"sess-1", `{"role":"wizard","content":"zap"}`)
	require.NoError(t, err)

	_, err = s.Messages(ctx, "sess-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, chat.ErrCorruptSession)
}

func TestSQLStoreRepairFlow(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_store (session_id, message) VALUES (?, ?)`,
		"sess-1", "garbage")
	require.NoError(t, err)

	m := chat.NewManager(s, "be helpful")
	_, err = m.Open(ctx, "sess-1")
	require.ErrorIs(t, err, chat.ErrCorruptSession)

	sess, err := m.Repair(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, chat.RoleSystem, sess.Messages[0].Role)
}
