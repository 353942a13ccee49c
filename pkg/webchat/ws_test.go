package webchat

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatrelay/pkg/inference"
)

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebSocketTurn(t *testing.T) {
	router, _, _ := newTestRouter(t, &inference.ScriptedEngine{Fragments: []string{"Hello", " world"}})
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialWS(t, srv, "")

	hello := readFrame(t, conn)
	require.Equal(t, frameTypeSession, hello.Type)
	require.NotEmpty(t, hello.SessionID)

	require.NoError(t, conn.WriteJSON(wsClientFrame{Type: "message", Message: "hi"}))

	var types []string
	var full string
	for {
		f := readFrame(t, conn)
		types = append(types, f.Type)
		if f.Type == "stream_complete" {
			full = f.FullContent
			break
		}
		if f.Type == "error" {
			break
		}
	}
	assert.Equal(t, []string{
		"message_received", "stream_chunk", "stream_chunk", "stream_complete",
	}, types)
	assert.Equal(t, "Hello world", full)
}

func TestWebSocketMultipleTurnsShareSession(t *testing.T) {
	router, st, _ := newTestRouter(t, &inference.ScriptedEngine{Fragments: []string{"ok"}})
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	hello := readFrame(t, conn)

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteJSON(wsClientFrame{Type: "message", Message: "hi"}))
		for {
			f := readFrame(t, conn)
			if f.Type == "stream_complete" || f.Type == "error" {
				break
			}
		}
	}

	msgs, err := st.Messages(context.Background(), hello.SessionID)
	require.NoError(t, err)
	assert.Len(t, msgs, 5, "system plus two full turns")
}

func TestWebSocketLoadSession(t *testing.T) {
	router, _, manager := newTestRouter(t, &inference.ScriptedEngine{Fragments: []string{"ok"}})
	srv := httptest.NewServer(router)
	defer srv.Close()

	existing, err := manager.Open(context.Background(), "existing-session")
	require.NoError(t, err)

	conn := dialWS(t, srv, "")
	_ = readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(wsClientFrame{Type: "load_session", SessionID: existing.ID}))
	bound := readFrame(t, conn)
	assert.Equal(t, frameTypeSession, bound.Type)
	assert.Equal(t, "existing-session", bound.SessionID)
}

func TestWebSocketRejectsUnknownFrameType(t *testing.T) {
	router, _, _ := newTestRouter(t, &inference.ScriptedEngine{})
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	_ = readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(wsClientFrame{Type: "bogus"}))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
}

func TestWebSocketBindsRequestedSession(t *testing.T) {
	router, _, manager := newTestRouter(t, &inference.ScriptedEngine{})
	srv := httptest.NewServer(router)
	defer srv.Close()

	existing, err := manager.Open(context.Background(), "pinned")
	require.NoError(t, err)

	conn := dialWS(t, srv, "?session_id="+existing.ID)
	hello := readFrame(t, conn)
	assert.Equal(t, "pinned", hello.SessionID)
}
