package webchat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

// wsClientFrame is what the browser sends over the websocket. A connection
// carries many turns; message frames run a turn, new_session and
// load_session rebind the connection to another session handle.
type wsClientFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// handleWS binds a websocket connection to a session and serves turns until
// the client disconnects. Turns run synchronously in the read loop, so one
// connection never has two turns in flight.
func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	sess, err := r.manager.Open(ctx, req.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	connID := uuid.NewString()
	if err := conn.WriteJSON(sessionFrame(sess.ID)); err != nil {
		return
	}
	log.Info().Str("conn_id", connID).Str("session_id", sess.ID).Msg("websocket attached")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("conn_id", connID).Str("session_id", sess.ID).Msg("websocket closed")
			}
			return
		}
		var frame wsClientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			_ = conn.WriteJSON(Frame{Type: string(chat.EventError), Content: "invalid frame"})
			continue
		}

		switch frame.Type {
		case "message":
			r.runWSTurn(ctx, conn, sess, frame.Message)
		case "new_session":
			next, err := r.manager.NewSession(ctx)
			if err != nil {
				_ = conn.WriteJSON(Frame{Type: string(chat.EventError), Content: err.Error()})
				continue
			}
			sess = next
			_ = conn.WriteJSON(sessionFrame(sess.ID))
		case "load_session":
			next, err := r.manager.LoadSession(ctx, frame.SessionID, sess)
			if err != nil {
				_ = conn.WriteJSON(Frame{Type: string(chat.EventError), Content: err.Error()})
				continue
			}
			sess = next
			_ = conn.WriteJSON(sessionFrame(sess.ID))
		default:
			_ = conn.WriteJSON(Frame{Type: string(chat.EventError), Content: "unknown frame type"})
		}
	}
}

func (r *Router) runWSTurn(ctx context.Context, conn *websocket.Conn, sess *chat.Session, message string) {
	lock := r.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	sink := chat.SinkFunc(func(e chat.Event) error {
		return conn.WriteJSON(frameFromEvent(e))
	})
	if err := r.controller.Send(ctx, sess, message, sink); err != nil {
		// Terminal error event already went out through the sink; a write
		// failure here means the client is gone and the read loop will see
		// it next.
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("websocket turn failed")
	}
}
