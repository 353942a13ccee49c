package webchat

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

// handleSSE runs one turn and relays its events as server-sent events. The
// client disconnecting cancels the request context, which aborts the model
// stream without persisting a partial reply.
func (r *Router) handleSSE(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := req.URL.Query().Get("session_id")
	message := req.URL.Query().Get("message")

	ctx := req.Context()
	sess, err := r.manager.Open(ctx, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sink := &sseSink{w: w, flusher: flusher}
	if err := sink.writeFrame(sessionFrame(sess.ID)); err != nil {
		log.Debug().Err(err).Msg("sse client gone before turn start")
		return
	}

	lock := r.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := r.controller.Send(ctx, sess, message, sink); err != nil {
		// Terminal error event already went out through the sink.
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("sse turn failed")
	}
}

type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Publish(e chat.Event) error {
	return s.writeFrame(frameFromEvent(e))
}

func (s *sseSink) writeFrame(f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", f.Type, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
