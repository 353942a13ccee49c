package webchat

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string  `json:"session_id"`
	Reply     string  `json:"reply"`
	Events    []Frame `json:"events"`
}

// handleChat is the polling transport: it runs the whole turn to completion
// and returns the collected events plus the final reply in one JSON body.
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in chatRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ctx := req.Context()
	sess, err := r.manager.Open(ctx, in.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	lock := r.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	collector := &collectorSink{}
	if err := r.controller.Send(ctx, sess, in.Message, collector); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("chat turn failed")
		writeJSON(w, statusForError(err), chatResponse{
			SessionID: sess.ID,
			Events:    collector.frames,
		})
		return
	}
	var reply string
	if n := len(sess.Messages); n > 0 && sess.Messages[n-1].Role == chat.RoleAssistant {
		reply = sess.Messages[n-1].Content
	}
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: sess.ID,
		Reply:     reply,
		Events:    collector.frames,
	})
}

func (r *Router) handleSessions(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ids := r.manager.ListSessions(req.Context())
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (r *Router) handleNewSession(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := r.manager.NewSession(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sess.ID})
}

// handleMessages returns the user/assistant turns of a session for UI
// hydration. The leading system message is elided, matching what the chat
// front ends display.
func (r *Router) handleMessages(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := req.URL.Query().Get("session_id")
	if id == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	sess, err := r.manager.Open(req.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	turns := sess.Turns()
	if turns == nil {
		turns = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"messages":   turns,
	})
}

type repairRequest struct {
	SessionID string `json:"session_id"`
}

// handleRepair is the administrative recovery path for corrupt sessions: it
// deletes the session's rows and reseeds the system message. Destructive,
// so it is its own endpoint and never triggered from the request path.
func (r *Router) handleRepair(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in repairRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.SessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	sess, err := r.manager.Repair(req.Context(), in.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sess.ID})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, chat.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrCorruptSession):
		// The session needs an explicit repair call before it is usable.
		return http.StatusConflict
	case errors.Is(err, chat.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
