package webchat

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

// Router exposes the conversation core over three wire formats: an HTTP
// polling endpoint, an SSE endpoint and a websocket endpoint, plus session
// management and the administrative repair endpoint. Turns on the same
// session id are serialized with per-session locks; the core leaves
// concurrent sends on one session undefined, so the transport layer
// enforces one-at-a-time here.
type Router struct {
	manager    *chat.Manager
	controller *chat.Controller
	mux        *http.ServeMux
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Config struct {
	Manager    *chat.Manager
	Controller *chat.Controller
}

func NewRouter(cfg Config) (*Router, error) {
	if cfg.Manager == nil {
		return nil, errors.New("router requires a session manager")
	}
	if cfg.Controller == nil {
		return nil, errors.New("router requires a conversation controller")
	}
	r := &Router{
		manager:    cfg.Manager,
		controller: cfg.Controller,
		mux:        http.NewServeMux(),
		locks:      map[string]*sync.Mutex{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	r.mux.HandleFunc("/api/chat", r.handleChat)
	r.mux.HandleFunc("/api/chat/sse", r.handleSSE)
	r.mux.HandleFunc("/api/ws", r.handleWS)
	r.mux.HandleFunc("/api/sessions", r.handleSessions)
	r.mux.HandleFunc("/api/sessions/new", r.handleNewSession)
	r.mux.HandleFunc("/api/sessions/repair", r.handleRepair)
	r.mux.HandleFunc("/api/messages", r.handleMessages)
	return r, nil
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// sessionLock returns the mutex serializing turns for one session id.
// Entries are never evicted; session count is bounded by actual usage.
func (r *Router) sessionLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}
