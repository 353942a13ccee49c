package webchat

import "github.com/go-go-golems/chatrelay/pkg/chat"

// Frame is the JSON encoding shared by the polling, SSE and websocket
// transports. The session frame kind is transport glue (it tells clients
// which session a connection is bound to); the remaining kinds mirror the
// core event vocabulary one to one.
type Frame struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id,omitempty"`
	Content     string `json:"content,omitempty"`
	FullContent string `json:"full_content,omitempty"`
}

const frameTypeSession = "session"

func frameFromEvent(e chat.Event) Frame {
	return Frame{
		Type:        string(e.Type),
		Content:     e.Content,
		FullContent: e.FullContent,
	}
}

func sessionFrame(id string) Frame {
	return Frame{Type: frameTypeSession, SessionID: id}
}

// collectorSink buffers a whole turn for the polling transport.
type collectorSink struct {
	frames []Frame
}

func (c *collectorSink) Publish(e chat.Event) error {
	c.frames = append(c.frames, frameFromEvent(e))
	return nil
}
