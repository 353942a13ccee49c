package chat

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Controller drives one conversation turn: persist the user message, stream
// the model reply fragment by fragment into a sink, then persist the
// accumulated reply. It holds no per-session state; callers serialize turns
// on the same session id.
type Controller struct {
	store  MessageStore
	engine Engine
}

func NewController(store MessageStore, engine Engine) *Controller {
	return &Controller{store: store, engine: engine}
}

// Send runs a single turn against the session. Empty-after-trim input is a
// deliberate no-op: no events, no store mutation, nil error.
//
// Ordering guarantees: the user message is persisted before the model is
// called; the assistant message is persisted after the last fragment has
// been forwarded. If the model fails or the context is cancelled mid-stream,
// fragments already forwarded stand, no assistant message is written, and a
// terminal error event is published before ErrGenerationFailed is returned.
func (c *Controller) Send(ctx context.Context, sess *Session, userText string, sink Sink) error {
	text := strings.TrimSpace(userText)
	if text == "" {
		return nil
	}

	userMsg := Message{Role: RoleUser, Content: text}
	if err := c.store.Append(ctx, sess.ID, userMsg); err != nil {
		_ = sink.Publish(Event{Type: EventError, Content: "storing message failed"})
		return errors.WithMessagef(err, "persist user message in %q", sess.ID)
	}
	sess.Messages = append(sess.Messages, userMsg)
	if err := sink.Publish(Event{Type: EventMessageReceived, Content: text}); err != nil {
		return errors.Wrap(err, "publish message_received")
	}

	stream, err := c.engine.Stream(ctx, sess.Messages)
	if err != nil {
		_ = sink.Publish(Event{Type: EventError, Content: err.Error()})
		return errors.Wrapf(ErrGenerationFailed, "start completion stream: %v", err)
	}
	defer func() {
		_ = stream.Close()
	}()

	var reply strings.Builder
	for {
		select {
		case <-ctx.Done():
			// Transport went away; drop the partial reply instead of
			// persisting a truncated message.
			log.Debug().Str("session_id", sess.ID).Msg("turn cancelled mid-stream")
			_ = sink.Publish(Event{Type: EventError, Content: "generation cancelled"})
			return errors.Wrapf(ErrGenerationFailed, "stream cancelled: %v", ctx.Err())
		default:
		}
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("model stream failed mid-turn")
			_ = sink.Publish(Event{Type: EventError, Content: err.Error()})
			return errors.Wrapf(ErrGenerationFailed, "model stream: %v", err)
		}
		if fragment == "" {
			continue
		}
		reply.WriteString(fragment)
		if err := sink.Publish(Event{Type: EventStreamChunk, Content: fragment, FullContent: reply.String()}); err != nil {
			return errors.Wrap(err, "publish stream_chunk")
		}
	}

	assistantMsg := Message{Role: RoleAssistant, Content: reply.String()}
	if err := c.store.Append(ctx, sess.ID, assistantMsg); err != nil {
		_ = sink.Publish(Event{Type: EventError, Content: "storing reply failed"})
		return errors.WithMessagef(err, "persist assistant message in %q", sess.ID)
	}
	sess.Messages = append(sess.Messages, assistantMsg)
	if err := sink.Publish(Event{Type: EventStreamComplete, FullContent: reply.String()}); err != nil {
		return errors.Wrap(err, "publish stream_complete")
	}
	return nil
}
