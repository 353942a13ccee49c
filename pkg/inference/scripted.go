package inference

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

// ScriptedEngine replays a fixed fragment script. Deterministic stand-in for
// the hosted model in tests; Err, when set, is returned after the script is
// exhausted instead of a clean end of stream.
type ScriptedEngine struct {
	Fragments []string
	Err       error
	// Delay paces fragment delivery, useful when exercising cancellation.
	Delay time.Duration
}

func (e *ScriptedEngine) Stream(ctx context.Context, messages []chat.Message) (chat.Stream, error) {
	return &scriptedStream{engine: e, ctx: ctx}, nil
}

type scriptedStream struct {
	engine *ScriptedEngine
	ctx    context.Context
	pos    int
}

func (s *scriptedStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos < len(s.engine.Fragments) {
		if s.engine.Delay > 0 {
			select {
			case <-time.After(s.engine.Delay):
			case <-s.ctx.Done():
				return "", s.ctx.Err()
			}
		}
		fragment := s.engine.Fragments[s.pos]
		s.pos++
		return fragment, nil
	}
	if s.engine.Err != nil {
		return "", s.engine.Err
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error { return nil }

// EchoEngine repeats the last user message back, one word at a time. It
// backs offline serving so the full transport path can be exercised without
// an API key.
type EchoEngine struct{}

func (e *EchoEngine) Stream(ctx context.Context, messages []chat.Message) (chat.Stream, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleUser {
			last = messages[i].Content
			break
		}
	}
	fragments := []string{"(offline) "}
	for i, word := range strings.Fields(last) {
		if i > 0 {
			fragments = append(fragments, " ")
		}
		fragments = append(fragments, word)
	}
	scripted := &ScriptedEngine{Fragments: fragments}
	return scripted.Stream(ctx, messages)
}

var (
	_ chat.Engine = (*ScriptedEngine)(nil)
	_ chat.Engine = (*EchoEngine)(nil)
)
