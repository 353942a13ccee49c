package inference

import (
	"context"
	"math"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

// DefaultModel is used when no model id is configured.
const DefaultModel = openai.GPT4oMini

// OpenAIEngine streams chat completions from the OpenAI API or any
// OpenAI-compatible server. Sampling is pinned off so identical histories
// produce stable replies.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

// NewOpenAIEngine builds an engine against the hosted OpenAI API. baseURL
// may be empty; set it to target a compatible local server instead.
func NewOpenAIEngine(apiKey, model, baseURL string) *OpenAIEngine {
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEngine{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (e *OpenAIEngine) Stream(ctx context.Context, messages []chat.Message) (chat.Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
		// A literal zero would be dropped by the omitempty tag and the API
		// would fall back to its default of 1; the smallest nonzero float is
		// the documented way to request temperature 0 with this client.
		Temperature: math.SmallestNonzeroFloat32,
	}
	stream, err := e.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "create chat completion stream")
	}
	return &openaiStream{stream: stream}, nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next fragment, or io.EOF once the completion is done.
// Empty fragments (role-only deltas, finish markers) come back as empty
// strings and are skipped by the caller.
func (s *openaiStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}
	return out
}

var _ chat.Engine = (*OpenAIEngine)(nil)
