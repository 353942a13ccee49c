package inference

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

func TestToOpenAIMessagesPreservesOrderAndRoles(t *testing.T) {
	got := toOpenAIMessages([]chat.Message{
		{Role: chat.RoleSystem, Content: "be helpful"},
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "be helpful"},
		{Role: openai.ChatMessageRoleUser, Content: "hi"},
		{Role: openai.ChatMessageRoleAssistant, Content: "hello"},
	}, got)
}

func TestNewOpenAIEngineDefaultsModel(t *testing.T) {
	e := NewOpenAIEngine("key", "", "")
	assert.Equal(t, DefaultModel, e.model)

	e = NewOpenAIEngine("key", "gpt-4o", "")
	assert.Equal(t, "gpt-4o", e.model)
}
