package domain

import "context"

// Chat roles understood by Generator implementations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of an LLM conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generation is a completed LLM answer.
type Generation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces a conversational answer from a message history.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (Generation, error)
}
