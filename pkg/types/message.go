// Package types holds the value types shared between the language model client
// and the shopping pipeline.
package types

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem carries instructions for the model.
	RoleUser      MessageRole = "user"      // RoleUser carries the variable input.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries model output.
)

// Message is a single chat message sent to or received from a model.
type Message struct {
	// Role is the author of the message.
	Role MessageRole

	// Content is the text body.
	Content string

	// Thinking holds reasoning text the model emitted inside <think> blocks.
	// It is never sent back to the model.
	Thinking string
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	// Metadata holds provider-specific details such as a non-default base URL.
	Metadata map[string]interface{}

	// Provider is the provider family, e.g. "openai".
	Provider string

	// Name is the model identifier sent with each request.
	Name string

	// SupportsStreaming reports whether the provider streams responses.
	SupportsStreaming bool

	// SupportsStructuredOutput reports whether the provider accepts a response schema.
	SupportsStructuredOutput bool
}
