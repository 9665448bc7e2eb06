// Package llm provides abstractions for LLM provider integration.
//
// Example usage:
//
//	provider, err := openai.NewProvider("",
//	    openai.WithBaseURL("http://localhost:11434/v1"),
//	    openai.WithModel("qwen2.5:14b"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var list types.ShoppingList
//	err = llm.Invoke(ctx, provider, systemPrompt, query, shoppingListSchema, &list)
package llm

import (
	"context"

	"github.com/entrhq/okaimono/pkg/types"
)

// Provider defines the interface for LLM integrations.
//
// Providers handle API communication with LLM services and return simple
// StreamChunk instances. Structured decoding lives in Invoke so providers stay
// focused on transport.
type Provider interface {
	// StreamCompletion sends messages to the LLM and streams back response chunks.
	//
	// The channel is closed when streaming completes or an error occurs.
	// Returns an error only if streaming cannot be initiated. Stream-time errors
	// are sent as StreamChunk instances with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message, opts ...CompletionOption) (<-chan *StreamChunk, error)

	// Complete sends messages to the LLM and returns the full response.
	Complete(ctx context.Context, messages []*types.Message, opts ...CompletionOption) (*types.Message, error)

	// GetModelInfo returns information about the LLM model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}

// ContentType distinguishes reasoning output from message output.
type ContentType string

const (
	ContentTypeMessage  ContentType = "message"  // ContentTypeMessage is regular response text.
	ContentTypeThinking ContentType = "thinking" // ContentTypeThinking is text inside reasoning tags.
)

// StreamChunk is a piece of a streamed completion.
type StreamChunk struct {
	Error    error
	Role     string
	Content  string
	Type     ContentType
	Finished bool
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// IsThinking reports whether the chunk is reasoning output.
func (c *StreamChunk) IsThinking() bool {
	return c.Type == ContentTypeThinking
}

// CompletionOptions holds per-call request settings.
type CompletionOptions struct {
	// ResponseSchema, when set, asks the provider for output conforming to it.
	ResponseSchema *Schema

	// Temperature overrides the model default when non-nil.
	Temperature *float64
}

// CompletionOption configures a single completion call.
type CompletionOption func(*CompletionOptions)

// WithResponseSchema requests schema-constrained output.
func WithResponseSchema(schema *Schema) CompletionOption {
	return func(o *CompletionOptions) {
		o.ResponseSchema = schema
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CompletionOption {
	return func(o *CompletionOptions) {
		o.Temperature = &t
	}
}

// ApplyOptions folds opts into a CompletionOptions value.
func ApplyOptions(opts ...CompletionOption) CompletionOptions {
	var o CompletionOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
