// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/okaimono/pkg/llm"
	"github.com/entrhq/okaimono/pkg/types"
)

// Request is one recorded Complete call.
type Request struct {
	System      string
	User        string
	Schema      *llm.Schema
	Temperature *float64
}

// Provider answers by user input. Replies maps a user message to the raw
// reply text; Errors maps a user message to a failure. Unknown inputs fail.
type Provider struct {
	mu       sync.Mutex
	requests []Request

	Replies map[string]string
	Errors  map[string]error
}

var _ llm.Provider = (*Provider)(nil)

// New returns a provider with the given replies.
func New(replies map[string]string) *Provider {
	return &Provider{Replies: replies}
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (*types.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var req Request
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			req.System = m.Content
		case types.RoleUser:
			req.User = m.Content
		}
	}
	o := llm.ApplyOptions(opts...)
	req.Schema = o.ResponseSchema
	req.Temperature = o.Temperature

	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if err, ok := p.Errors[req.User]; ok {
		return nil, err
	}
	reply, ok := p.Replies[req.User]
	if !ok {
		return nil, fmt.Errorf("llmtest: no reply scripted for %q", req.User)
	}
	return types.NewAssistantMessage(reply), nil
}

// StreamCompletion implements llm.Provider by sending the Complete reply as
// a single chunk.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (<-chan *llm.StreamChunk, error) {
	msg, err := p.Complete(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	ch := make(chan *llm.StreamChunk, 1)
	ch <- &llm.StreamChunk{Role: string(types.RoleAssistant), Content: msg.Content, Type: llm.ContentTypeMessage, Finished: true}
	close(ch)
	return ch, nil
}

// GetModelInfo implements llm.Provider.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Provider: "llmtest", Name: p.GetModel(), SupportsStructuredOutput: true}
}

// GetModel implements llm.Provider.
func (p *Provider) GetModel() string { return "scripted" }

// GetBaseURL implements llm.Provider.
func (p *Provider) GetBaseURL() string { return "" }

// Requests returns a copy of the recorded calls.
func (p *Provider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}
