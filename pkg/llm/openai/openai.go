// Package openai provides an OpenAI-compatible LLM provider implementation.
//
// The provider speaks the /chat/completions API, so it works against OpenAI
// itself and against compatible servers such as Ollama's /v1 endpoint.
//
// Example usage:
//
//	provider, err := openai.NewProvider("",
//	    openai.WithBaseURL("http://localhost:11434/v1"),
//	    openai.WithModel("qwen2.5:14b"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	msg, err := provider.Complete(ctx, []*types.Message{
//	    types.NewUserMessage("Hello!"),
//	})
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/entrhq/okaimono/pkg/llm"
	"github.com/entrhq/okaimono/pkg/llm/parser"
	"github.com/entrhq/okaimono/pkg/types"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "qwen2.5:14b"
)

// Provider implements the LLM provider interface for OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	modelInfo  *types.ModelInfo
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using local models or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewProvider creates a new OpenAI-compatible provider.
//
// If apiKey is empty, it is read from OPENAI_API_KEY. If no base URL option is
// given, OPENAI_BASE_URL is consulted. An API key is only required when talking
// to the public OpenAI endpoint; local servers such as Ollama ignore it.
//
// Example:
//
//	// Local Ollama
//	provider, _ := openai.NewProvider("", openai.WithBaseURL("http://localhost:11434/v1"))
//
//	// Standard OpenAI
//	provider, _ := openai.NewProvider("sk-...", openai.WithModel("gpt-4o"))
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	// If baseURL wasn't set by options, check environment variable
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = strings.TrimRight(envBaseURL, "/")
		}
	}

	if p.apiKey == "" && p.baseURL == DefaultBaseURL {
		return nil, fmt.Errorf("OpenAI API key is required for %s (provide via parameter or OPENAI_API_KEY environment variable)", DefaultBaseURL)
	}

	p.modelInfo = &types.ModelInfo{
		Provider:                 "openai",
		Name:                     p.model,
		SupportsStreaming:        true,
		SupportsStructuredOutput: true,
		Metadata:                 make(map[string]interface{}),
	}

	// Store base URL in metadata if not default
	if p.baseURL != DefaultBaseURL {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}

	return p, nil
}

// StreamCompletion posts messages to /chat/completions with stream=true and
// returns the decoded chunks. SSE is read line by line instead of through the
// SDK client, since compatible servers differ in comments and framing.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (<-chan *llm.StreamChunk, error) {
	resp, err := p.post(ctx, newChatRequest(p.model, messages, llm.ApplyOptions(opts...)))
	if err != nil {
		return nil, err
	}

	out := make(chan *llm.StreamChunk, 10)
	r := &streamReader{ctx: ctx, out: out, thinking: parser.NewThinkingParser()}
	go r.run(resp.Body)
	return out, nil
}

// Complete drains StreamCompletion into one message. Reasoning text goes to
// Message.Thinking and never into Content.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	msg := &types.Message{Role: types.RoleAssistant}
	var content, thinking strings.Builder
	for chunk := range stream {
		switch {
		case chunk.IsError():
			return nil, chunk.Error
		case chunk.IsThinking():
			thinking.WriteString(chunk.Content)
		default:
			content.WriteString(chunk.Content)
		}
		if chunk.Role != "" {
			msg.Role = types.MessageRole(chunk.Role)
		}
	}

	msg.Content = content.String()
	msg.Thinking = thinking.String()
	return msg, nil
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// GetAPIKey returns the API key being used.
func (p *Provider) GetAPIKey() string {
	return p.apiKey
}

type chatRequest struct {
	Model          string                                   `json:"model"`
	Messages       []openai.ChatCompletionMessageParamUnion `json:"messages"`
	Stream         bool                                     `json:"stream"`
	Temperature    *float64                                 `json:"temperature,omitempty"`
	ResponseFormat *responseFormat                          `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Schema      map[string]interface{} `json:"schema"`
	Strict      bool                   `json:"strict"`
}

func newChatRequest(model string, messages []*types.Message, opts llm.CompletionOptions) *chatRequest {
	req := &chatRequest{
		Model:       model,
		Messages:    toParams(messages),
		Stream:      true,
		Temperature: opts.Temperature,
	}
	if s := opts.ResponseSchema; s != nil {
		req.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:        s.Name,
				Description: s.Description,
				Schema:      s.Definition,
				Strict:      true,
			},
		}
	}
	return req
}

// post sends the request and returns the open event stream. Non-200 replies
// are turned into errors carrying the server's body.
func (p *Provider) post(ctx context.Context, body *chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	defer resp.Body.Close()
	msg, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if readErr != nil {
		return nil, fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
	}
	return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

// streamEvent is one SSE data payload.
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// streamReader turns an SSE body into StreamChunks on out.
type streamReader struct {
	ctx      context.Context
	out      chan<- *llm.StreamChunk
	thinking *parser.ThinkingParser
	role     string
}

func (r *streamReader) run(body io.ReadCloser) {
	defer close(r.out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		data, ok := sseData(scanner.Text())
		if !ok {
			continue
		}
		if data == "[DONE]" {
			if r.flush() {
				r.send(&llm.StreamChunk{Finished: true})
			}
			return
		}
		if !r.handle(data) {
			return
		}
	}

	if !r.flush() {
		return
	}
	if err := scanner.Err(); err != nil {
		r.send(&llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)})
	}
}

// sseData returns the payload of a "data: " line. Comments, blank lines and
// other fields are skipped.
func sseData(line string) (string, bool) {
	if !strings.HasPrefix(line, "data: ") {
		return "", false
	}
	return strings.TrimPrefix(line, "data: "), true
}

// handle decodes one payload. It returns false once the stream is finished,
// failed or abandoned.
func (r *streamReader) handle(data string) bool {
	var ev streamEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		// Some servers interleave non-JSON keep-alives.
		return true
	}
	if ev.Error != nil {
		r.send(&llm.StreamChunk{Error: fmt.Errorf("stream error: %s", ev.Error.Message)})
		return false
	}
	if len(ev.Choices) == 0 {
		return true
	}

	choice := ev.Choices[0]
	if r.role == "" && choice.Delta.Role != "" {
		r.role = choice.Delta.Role
	}

	if choice.Delta.Content != "" {
		if !r.emit(r.thinking.Parse(choice.Delta.Content)) {
			return false
		}
	}

	if choice.FinishReason != nil && *choice.FinishReason == "stop" {
		if r.flush() {
			r.send(&llm.StreamChunk{Role: r.role, Finished: true})
		}
		return false
	}
	return true
}

func (r *streamReader) flush() bool {
	return r.emit(r.thinking.Flush())
}

func (r *streamReader) emit(chunks ...*llm.StreamChunk) bool {
	for _, c := range chunks {
		if c == nil {
			continue
		}
		c.Role = r.role
		if !r.send(c) {
			return false
		}
	}
	return true
}

// send delivers c unless the caller has gone away.
func (r *streamReader) send(c *llm.StreamChunk) bool {
	select {
	case r.out <- c:
		return true
	case <-r.ctx.Done():
		select {
		case r.out <- &llm.StreamChunk{Error: r.ctx.Err()}:
		default:
		}
		return false
	}
}

// toParams converts messages to the SDK's request parameter union. Unknown
// roles are sent as user messages.
func toParams(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}
	return params
}
