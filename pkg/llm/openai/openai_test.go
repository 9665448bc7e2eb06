package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/entrhq/okaimono/pkg/llm"
	"github.com/entrhq/okaimono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseServer returns a server that records the last request body and replies
// with the given SSE data payloads followed by [DONE].
func sseServer(t *testing.T, payloads []string, lastBody *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if lastBody != nil {
			*lastBody = string(body)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		for _, p := range payloads {
			fmt.Fprintf(w, "data: %s\n\n", p)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deltaPayload(role, content string, finish bool) string {
	choice := map[string]interface{}{
		"delta": map[string]interface{}{"role": role, "content": content},
	}
	if finish {
		choice["finish_reason"] = "stop"
	}
	b, _ := json.Marshal(map[string]interface{}{"choices": []interface{}{choice}})
	return string(b)
}

func clearEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
}

func TestNewProvider_Defaults(t *testing.T) {
	clearEnv(t)

	_, err := NewProvider("")
	require.Error(t, err, "public endpoint needs a key")
	assert.Contains(t, err.Error(), "API key is required")

	p, err := NewProvider("", WithBaseURL("http://localhost:11434/v1/"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", p.GetBaseURL())
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, "openai", p.GetModelInfo().Provider)
	assert.Equal(t, "http://localhost:11434/v1", p.GetModelInfo().Metadata["base_url"])
}

func TestNewProvider_EnvironmentFallbacks(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "https://env.example.com/v1")

	p, err := NewProvider("", WithModel("gpt-4o"))
	require.NoError(t, err)
	assert.Equal(t, "env-key", p.GetAPIKey())
	assert.Equal(t, "https://env.example.com/v1", p.GetBaseURL())
	assert.Equal(t, "gpt-4o", p.GetModel())
}

func TestComplete_AccumulatesAndSeparatesThinking(t *testing.T) {
	clearEnv(t)
	var body string
	srv := sseServer(t, []string{
		deltaPayload("assistant", "<think>list the items", false),
		deltaPayload("", "</think>", false),
		deltaPayload("", `{"items":["牛乳",`, false),
		deltaPayload("", `"卵"]}`, true),
	}, &body)

	p, err := NewProvider("local", WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []*types.Message{
		types.NewSystemMessage("あなたはお買い物アシスタントです。"),
		types.NewUserMessage("牛乳と卵を買いたい"),
	})
	require.NoError(t, err)

	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, `{"items":["牛乳","卵"]}`, msg.Content)
	assert.Equal(t, "list the items", msg.Thinking)

	var req struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, DefaultModel, req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, body, "牛乳と卵を買いたい")
	assert.NotContains(t, body, "response_format")
}

func TestComplete_SendsResponseSchema(t *testing.T) {
	clearEnv(t)
	var body string
	srv := sseServer(t, []string{deltaPayload("assistant", "{}", true)}, &body)

	p, err := NewProvider("", WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	schema := llm.ObjectSchema("item_category", "category for an item",
		map[string]interface{}{"category_path": map[string]interface{}{"type": "string"}},
		[]string{"category_path"})

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("x")},
		llm.WithResponseSchema(schema), llm.WithTemperature(0))
	require.NoError(t, err)

	var req struct {
		Temperature    *float64 `json:"temperature"`
		ResponseFormat struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Name        string                 `json:"name"`
				Description string                 `json:"description"`
				Strict      bool                   `json:"strict"`
				Schema      map[string]interface{} `json:"schema"`
			} `json:"json_schema"`
		} `json:"response_format"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
	assert.Equal(t, "json_schema", req.ResponseFormat.Type)
	assert.Equal(t, "item_category", req.ResponseFormat.JSONSchema.Name)
	assert.Equal(t, "category for an item", req.ResponseFormat.JSONSchema.Description)
	assert.True(t, req.ResponseFormat.JSONSchema.Strict)
	assert.Equal(t, "object", req.ResponseFormat.JSONSchema.Schema["type"])
}

func TestComplete_HTTPErrorStatus(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := NewProvider("", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestComplete_StreamErrorPayload(t *testing.T) {
	clearEnv(t)
	srv := sseServer(t, []string{`{"error":{"message":"out of memory"}}`}, nil)

	p, err := NewProvider("", WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestSSEData(t *testing.T) {
	data, ok := sseData("data: {}")
	assert.True(t, ok)
	assert.Equal(t, "{}", data)

	for _, line := range []string{"", ": comment", "event: message"} {
		_, ok := sseData(line)
		assert.False(t, ok, line)
	}
}

func TestNewChatRequest_OmitsUnsetOptions(t *testing.T) {
	req := newChatRequest("m", []*types.Message{
		types.NewSystemMessage("s"),
		{Role: "tool", Content: "odd"},
	}, llm.CompletionOptions{})

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "temperature")
	assert.NotContains(t, string(b), "response_format")
	assert.Len(t, req.Messages, 2)
}
