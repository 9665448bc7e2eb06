package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/okaimono/pkg/types"
	"github.com/kaptinlin/jsonrepair"
)

// ErrInvocation matches every *InvocationError via errors.Is.
var ErrInvocation = errors.New("model invocation failed")

// InvocationError reports that a model call did not produce a value conforming
// to the requested schema, either because the backend failed or because the
// output could not be decoded.
type InvocationError struct {
	// Schema is the name of the schema that was requested.
	Schema string

	// Raw is the model output, empty when the backend call itself failed.
	Raw string

	// Err is the underlying cause.
	Err error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model invocation failed (schema %s): %v", e.Schema, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvocation) match.
func (e *InvocationError) Is(target error) bool {
	return target == ErrInvocation
}

// Invoke sends a system instruction plus one user input and decodes the reply
// into out, which must be a pointer. The reply must be a JSON object holding
// every property the schema lists as required; malformed JSON is repaired once
// before giving up. opts are applied after the response schema.
func Invoke(ctx context.Context, provider Provider, systemPrompt, userInput string, schema *Schema, out interface{}, opts ...CompletionOption) error {
	if provider == nil {
		return &InvocationError{Schema: schemaName(schema), Err: errors.New("LLM provider not available")}
	}

	messages := []*types.Message{
		types.NewSystemMessage(systemPrompt),
		types.NewUserMessage(userInput),
	}

	resp, err := provider.Complete(ctx, messages, append([]CompletionOption{WithResponseSchema(schema)}, opts...)...)
	if err != nil {
		return &InvocationError{Schema: schemaName(schema), Err: err}
	}

	if err := DecodeStructured(resp.Content, schema, out); err != nil {
		return &InvocationError{Schema: schemaName(schema), Raw: resp.Content, Err: err}
	}
	return nil
}

// DecodeStructured extracts a JSON object from model output and decodes it into out.
func DecodeStructured(content string, schema *Schema, out interface{}) error {
	body := ExtractJSON(content)
	if body == "" {
		return errors.New("response contains no JSON object")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(body)
		if repairErr != nil {
			return fmt.Errorf("invalid JSON in response: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
			return fmt.Errorf("invalid JSON in response after repair: %w", err)
		}
		body = repaired
	}

	if obj == nil {
		return errors.New("response is not a JSON object")
	}
	if schema != nil {
		if err := schema.checkRequired(obj); err != nil {
			return err
		}
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}

// ExtractJSON returns the first JSON object in content, dropping markdown
// code fences and any prose around it. When no complete object decodes, it
// falls back to the span from the first "{" to the last "}" so the repair
// step can work on it. It returns "" when content has no opening brace.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	var first json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s[start:])).Decode(&first); err == nil {
		return string(first)
	}

	end := strings.LastIndex(s, "}")
	if end < start {
		// Unterminated object; let the repair step close it.
		return s[start:]
	}
	return s[start : end+1]
}

func schemaName(schema *Schema) string {
	if schema == nil || schema.Name == "" {
		return "unnamed"
	}
	return schema.Name
}
