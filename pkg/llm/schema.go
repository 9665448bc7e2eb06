package llm

import "fmt"

// Schema names a JSON schema that model output must satisfy.
type Schema struct {
	// Name identifies the schema in the request (letters, digits, '_' and '-').
	Name string

	// Description tells the model what the object represents.
	Description string

	// Definition is the JSON schema object.
	Definition map[string]interface{}
}

// ObjectSchema builds an object schema whose listed properties are all required.
func ObjectSchema(name, description string, properties map[string]interface{}, required []string) *Schema {
	return &Schema{
		Name:        name,
		Description: description,
		Definition: map[string]interface{}{
			"type":                 "object",
			"properties":           properties,
			"required":             required,
			"additionalProperties": false,
		},
	}
}

// Required returns the schema's required property names.
func (s *Schema) Required() []string {
	if s == nil || s.Definition == nil {
		return nil
	}
	switch req := s.Definition["required"].(type) {
	case []string:
		return req
	case []interface{}:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok {
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}

// checkRequired verifies every required key is present and non-null in obj.
func (s *Schema) checkRequired(obj map[string]interface{}) error {
	for _, key := range s.Required() {
		v, ok := obj[key]
		if !ok || v == nil {
			return fmt.Errorf("missing required field %q", key)
		}
	}
	return nil
}
