package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text. The returned document is the
// compacted candidate text, so object key order is exactly as the model wrote it.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		if !json.Valid([]byte(candidate)) {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(candidate)); err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("failed to parse structured JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop the opening fence, with its optional language tag.
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start := -1
	closeChar := ""
	switch {
	case objectStart >= 0 && arrayStart >= 0:
		if objectStart < arrayStart {
			start = objectStart
			closeChar = "}"
		} else {
			start = arrayStart
			closeChar = "]"
		}
	case objectStart >= 0:
		start = objectStart
		closeChar = "}"
	case arrayStart >= 0:
		start = arrayStart
		closeChar = "]"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// SchemaSpec is a response schema split into the parts the chat API takes.
type SchemaSpec struct {
	Name   string
	Strict bool
	Schema map[string]any
}

// ParseSchemaSpec reads a schema in either wrapper form
// ({"type":"json_schema","json_schema":{...}} or {"name","strict","schema"})
// or as a bare schema document.
func ParseSchemaSpec(schemaRaw json.RawMessage) (*SchemaSpec, error) {
	var root map[string]any
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}

	if inner, ok := root["json_schema"].(map[string]any); ok {
		root = inner
	}

	spec := &SchemaSpec{Name: "response"}
	if name, ok := root["name"].(string); ok && name != "" {
		spec.Name = name
	}
	if strict, ok := root["strict"].(bool); ok {
		spec.Strict = strict
	}
	if schema, ok := root["schema"].(map[string]any); ok {
		spec.Schema = schema
	} else {
		spec.Schema = root
	}
	return spec, nil
}

// SchemaValidator validates documents against response schemas, caching
// compiled schemas by their text.
type SchemaValidator struct {
	compiled sync.Map // string -> *jsonschema.Schema
}

// Validate checks doc against schemaRaw. An empty schema always passes.
func (v *SchemaValidator) Validate(schemaRaw, doc json.RawMessage) error {
	if len(schemaRaw) == 0 || len(doc) == 0 {
		return nil
	}

	schema, err := v.compile(schemaRaw)
	if err != nil {
		return err
	}

	var decoded any
	if err := json.Unmarshal(doc, &decoded); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func (v *SchemaValidator) compile(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaRaw)
	if s, ok := v.compiled.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	spec, err := ParseSchemaSpec(schemaRaw)
	if err != nil {
		return nil, err
	}
	coreSchema, err := json.Marshal(spec.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize inner schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(coreSchema)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}

	v.compiled.Store(key, schema)
	return schema, nil
}
