package segmentation

import "encoding/json"

// ResponseSchema is the JSON schema for segmentation output.
// Section names are document-specific, so the sections object is open and
// the schema cannot be strict.
var ResponseSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "protocol_sections",
		"strict": false,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sections": map[string]any{
					"type":                 "object",
					"description":          "Section name to verbatim section text, in document order",
					"additionalProperties": map[string]any{"type": "string"},
				},
			},
			"required": []string{"sections"},
		},
	},
}

func mustSchema() json.RawMessage {
	b, err := json.Marshal(ResponseSchema)
	if err != nil {
		panic(err)
	}
	return b
}
