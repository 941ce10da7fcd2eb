package inclusion

import "encoding/json"

// ResponseSchema is the JSON schema for inclusion criteria output.
var ResponseSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "inclusion_criteria",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"criteria": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"text": map[string]any{
								"type":        "string",
								"description": "One atomic inclusion criterion, original wording",
							},
							"confidence": map[string]any{
								"type":        "number",
								"minimum":     0,
								"maximum":     1,
								"description": "Confidence that this is a correctly delimited inclusion criterion",
							},
						},
						"required":             []string{"text", "confidence"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"criteria"},
			"additionalProperties": false,
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
