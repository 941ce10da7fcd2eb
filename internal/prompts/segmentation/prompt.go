// Package segmentation holds the prompt that splits a protocol into named sections.
package segmentation

import (
	_ "embed"

	"github.com/jackzampolin/protocollens/internal/prompts"
)

//go:embed template.tmpl
var promptText string

// Version of the embedded template.
const Version = "1"

// Placeholder is the template variable carrying the protocol text.
const Placeholder = "protocol_text"

// RegisterPrompts registers the segmentation prompt with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         prompts.StageSegmentation,
		Version:     Version,
		Text:        promptText,
		Description: "Section segmentation - splits a protocol into named sections",
		Schema:      mustSchema(),
	})
}
