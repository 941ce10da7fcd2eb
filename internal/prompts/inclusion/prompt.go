// Package inclusion holds the prompt that extracts individual inclusion
// criteria from the inclusion section text.
package inclusion

import (
	_ "embed"

	"github.com/jackzampolin/protocollens/internal/prompts"
)

//go:embed template.tmpl
var promptText string

// Version of the embedded template.
const Version = "1"

// Placeholder is the template variable carrying the section text.
const Placeholder = "text"

// RegisterPrompts registers the inclusion criteria prompt with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         prompts.StageInclusionCriteria,
		Version:     Version,
		Text:        promptText,
		Description: "Inclusion criteria extraction - one confidence-scored item per criterion",
		Schema:      mustSchema(),
	})
}
