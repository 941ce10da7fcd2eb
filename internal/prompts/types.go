// Package prompts provides the stage prompt templates with embedded defaults
// and optional file overrides.
//
// The package works in two phases:
//   - Each stage package registers its embedded .tmpl default with a Resolver
//   - Resolver.Load freezes the registrations into a Store, applying any
//     override files found in the configured prompts directory
//
// Resolution order for a stage:
//  1. Override file {prompts_dir}/{stage}.tmpl (if it exists)
//  2. Embedded default (from .tmpl files in code)
//
// A Store is immutable once loaded. Parse errors surface at load time, so a
// broken template fails the process at startup rather than mid-pipeline.
package prompts

import (
	"encoding/json"
)

// Stage identifiers.
const (
	StageSegmentation      = "segmentation"
	StageInclusionCriteria = "inclusion_criteria"
)

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string          // Stage identifier: segmentation, inclusion_criteria
	Version     string          // Template version, bumped when the wording changes
	Text        string          // The prompt text (Go template)
	Description string          // Human-readable description
	Variables   []string        // Extracted template variables
	Hash        string          // SHA256 hash of the text for change detection
	Schema      json.RawMessage // Expected response shape (JSON schema)
}

// Template is a loaded, parse-checked prompt template.
type Template struct {
	Stage       string          `json:"stage" yaml:"stage"`
	Version     string          `json:"version" yaml:"version"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Text        string          `json:"text" yaml:"text"`
	Variables   []string        `json:"variables" yaml:"variables"`
	Hash        string          `json:"hash" yaml:"hash"`
	IsOverride  bool            `json:"is_override" yaml:"is_override"`
	Source      string          `json:"source,omitempty" yaml:"source,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty" yaml:"-"`
}

// Rendered is a template with its arguments substituted.
type Rendered struct {
	Stage   string
	Version string
	Hash    string
	Text    string
	Schema  json.RawMessage
}
