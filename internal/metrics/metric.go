// Package metrics keeps usage statistics for LLM gateway calls.
//
// Metrics live in memory for the life of the process, in a bounded ring of
// the most recent calls. Nothing is persisted.
package metrics

import "time"

// Metric is one completed (or failed) gateway call.
type Metric struct {
	RequestID string `json:"request_id" yaml:"request_id"`
	Stage     string `json:"stage" yaml:"stage"`

	// Provider info
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`

	// Tokens
	PromptTokens     int `json:"prompt_tokens,omitempty" yaml:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty" yaml:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty" yaml:"total_tokens,omitempty"`

	// Timing
	LatencySeconds float64 `json:"latency_seconds" yaml:"latency_seconds"`

	// Status
	Success   bool   `json:"success" yaml:"success"`
	ErrorType string `json:"error_type,omitempty" yaml:"error_type,omitempty"` // Upstream kind or "malformed"

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Filter selects metrics. Empty fields match anything.
type Filter struct {
	Stage    string
	Provider string
	Success  *bool // nil = any, true = success only, false = errors only
}

func (f Filter) matches(m Metric) bool {
	if f.Stage != "" && m.Stage != f.Stage {
		return false
	}
	if f.Provider != "" && m.Provider != f.Provider {
		return false
	}
	if f.Success != nil && m.Success != *f.Success {
		return false
	}
	return true
}
