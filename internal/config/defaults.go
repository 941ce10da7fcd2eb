package config

import (
	"errors"
	"fmt"
	"sort"
	"unicode"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// Entry is a single documented configuration key.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// DefaultEntries returns every default configuration key with its value
// and a description. Viper defaults are seeded from this list, so each key
// can also be overridden through a PROTOCOLLENS_ environment variable.
func DefaultEntries() []Entry {
	d := DefaultConfig()

	entries := []Entry{
		// ===================
		// Pipeline
		// ===================
		{
			Key:         "pipeline.llm_provider",
			Value:       d.Pipeline.LLMProvider,
			Description: "LLM provider used for both pipeline stages",
		},
		{
			Key:         "pipeline.temperature",
			Value:       d.Pipeline.Temperature,
			Description: "Sampling temperature for model calls",
		},
		{
			Key:         "pipeline.max_tokens",
			Value:       d.Pipeline.MaxTokens,
			Description: "Maximum completion tokens per call (0 = provider default)",
		},
		{
			Key:         "pipeline.call_timeout",
			Value:       d.Pipeline.CallTimeout,
			Description: "Timeout for a single model call",
		},
		{
			Key:         "pipeline.retry_attempts",
			Value:       d.Pipeline.RetryAttempts,
			Description: "Total attempts for transient upstream failures (1 disables retries)",
		},
		{
			Key:         "pipeline.retry_delay",
			Value:       d.Pipeline.RetryDelay,
			Description: "Base backoff delay between retries",
		},
		{
			Key:         "pipeline.structured_output",
			Value:       d.Pipeline.StructuredOutput,
			Description: "Send stage JSON schemas as a json_schema response format",
		},
		{
			Key:         "pipeline.prompts_dir",
			Value:       d.Pipeline.PromptsDir,
			Description: "Directory of {stage}.tmpl prompt overrides, read once at startup",
		},

		// ===================
		// Document
		// ===================
		{
			Key:         "document.max_input_tokens",
			Value:       d.Document.MaxInputTokens,
			Description: "Approximate token budget for protocol text (4 characters per token)",
		},
		{
			Key:         "document.clean",
			Value:       d.Document.Clean,
			Description: "Normalize whitespace, page markers and footers before analysis",
		},

		// ===================
		// Server
		// ===================
		{
			Key:         "server.host",
			Value:       d.Server.Host,
			Description: "HTTP server bind host",
		},
		{
			Key:         "server.port",
			Value:       d.Server.Port,
			Description: "HTTP server port",
		},
		{
			Key:         "server.read_timeout",
			Value:       d.Server.ReadTimeout,
			Description: "HTTP read timeout",
		},
		{
			Key:         "server.write_timeout",
			Value:       d.Server.WriteTimeout,
			Description: "HTTP write timeout, 0 derives it from call_timeout and retry_attempts",
		},
		{
			Key:         "server.max_upload_bytes",
			Value:       d.Server.MaxUploadBytes,
			Description: "Maximum accepted request body size",
		},
	}

	// ===================
	// LLM Providers
	// ===================
	names := make([]string, 0, len(d.LLMProviders))
	for name := range d.LLMProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := d.LLMProviders[name]
		prefix := "llm_providers." + name + "."
		entries = append(entries,
			Entry{Key: prefix + "type", Value: p.Type, Description: "LLM provider type for " + name},
			Entry{Key: prefix + "base_url", Value: p.BaseURL, Description: "OpenAI-compatible endpoint for " + name},
			Entry{Key: prefix + "model", Value: p.Model, Description: "Model for " + name},
			Entry{Key: prefix + "api_key", Value: p.APIKey, Description: "API key for " + name + " (uses environment variable)"},
			Entry{Key: prefix + "rate_limit", Value: p.RateLimit, Description: "Requests per minute for " + name},
			Entry{Key: prefix + "daily_limit", Value: p.DailyLimit, Description: "Requests per UTC day for " + name},
			Entry{Key: prefix + "timeout", Value: p.Timeout, Description: "HTTP timeout for " + name},
			Entry{Key: prefix + "enabled", Value: p.Enabled, Description: "Whether " + name + " is enabled"},
		)
	}

	return entries
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}
