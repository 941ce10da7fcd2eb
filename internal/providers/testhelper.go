package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// This allows tests to use the same configuration pattern as production.
type TestConfig struct {
	GeminiAPIKey string
	BaseURL      string
	Model        string
}

// LoadTestConfig loads provider settings from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	cfg := TestConfig{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		BaseURL:      os.Getenv("PROTOCOLLENS_TEST_BASE_URL"),
		Model:        os.Getenv("PROTOCOLLENS_TEST_MODEL"),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	return cfg
}

// HasGemini returns true if a Gemini API key is configured.
func (c TestConfig) HasGemini() bool {
	return c.GeminiAPIKey != ""
}
