package config

import (
	"time"

	"github.com/jackzampolin/protocollens/internal/providers"
)

// Config holds protocollens configuration.
// Stored at: ./config.yaml or $HOME/.protocollens/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Pipeline     PipelineCfg               `mapstructure:"pipeline" yaml:"pipeline"`
	Document     DocumentCfg               `mapstructure:"document" yaml:"document"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type       string        `mapstructure:"type" yaml:"type"`               // "openai" (any OpenAI-compatible endpoint)
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`       // Endpoint, Gemini's OpenAI-compatible API by default
	Model      string        `mapstructure:"model" yaml:"model"`             // Model name
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`         // API key (supports ${ENV_VAR} syntax)
	RateLimit  int           `mapstructure:"rate_limit" yaml:"rate_limit"`   // Requests per minute
	DailyLimit int           `mapstructure:"daily_limit" yaml:"daily_limit"` // Requests per UTC day, 0 = unlimited
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`         // HTTP timeout
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
}

// PipelineCfg configures how the pipeline talks to the model.
type PipelineCfg struct {
	LLMProvider      string        `mapstructure:"llm_provider" yaml:"llm_provider"`
	Temperature      float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	CallTimeout      time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	RetryAttempts    uint          `mapstructure:"retry_attempts" yaml:"retry_attempts"` // 1 = no retries
	RetryDelay       time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	StructuredOutput bool          `mapstructure:"structured_output" yaml:"structured_output"`
	PromptsDir       string        `mapstructure:"prompts_dir" yaml:"prompts_dir"` // Optional {stage}.tmpl overrides
}

// DocumentCfg configures document preparation.
type DocumentCfg struct {
	MaxInputTokens int  `mapstructure:"max_input_tokens" yaml:"max_input_tokens"`
	Clean          bool `mapstructure:"clean" yaml:"clean"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host           string        `mapstructure:"host" yaml:"host"`
	Port           string        `mapstructure:"port" yaml:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"` // 0 = derived from the pipeline run budget
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini-flash": {
				Type:       providers.OpenAIType,
				BaseURL:    providers.GeminiOpenAIBaseURL,
				Model:      "gemini-1.5-flash",
				APIKey:     "${GEMINI_API_KEY}",
				RateLimit:  15,
				DailyLimit: 1000,
				Timeout:    2 * time.Minute,
				Enabled:    true,
			},
			"gemini-pro": {
				Type:       providers.OpenAIType,
				BaseURL:    providers.GeminiOpenAIBaseURL,
				Model:      "gemini-1.5-pro",
				APIKey:     "${GEMINI_API_KEY}",
				RateLimit:  2,
				DailyLimit: 50,
				Timeout:    2 * time.Minute,
				Enabled:    true,
			},
		},
		Pipeline: PipelineCfg{
			LLMProvider:      "gemini-flash",
			Temperature:      0.1,
			MaxTokens:        8192,
			CallTimeout:      90 * time.Second,
			RetryAttempts:    3,
			RetryDelay:       2 * time.Second,
			StructuredOutput: false,
		},
		Document: DocumentCfg{
			MaxInputTokens: 100000,
			Clean:          true,
		},
		Server: ServerCfg{
			Host:           "127.0.0.1",
			Port:           "8080",
			ReadTimeout:    30 * time.Second,
			MaxUploadBytes: 32 << 20,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// RetryBackoffCap bounds the wait between retries of one model call.
const RetryBackoffCap = 30 * time.Second

// writeTimeoutSlack covers document parsing and response encoding on top of
// the model calls.
const writeTimeoutSlack = 30 * time.Second

// RunBudget is the longest a successful analysis can spend on model calls:
// two stages, each tried RetryAttempts times with capped backoff between
// tries. Provider Retry-After hints longer than the cap are not covered.
func (p PipelineCfg) RunBudget() time.Duration {
	attempts := time.Duration(max(p.RetryAttempts, 1))
	return 2 * (attempts*p.CallTimeout + (attempts-1)*RetryBackoffCap)
}

// EffectiveWriteTimeout is server.write_timeout when set, otherwise the run
// budget plus slack, so a slow but successful analysis keeps its response.
func (c *Config) EffectiveWriteTimeout() time.Duration {
	if c.Server.WriteTimeout > 0 {
		return c.Server.WriteTimeout
	}
	return c.Pipeline.RunBudget() + writeTimeoutSlack
}

// ServerAddr returns host:port for the HTTP server.
func (c *Config) ServerAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}
