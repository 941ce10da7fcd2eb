package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/protocollens/internal/providers"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	flash, ok := cfg.GetLLMProvider("gemini-flash")
	if !ok {
		t.Fatal("expected gemini-flash provider")
	}
	if flash.APIKey != "${GEMINI_API_KEY}" {
		t.Error("expected Gemini API key placeholder")
	}
	if flash.DailyLimit != 1000 {
		t.Errorf("expected flash daily limit 1000, got %d", flash.DailyLimit)
	}
	if pro, _ := cfg.GetLLMProvider("gemini-pro"); pro.DailyLimit != 50 {
		t.Errorf("expected pro daily limit 50, got %d", pro.DailyLimit)
	}
	if cfg.Pipeline.LLMProvider != "gemini-flash" {
		t.Errorf("expected gemini-flash as default provider, got %s", cfg.Pipeline.LLMProvider)
	}
	if cfg.Document.MaxInputTokens != 100000 {
		t.Errorf("expected 100000 input tokens, got %d", cfg.Document.MaxInputTokens)
	}
	if len(cfg.EnabledLLMProviders()) != 2 {
		t.Errorf("expected 2 enabled providers, got %d", len(cfg.EnabledLLMProviders()))
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gm-key-123")

	rc := DefaultConfig().ToProviderRegistryConfig(nil)
	flash, ok := rc.LLMProviders["gemini-flash"]
	if !ok {
		t.Fatal("expected gemini-flash in registry config")
	}
	want := providers.LLMProviderConfig{
		Type:       providers.OpenAIType,
		BaseURL:    providers.GeminiOpenAIBaseURL,
		Model:      "gemini-1.5-flash",
		APIKey:     "gm-key-123",
		RateLimit:  15,
		DailyLimit: 1000,
		Timeout:    2 * time.Minute,
		Enabled:    true,
	}
	if flash != want {
		t.Errorf("unexpected provider config:\n got %+v\nwant %+v", flash, want)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
pipeline:
  llm_provider: local
  call_timeout: 30s
llm_providers:
  local:
    type: openai
    base_url: http://localhost:11434/v1
    model: llama3
    api_key: none
    enabled: true
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Pipeline.LLMProvider != "local" {
			t.Errorf("expected local, got %s", cfg.Pipeline.LLMProvider)
		}
		if cfg.Pipeline.CallTimeout != 30*time.Second {
			t.Errorf("expected 30s call timeout, got %s", cfg.Pipeline.CallTimeout)
		}
		if cfg.Pipeline.RetryAttempts != 3 {
			t.Errorf("expected default retry attempts, got %d", cfg.Pipeline.RetryAttempts)
		}
		if local := cfg.LLMProviders["local"]; local.Model != "llama3" || !local.Enabled {
			t.Errorf("unexpected local provider: %+v", local)
		}
		if _, ok := cfg.LLMProviders["gemini-flash"]; !ok {
			t.Error("expected default providers to remain configured")
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("unexpected config file: %s", mgr.ConfigFile())
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("PROTOCOLLENS_PIPELINE_LLM_PROVIDER", "gemini-pro")
		t.Setenv("PROTOCOLLENS_SERVER_PORT", "9999")

		mgr, err := NewManager(writeConfig(t, "document:\n  max_input_tokens: 5000\n"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Pipeline.LLMProvider != "gemini-pro" {
			t.Errorf("expected env override, got %s", cfg.Pipeline.LLMProvider)
		}
		if cfg.ServerAddr() != "127.0.0.1:9999" {
			t.Errorf("unexpected server addr %s", cfg.ServerAddr())
		}
		if cfg.Document.MaxInputTokens != 5000 {
			t.Errorf("expected 5000, got %d", cfg.Document.MaxInputTokens)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := NewManager(writeConfig(t, "pipeline: [unterminated")); err == nil {
			t.Fatal("expected error for invalid config file")
		}
	})
}

func TestManager_Value(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "server:\n  port: \"7000\"\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	v, err := mgr.Value("server.port")
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != "7000" {
		t.Errorf("expected 7000, got %v", v)
	}
	if _, err := mgr.Value("server port"); err == nil {
		t.Error("expected error for invalid key")
	}
	if _, err := mgr.Value("server.nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "pipeline:\n  temperature: 0.5\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Register multiple callbacks
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "pipeline:\n  temperature: 0.5\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Pipeline.Temperature
			}
			done <- struct{}{}
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "pipeline:\n  llm_provider: gemini-flash\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Track callback invocations
	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Pipeline.LLMProvider)
	})

	// Start watching
	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("pipeline:\n  llm_provider: gemini-pro\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}
	if got := mgr.Get().Pipeline.LLMProvider; got != "gemini-pro" {
		t.Errorf("config not updated: expected gemini-pro, got %s", got)
	}
	if v := lastValue.Load(); v != "gemini-pro" {
		t.Errorf("callback received wrong value: expected gemini-pro, got %v", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written config: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Pipeline.CallTimeout != 90*time.Second {
		t.Errorf("expected 90s call timeout, got %s", cfg.Pipeline.CallTimeout)
	}
	if flash := cfg.LLMProviders["gemini-flash"]; flash.APIKey != "${GEMINI_API_KEY}" || flash.Timeout != 2*time.Minute {
		t.Errorf("unexpected flash config: %+v", flash)
	}

	if err := WriteDefault(path); err == nil {
		t.Error("expected WriteDefault to refuse overwriting")
	}
}

func TestEffectiveWriteTimeout(t *testing.T) {
	cfg := DefaultConfig()

	// 2 stages * (3 attempts * 90s + 2 backoffs * 30s) = 11m, plus slack.
	if got := cfg.Pipeline.RunBudget(); got != 11*time.Minute {
		t.Fatalf("RunBudget() = %s, want 11m", got)
	}
	if got := cfg.EffectiveWriteTimeout(); got != 11*time.Minute+30*time.Second {
		t.Fatalf("EffectiveWriteTimeout() = %s", got)
	}
	if cfg.EffectiveWriteTimeout() <= cfg.Pipeline.RunBudget() {
		t.Fatal("derived write timeout must exceed the run budget")
	}

	cfg.Pipeline.RetryAttempts = 0
	if got := cfg.Pipeline.RunBudget(); got != 3*time.Minute {
		t.Fatalf("RunBudget() without retries = %s, want 3m", got)
	}

	cfg.Server.WriteTimeout = time.Minute
	if got := cfg.EffectiveWriteTimeout(); got != time.Minute {
		t.Fatalf("explicit write timeout not honored: %s", got)
	}
}
