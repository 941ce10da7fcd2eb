package svcctx

import (
	"fmt"
	"log/slog"

	"github.com/jackzampolin/protocollens/internal/config"
	"github.com/jackzampolin/protocollens/internal/document"
	"github.com/jackzampolin/protocollens/internal/gateway"
	"github.com/jackzampolin/protocollens/internal/home"
	"github.com/jackzampolin/protocollens/internal/metrics"
	"github.com/jackzampolin/protocollens/internal/pipeline"
	"github.com/jackzampolin/protocollens/internal/prompts"
	"github.com/jackzampolin/protocollens/internal/prompts/builtin"
	"github.com/jackzampolin/protocollens/internal/providers"
)

// Runtime is one immutable build of the analysis pipeline and the settings
// that go with it.
type Runtime struct {
	Pipeline       *pipeline.Pipeline
	Provider       string
	Model          string
	Document       document.PrepareOptions
	MaxUploadBytes int64
}

// Deps are the long-lived services a Runtime is built from.
type Deps struct {
	Registry *providers.Registry
	Prompts  *prompts.Store
	Metrics  *metrics.Recorder // Optional
	Logger   *slog.Logger
}

// NewRuntime builds a pipeline on the configured LLM provider.
// A non-empty provider overrides pipeline.llm_provider.
func NewRuntime(cfg *config.Config, deps Deps, provider string) (*Runtime, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if provider == "" {
		provider = cfg.Pipeline.LLMProvider
	}

	llm, err := deps.Registry.GetLLM(provider)
	if err != nil {
		return nil, fmt.Errorf("provider %q is not available (is it enabled with an api_key?): %w", provider, err)
	}

	cc := gateway.Config{
		LLM:              llm,
		Temperature:      cfg.Pipeline.Temperature,
		MaxTokens:        cfg.Pipeline.MaxTokens,
		Timeout:          cfg.Pipeline.CallTimeout,
		StructuredOutput: cfg.Pipeline.StructuredOutput,
		Logger:           logger,
	}
	if deps.Metrics != nil { // a nil *Recorder must not become a non-nil interface
		cc.Metrics = deps.Metrics
	}
	client, err := gateway.New(cc)
	if err != nil {
		return nil, err
	}
	var gw gateway.Gateway = client
	if cfg.Pipeline.RetryAttempts > 1 {
		gw = gateway.WithRetry(client, gateway.RetryConfig{
			Attempts: cfg.Pipeline.RetryAttempts,
			Delay:    cfg.Pipeline.RetryDelay,
			MaxDelay: config.RetryBackoffCap,
			Logger:   logger,
		})
	}

	p, err := pipeline.NewFromGateway(deps.Prompts, gw, logger)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Pipeline: p,
		Provider: provider,
		Model:    llm.Model(),
		Document: document.PrepareOptions{
			Clean:     cfg.Document.Clean,
			MaxTokens: cfg.Document.MaxInputTokens,
		},
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, nil
}

// BootstrapConfig configures NewServices and Bootstrap.
type BootstrapConfig struct {
	ConfigManager *config.Manager
	Home          *home.Dir
	Logger        *slog.Logger
	Provider      string // Overrides pipeline.llm_provider when set
}

// NewServices loads the prompt store and creates an empty provider
// registry. No runtime is installed until Reload succeeds. Prompt parse
// errors fail here.
func NewServices(cfg BootstrapConfig) (*Services, error) {
	if cfg.ConfigManager == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	store, err := builtin.Load(promptsDir(cfg.ConfigManager.Get(), cfg.Home), cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)

	return &Services{
		Registry: registry,
		Prompts:  store,
		Metrics:  metrics.NewRecorder(metrics.DefaultCapacity),
		Config:   cfg.ConfigManager,
		Logger:   cfg.Logger,
		Home:     cfg.Home,
		provider: cfg.Provider,
	}, nil
}

// Bootstrap is NewServices followed by a Reload from the current config.
// A provider that cannot be built is an error.
func Bootstrap(cfg BootstrapConfig) (*Services, error) {
	s, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Reload(cfg.ConfigManager.Get()); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the registry and runtime from c. A provider override
// given at construction survives reloads. When the new runtime cannot be
// built the previous one stays in place.
func (s *Services) Reload(c *config.Config) error {
	s.Registry.Reload(c.ToProviderRegistryConfig(s.Logger))

	rt, err := NewRuntime(c, Deps{
		Registry: s.Registry,
		Prompts:  s.Prompts,
		Metrics:  s.Metrics,
		Logger:   s.Logger,
	}, s.provider)
	if err != nil {
		return err
	}
	s.SetRuntime(rt)
	s.Logger.Debug("runtime.installed", "provider", rt.Provider, "model", rt.Model)
	return nil
}

func promptsDir(c *config.Config, h *home.Dir) string {
	if c.Pipeline.PromptsDir != "" {
		return c.Pipeline.PromptsDir
	}
	if h != nil {
		return h.PromptsPath()
	}
	return ""
}
