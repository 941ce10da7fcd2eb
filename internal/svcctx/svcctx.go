// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/jackzampolin/protocollens/internal/config"
	"github.com/jackzampolin/protocollens/internal/home"
	"github.com/jackzampolin/protocollens/internal/metrics"
	"github.com/jackzampolin/protocollens/internal/prompts"
	"github.com/jackzampolin/protocollens/internal/providers"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
//
// The pipeline runtime is swapped atomically on config reload, so a request
// that already picked up a Runtime finishes on it.
type Services struct {
	Registry *providers.Registry
	Prompts  *prompts.Store
	Metrics  *metrics.Recorder
	Config   *config.Manager
	Logger   *slog.Logger
	Home     *home.Dir

	provider string // Bootstrap override of pipeline.llm_provider
	runtime  atomic.Pointer[Runtime]
}

// Runtime returns the current pipeline runtime, or nil before one is built.
func (s *Services) Runtime() *Runtime {
	return s.runtime.Load()
}

// SetRuntime installs rt as the current runtime.
func (s *Services) SetRuntime(rt *Runtime) {
	s.runtime.Store(rt)
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// PromptsFrom extracts the prompt store from context.
func PromptsFrom(ctx context.Context) *prompts.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// MetricsFrom extracts the gateway call metrics from context.
func MetricsFrom(ctx context.Context) *metrics.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Metrics
	}
	return nil
}

// RuntimeFrom extracts the current pipeline runtime from context.
func RuntimeFrom(ctx context.Context) *Runtime {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runtime()
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}
