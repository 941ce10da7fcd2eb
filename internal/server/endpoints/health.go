package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/protocollens/internal/api"
	"github.com/jackzampolin/protocollens/internal/providers"
	"github.com/jackzampolin/protocollens/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status   string `json:"status"`
	Pipeline string `json:"pipeline,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler reports ready only once a pipeline runtime is installed.
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if svcctx.RuntimeFrom(r.Context()) == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Pipeline: "not_initialized"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Pipeline: "ok"})
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (pipeline built)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:   %s\n", resp.Status)
			fmt.Printf("Pipeline: %s\n", resp.Pipeline)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server     string                     `json:"server" yaml:"server"`
	ConfigFile string                     `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	Home       string                     `json:"home,omitempty" yaml:"home,omitempty"`
	Pipeline   PipelineStatus             `json:"pipeline" yaml:"pipeline"`
	Providers  []providers.ProviderStatus `json:"providers" yaml:"providers"`
	Prompts    []PromptStatus             `json:"prompts" yaml:"prompts"`
}

// PipelineStatus shows which provider the pipeline runs on.
type PipelineStatus struct {
	Ready    bool   `json:"ready" yaml:"ready"`
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
}

// PromptStatus identifies the template in use for a stage.
type PromptStatus struct {
	Stage      string `json:"stage" yaml:"stage"`
	Version    string `json:"version" yaml:"version"`
	Hash       string `json:"hash" yaml:"hash"`
	IsOverride bool   `json:"is_override" yaml:"is_override"`
}

// StatusEndpoint handles GET /api/status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Server:    "running",
		Providers: []providers.ProviderStatus{},
		Prompts:   []PromptStatus{},
	}

	if mgr := svcctx.ConfigFrom(r.Context()); mgr != nil {
		resp.ConfigFile = mgr.ConfigFile()
	}
	if h := svcctx.HomeFrom(r.Context()); h != nil {
		resp.Home = h.Path()
	}

	if rt := svcctx.RuntimeFrom(r.Context()); rt != nil {
		resp.Pipeline = PipelineStatus{Ready: true, Provider: rt.Provider, Model: rt.Model}
	}

	if registry := svcctx.RegistryFrom(r.Context()); registry != nil {
		resp.Providers = registry.Status()
	}

	if store := svcctx.PromptsFrom(r.Context()); store != nil {
		for _, t := range store.List() {
			resp.Prompts = append(resp.Prompts, PromptStatus{
				Stage:      t.Stage,
				Version:    t.Version,
				Hash:       t.Hash,
				IsOverride: t.IsOverride,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/api/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
