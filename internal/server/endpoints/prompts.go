package endpoints

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/protocollens/internal/api"
	"github.com/jackzampolin/protocollens/internal/prompts"
	"github.com/jackzampolin/protocollens/internal/protocol"
	"github.com/jackzampolin/protocollens/internal/svcctx"
)

// PromptsListResponse contains all prompts.
type PromptsListResponse struct {
	Prompts []prompts.Template `json:"prompts" yaml:"prompts"`
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

// handler returns the template in use for every stage, overrides applied.
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.PromptsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusInternalServerError, "prompt store not available")
		return
	}
	writeJSON(w, http.StatusOK, PromptsListResponse{Prompts: store.List()})
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(cmd.Context(), "/api/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{stage}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{stage}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	stage, err := url.PathUnescape(r.PathValue("stage"))
	if err != nil || stage == "" {
		writeError(w, http.StatusBadRequest, "invalid stage")
		return
	}

	store := svcctx.PromptsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusInternalServerError, "prompt store not available")
		return
	}

	tmpl, err := store.Get(stage)
	if err != nil {
		var notFound *protocol.TemplateNotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, "prompt not found: "+stage)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <stage>",
		Short: "Get the prompt for a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp prompts.Template
			if err := client.Get(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
