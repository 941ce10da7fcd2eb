package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/protocollens/internal/api"
	"github.com/jackzampolin/protocollens/internal/metrics"
	"github.com/jackzampolin/protocollens/internal/svcctx"
)

// MetricsResponse summarizes gateway calls since the server started.
type MetricsResponse struct {
	Total   int64                      `json:"total" yaml:"total"`
	Summary metrics.Summary            `json:"summary" yaml:"summary"`
	ByStage map[string]metrics.Summary `json:"by_stage" yaml:"by_stage"`
	Stats   metrics.DetailedStats      `json:"stats" yaml:"stats"`
	Recent  []metrics.Metric           `json:"recent" yaml:"recent"`
}

// MetricsEndpoint handles GET /api/metrics.
type MetricsEndpoint struct{}

var _ api.Endpoint = (*MetricsEndpoint)(nil)

func (e *MetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics", e.handler
}

func (e *MetricsEndpoint) RequiresInit() bool { return false }

// handler reports token usage, latency percentiles and failures for recent
// LLM calls, optionally narrowed to one stage or provider.
func (e *MetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rec := svcctx.MetricsFrom(r.Context())
	if rec == nil {
		writeError(w, http.StatusInternalServerError, "metrics not available")
		return
	}

	q := r.URL.Query()
	f := metrics.Filter{Stage: q.Get("stage"), Provider: q.Get("provider")}

	limit := 20
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, MetricsResponse{
		Total:   rec.Total(),
		Summary: rec.Summary(f),
		ByStage: rec.SummaryByStage(f),
		Stats:   rec.DetailedStats(f),
		Recent:  rec.List(f, limit),
	})
}

func (e *MetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var stage, provider string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show LLM call metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			q := url.Values{"limit": {"10"}}
			if stage != "" {
				q.Set("stage", stage)
			}
			if provider != "" {
				q.Set("provider", provider)
			}
			var resp MetricsResponse
			if err := client.Get(cmd.Context(), "/api/metrics?"+q.Encode(), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by stage")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	return cmd
}
