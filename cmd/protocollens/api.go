package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/protocollens/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running ProtocolLens server via HTTP.

These commands require a running server (protocollens serve).
Use --server to specify a custom server URL.

Examples:
  protocollens api health                  # Check server health
  protocollens api analyze protocol.pdf    # Analyze a protocol remotely
  protocollens api prompts list            # List loaded prompt templates
  protocollens api status                  # Show provider quotas`,
}

var apiPromptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Prompt template commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.MetricsEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand((&endpoints.AnalyzeEndpoint{}).Command(getServerURL))

	// Prompts as subcommand group
	for _, ep := range endpoints.PromptCommands() {
		apiPromptsCmd.AddCommand(ep.Command(getServerURL))
	}
	apiCmd.AddCommand(apiPromptsCmd)

	rootCmd.AddCommand(apiCmd)
}
