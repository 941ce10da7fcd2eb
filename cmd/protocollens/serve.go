package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/protocollens/internal/server"
)

var (
	serveHost     string
	servePort     string
	serveProvider string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ProtocolLens server",
	Long: `Start the ProtocolLens HTTP server.

The server provides:
  - /health            Basic server health check
  - /ready             Readiness check (pipeline built)
  - /api/status        Provider quotas and prompt versions
  - /api/metrics       Token usage and latency of recent LLM calls
  - /api/analyze       Analyze an uploaded protocol
  - /api/prompts       Loaded prompt templates

The config file is watched: provider, pipeline and document settings are
picked up without a restart.

Examples:
  protocollens serve                    # Start on default port 8080
  protocollens serve --port 3000        # Start on custom port
  protocollens serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Server logs default to info unless --log-level was given
		if !cmd.Flags().Changed("log-level") {
			logLevel = slog.LevelInfo.String()
		}
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		if err := env.home.EnsureExists(); err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: env.config,
			Home:          env.home,
			Provider:      serveProvider,
			Logger:        env.logger,
		})
		if err != nil {
			return err
		}

		if env.config.ConfigFile() == "" {
			env.logger.Warn("serve.no_config_file", "hint", "run 'protocollens config init' to create one")
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "LLM provider to use (default: pipeline.llm_provider)")

	rootCmd.AddCommand(serveCmd)
}

