package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/protocollens/internal/api"
	"github.com/jackzampolin/protocollens/internal/config"
	"github.com/jackzampolin/protocollens/internal/home"
	"github.com/jackzampolin/protocollens/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	logFormat    string
)

var rootCmd = &cobra.Command{
	Use:   "protocollens",
	Short: "Extract inclusion criteria from clinical trial protocols",
	Long: `ProtocolLens reads a clinical trial protocol and extracts its inclusion
criteria with an LLM.

The pipeline runs in two stages:
  - Segmentation splits the protocol into named sections
  - Extraction turns the inclusion criteria section into individual
    criteria, each with a confidence score

Protocols can be plain text, markdown or PDF. Gemini is the default model
provider; any OpenAI-compatible endpoint can be configured.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.protocollens/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "protocollens home directory (default: ~/.protocollens)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or table",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level: debug, info, warn or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "text", "log format: text or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger from --log-level and --log-format.
func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(logFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q", logFormat)
	}
}

// environment is what every command that runs the pipeline needs.
type environment struct {
	logger *slog.Logger
	home   *home.Dir
	config *config.Manager
}

// loadEnvironment resolves the logger, home directory and config.
// Logs go to stderr so stdout carries only command output.
func loadEnvironment() (*environment, error) {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return nil, err
	}

	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	mgr.SetLogger(logger)

	return &environment{logger: logger, home: h, config: mgr}, nil
}
