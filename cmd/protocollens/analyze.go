package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/protocollens/internal/api"
	"github.com/jackzampolin/protocollens/internal/document"
	"github.com/jackzampolin/protocollens/internal/protocol"
	"github.com/jackzampolin/protocollens/internal/svcctx"
)

var (
	analyzeProvider  string
	analyzeNoClean   bool
	analyzeMaxTokens int
	analyzeSave      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Extract inclusion criteria from a protocol document",
	Long: `Analyze a clinical trial protocol locally.

The document (.pdf, .txt, .md, or - for stdin) is segmented into sections,
the inclusion criteria section is located, and each criterion is extracted
with a confidence score.

Examples:
  protocollens analyze protocol.pdf
  protocollens analyze protocol.md -o table
  cat protocol.txt | protocollens analyze - -o json
  protocollens analyze protocol.pdf --provider gemini-pro --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		doc, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		services, err := svcctx.Bootstrap(svcctx.BootstrapConfig{
			ConfigManager: env.config,
			Home:          env.home,
			Logger:        env.logger,
			Provider:      analyzeProvider,
		})
		if err != nil {
			return err
		}
		rt := services.Runtime()

		opts := rt.Document
		if analyzeNoClean {
			opts.Clean = false
		}
		if analyzeMaxTokens > 0 {
			opts.MaxTokens = analyzeMaxTokens
		}
		text := doc.Prepare(opts)
		if doc.Metadata.Truncated {
			env.logger.Warn("analyze.truncated", "source", doc.Metadata.Source, "max_tokens", opts.MaxTokens)
		}

		result, summary, err := rt.Pipeline.Analyze(cmd.Context(), text)
		if err != nil {
			env.logger.Debug("analyze.failed", "class", protocol.ClassOf(err), "error", err)
			// Only the user-facing message is shown. --log-level debug has the rest.
			return errors.New(protocol.UserMessage(err))
		}

		report := api.AnalysisReport{AnalysisResult: result, SectionSummary: summary, Document: &doc.Metadata}

		if analyzeSave {
			path, err := saveReport(env, doc.Metadata.Source, report)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved report to %s\n", path)
		}

		return api.Output(report)
	},
}

func readInput(cmd *cobra.Command, arg string) (*document.Document, error) {
	if arg != "-" {
		return document.Load(arg)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return document.FromText("stdin", string(data)), nil
}

// saveReport writes the report under the home reports directory, as JSON
// when -o json is set and YAML otherwise.
func saveReport(env *environment, source string, report api.AnalysisReport) (string, error) {
	if err := env.home.EnsureExists(); err != nil {
		return "", err
	}

	ext := "yaml"
	var data []byte
	var err error
	if api.GetOutputFormat() == api.OutputFormatJSON {
		ext = "json"
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = yaml.Marshal(report)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := env.home.ReportPath(source, time.Now(), ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "LLM provider to use (default: pipeline.llm_provider)")
	analyzeCmd.Flags().BoolVar(&analyzeNoClean, "no-clean", false, "send the text as extracted, without whitespace cleanup")
	analyzeCmd.Flags().IntVar(&analyzeMaxTokens, "max-tokens", 0, "input token budget (default: document.max_input_tokens)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "also save the report under the home reports directory")

	rootCmd.AddCommand(analyzeCmd)
}
