package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/protocollens/internal/api"
	"github.com/jackzampolin/protocollens/internal/prompts"
	"github.com/jackzampolin/protocollens/internal/prompts/builtin"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect and customize stage prompt templates",
	Long: `Each pipeline stage renders a prompt template. Embedded defaults can be
overridden by {stage}.tmpl files in pipeline.prompts_dir, or in
~/.protocollens/prompts when that is unset.

Examples:
  protocollens prompts list
  protocollens prompts show inclusion_criteria
  protocollens prompts export          # write defaults for editing`,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt templates in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadPromptStore()
		if err != nil {
			return err
		}
		type row struct {
			Stage      string   `json:"stage" yaml:"stage"`
			Version    string   `json:"version" yaml:"version"`
			Hash       string   `json:"hash" yaml:"hash"`
			Variables  []string `json:"variables" yaml:"variables"`
			IsOverride bool     `json:"is_override" yaml:"is_override"`
			Source     string   `json:"source" yaml:"source"`
		}
		rows := make([]row, 0)
		for _, t := range store.List() {
			rows = append(rows, row{t.Stage, t.Version, t.Hash[:12], t.Variables, t.IsOverride, t.Source})
		}
		return api.Output(rows)
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <stage>",
	Short: "Print the template text for a stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadPromptStore()
		if err != nil {
			return err
		}
		tmpl, err := store.Get(args[0])
		if err != nil {
			return err
		}
		if api.IsStructuredOutput() {
			return api.Output(tmpl)
		}
		fmt.Fprint(cmd.OutOrStdout(), tmpl.Text)
		return nil
	},
}

var promptsExportForce bool

var promptsExportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write the embedded templates as override files",
	Long: `Write every embedded template to {dir}/{stage}.tmpl so it can be edited.
The directory defaults to the configured prompts directory. Existing files
are kept unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		dir := promptsDirFor(env)
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		for _, p := range builtin.NewResolver(env.logger).AllEmbedded() {
			path := filepath.Join(dir, p.Key+prompts.OverrideExt)
			if _, err := os.Stat(path); err == nil && !promptsExportForce {
				fmt.Fprintf(cmd.OutOrStdout(), "skip   %s (exists)\n", path)
				continue
			}
			if err := os.WriteFile(path, []byte(p.Text), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote  %s\n", path)
		}
		return nil
	},
}

func promptsDirFor(env *environment) string {
	if dir := env.config.Get().Pipeline.PromptsDir; dir != "" {
		return dir
	}
	return env.home.PromptsPath()
}

// loadPromptStore loads templates the way analyze does, without needing a
// provider.
func loadPromptStore() (*prompts.Store, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	return builtin.Load(promptsDirFor(env), env.logger)
}

func init() {
	promptsExportCmd.Flags().BoolVar(&promptsExportForce, "force", false, "overwrite existing override files")

	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsExportCmd)
	rootCmd.AddCommand(promptsCmd)
}
