// Package builtin wires every stage prompt into a single Store.
package builtin

import (
	"log/slog"

	"github.com/jackzampolin/protocollens/internal/prompts"
	"github.com/jackzampolin/protocollens/internal/prompts/inclusion"
	"github.com/jackzampolin/protocollens/internal/prompts/segmentation"
)

// NewResolver returns a resolver with all stage prompts registered.
func NewResolver(logger *slog.Logger) *prompts.Resolver {
	r := prompts.NewResolver(logger)
	segmentation.RegisterPrompts(r)
	inclusion.RegisterPrompts(r)
	return r
}

// Load registers all stage prompts and freezes them into a Store.
func Load(overrideDir string, logger *slog.Logger) (*prompts.Store, error) {
	return NewResolver(logger).Load(overrideDir)
}
