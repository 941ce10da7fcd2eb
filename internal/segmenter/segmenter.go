// Package segmenter splits a protocol document into named sections using
// the segmentation prompt.
package segmenter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jackzampolin/protocollens/internal/gateway"
	"github.com/jackzampolin/protocollens/internal/prompts"
	"github.com/jackzampolin/protocollens/internal/prompts/segmentation"
	"github.com/jackzampolin/protocollens/internal/protocol"
)

// Renderer renders a stage prompt. *prompts.Store satisfies it.
type Renderer interface {
	Render(stage string, args map[string]string) (prompts.Rendered, error)
}

// Config configures a Segmenter.
type Config struct {
	Prompts Renderer
	Gateway gateway.Gateway
	Logger  *slog.Logger
}

// Segmenter asks the model for the section structure of a protocol.
type Segmenter struct {
	prompts Renderer
	gateway gateway.Gateway
	logger  *slog.Logger
}

// New creates a Segmenter.
func New(cfg Config) *Segmenter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Segmenter{
		prompts: cfg.Prompts,
		gateway: cfg.Gateway,
		logger:  cfg.Logger,
	}
}

// Segment returns the sections of protocolText in the order the model listed
// them. A reply without a usable sections object yields an empty map, not an
// error: a protocol with no recognizable structure is valid input.
func (s *Segmenter) Segment(ctx context.Context, protocolText string) (*protocol.SectionMap, error) {
	start := time.Now()

	rendered, err := s.prompts.Render(prompts.StageSegmentation, map[string]string{
		segmentation.Placeholder: protocolText,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.Complete(ctx, gateway.Request{
		Stage:  rendered.Stage,
		Prompt: rendered.Text,
		Schema: rendered.Schema,
	})
	if err != nil {
		return nil, err
	}

	sections := ParseSections(resp.Get("sections"))
	if sections.Len() == 0 {
		s.logger.Warn("segmenter.no_sections",
			"request_id", resp.RequestID,
			"has_field", resp.Get("sections").Exists(),
		)
	}

	s.logger.Info("segmenter.complete",
		"request_id", resp.RequestID,
		"prompt_version", rendered.Version,
		"sections", sections.Len(),
		"latency", time.Since(start),
	)
	return sections, nil
}

// ParseSections reads a sections object in document order. Anything other
// than a JSON object yields an empty map. Null values become empty text and
// other non-string values keep their raw JSON.
func ParseSections(v gjson.Result) *protocol.SectionMap {
	sections := &protocol.SectionMap{}
	if !v.IsObject() {
		return sections
	}
	v.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.String:
			sections.Set(key.String(), value.String())
		case gjson.Null:
			sections.Set(key.String(), "")
		default:
			sections.Set(key.String(), strings.TrimSpace(value.Raw))
		}
		return true
	})
	return sections
}
