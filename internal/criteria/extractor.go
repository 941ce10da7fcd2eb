// Package criteria extracts individual inclusion criteria from the text of
// an inclusion section.
package criteria

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jackzampolin/protocollens/internal/gateway"
	"github.com/jackzampolin/protocollens/internal/prompts"
	"github.com/jackzampolin/protocollens/internal/prompts/inclusion"
	"github.com/jackzampolin/protocollens/internal/protocol"
)

// Renderer renders a stage prompt. *prompts.Store satisfies it.
type Renderer interface {
	Render(stage string, args map[string]string) (prompts.Rendered, error)
}

// Config configures an Extractor.
type Config struct {
	Prompts Renderer
	Gateway gateway.Gateway
	Logger  *slog.Logger
}

// Extractor turns section text into confidence-scored criteria.
type Extractor struct {
	prompts Renderer
	gateway gateway.Gateway
	logger  *slog.Logger
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		prompts: cfg.Prompts,
		gateway: cfg.Gateway,
		logger:  cfg.Logger,
	}
}

// Extract returns the criteria found in sectionText, in the order the model
// listed them. Blank input returns an empty list without calling the model.
func (e *Extractor) Extract(ctx context.Context, sectionText string) ([]protocol.Criterion, error) {
	if strings.TrimSpace(sectionText) == "" {
		return []protocol.Criterion{}, nil
	}
	start := time.Now()

	rendered, err := e.prompts.Render(prompts.StageInclusionCriteria, map[string]string{
		inclusion.Placeholder: sectionText,
	})
	if err != nil {
		return nil, err
	}

	resp, err := e.gateway.Complete(ctx, gateway.Request{
		Stage:  rendered.Stage,
		Prompt: rendered.Text,
		Schema: rendered.Schema,
	})
	if err != nil {
		return nil, err
	}

	criteria, dropped, err := ParseCriteria(resp.Root())
	if err != nil {
		e.logger.Warn("extractor.schema_violation", "request_id", resp.RequestID, "error", err)
		return nil, err
	}
	if dropped > 0 {
		e.logger.Warn("extractor.entry.dropped", "request_id", resp.RequestID, "dropped", dropped)
	}

	e.logger.Info("extractor.complete",
		"request_id", resp.RequestID,
		"prompt_version", rendered.Version,
		"criteria", len(criteria),
		"latency", time.Since(start),
	)
	return criteria, nil
}

// ParseCriteria reads the criteria array from an extraction reply.
//
// Only a reply with no criteria key at all is a schema error. A criteria
// value that is not an array yields no criteria. Entries without a
// non-blank string text are dropped and counted. Confidence is clamped into
// [0,1] and defaults to 0 when absent or not a number.
func ParseCriteria(root gjson.Result) ([]protocol.Criterion, int, error) {
	if !root.IsObject() {
		return nil, 0, &protocol.ExtractionSchemaError{Stage: prompts.StageInclusionCriteria, Field: "criteria"}
	}
	list := root.Get("criteria")
	if !list.Exists() {
		return nil, 0, &protocol.ExtractionSchemaError{Stage: prompts.StageInclusionCriteria, Field: "criteria"}
	}

	out := []protocol.Criterion{}
	if !list.IsArray() {
		return out, 0, nil
	}

	dropped := 0
	list.ForEach(func(_, entry gjson.Result) bool {
		c, ok := parseEntry(entry)
		if !ok {
			dropped++
			return true
		}
		out = append(out, c)
		return true
	})
	return out, dropped, nil
}

func parseEntry(entry gjson.Result) (protocol.Criterion, bool) {
	if !entry.IsObject() {
		return protocol.Criterion{}, false
	}
	text := entry.Get("text")
	if text.Type != gjson.String {
		return protocol.Criterion{}, false
	}
	trimmed := strings.TrimSpace(text.String())
	if trimmed == "" {
		return protocol.Criterion{}, false
	}

	var confidence float64
	if c := entry.Get("confidence"); c.Type == gjson.Number {
		confidence = protocol.ClampConfidence(c.Float())
	}
	return protocol.Criterion{Text: trimmed, Confidence: confidence}, true
}
