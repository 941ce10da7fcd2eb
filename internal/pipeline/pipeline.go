// Package pipeline runs the two-stage protocol analysis: segment the
// document into sections, locate the inclusion criteria section, and
// extract its criteria.
//
// A Pipeline holds no per-run state. Concurrent Run calls share only the
// read-only prompt store and the gateway.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/protocollens/internal/criteria"
	"github.com/jackzampolin/protocollens/internal/gateway"
	"github.com/jackzampolin/protocollens/internal/prompts"
	"github.com/jackzampolin/protocollens/internal/protocol"
	"github.com/jackzampolin/protocollens/internal/segmenter"
)

// Segmenter splits protocol text into sections.
type Segmenter interface {
	Segment(ctx context.Context, protocolText string) (*protocol.SectionMap, error)
}

// Extractor pulls criteria out of section text.
type Extractor interface {
	Extract(ctx context.Context, sectionText string) ([]protocol.Criterion, error)
}

// Config configures a Pipeline.
type Config struct {
	Segmenter Segmenter
	Extractor Extractor
	Logger    *slog.Logger
}

// Pipeline orchestrates a single analysis run.
type Pipeline struct {
	segmenter Segmenter
	extractor Extractor
	logger    *slog.Logger
}

// New creates a Pipeline from its stages.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Segmenter == nil {
		return nil, errors.New("pipeline: segmenter is required")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		segmenter: cfg.Segmenter,
		extractor: cfg.Extractor,
		logger:    cfg.Logger,
	}, nil
}

// NewFromGateway wires the default stages around a prompt store and a
// gateway.
func NewFromGateway(store *prompts.Store, gw gateway.Gateway, logger *slog.Logger) (*Pipeline, error) {
	if store == nil || gw == nil {
		return nil, errors.New("pipeline: prompt store and gateway are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return New(Config{
		Segmenter: segmenter.New(segmenter.Config{Prompts: store, Gateway: gw, Logger: logger}),
		Extractor: criteria.New(criteria.Config{Prompts: store, Gateway: gw, Logger: logger}),
		Logger:    logger,
	})
}

// Run analyzes one protocol document.
//
// Blank input fails with protocol.InvalidInputError before any model call.
// Stage errors are returned unchanged. A document without a recognizable
// inclusion section yields an empty criteria list, not an error.
func (p *Pipeline) Run(ctx context.Context, protocolText string) (protocol.AnalysisResult, error) {
	result, _, err := p.Analyze(ctx, protocolText)
	return result, err
}

// Analyze is Run plus a summary of which conventional sections were found,
// for callers that present more than the result itself.
func (p *Pipeline) Analyze(ctx context.Context, protocolText string) (protocol.AnalysisResult, protocol.SectionSummary, error) {
	var summary protocol.SectionSummary
	if strings.TrimSpace(protocolText) == "" {
		return protocol.AnalysisResult{}, summary, &protocol.InvalidInputError{Reason: "protocol text is empty"}
	}

	start := time.Now()
	logger := p.logger.With("run_id", uuid.NewString())
	logger.Info("pipeline.run.start", "chars", len(protocolText))

	sections, err := p.segmenter.Segment(ctx, protocolText)
	if err != nil {
		logger.Warn("pipeline.run.failed", "stage", prompts.StageSegmentation, "class", protocol.ClassOf(err), "error", err)
		return protocol.AnalysisResult{}, summary, err
	}

	inclusionKey, inclusionText, found := InclusionMatcher.Find(sections)
	if !found {
		logger.Info("pipeline.inclusion.not_found", "sections", sections.Names())
	}

	extracted := []protocol.Criterion{}
	if strings.TrimSpace(inclusionText) != "" {
		extracted, err = p.extractor.Extract(ctx, inclusionText)
		if err != nil {
			logger.Warn("pipeline.run.failed", "stage", prompts.StageInclusionCriteria, "class", protocol.ClassOf(err), "error", err)
			return protocol.AnalysisResult{}, summary, err
		}
	}

	result := protocol.NewAnalysisResult(sections.Names(), extracted)
	summary.HasInclusionSection = found && strings.TrimSpace(inclusionText) != ""
	if _, exclusionText, ok := ExclusionMatcher.Find(sections); ok {
		summary.HasExclusionSection = strings.TrimSpace(exclusionText) != ""
	}

	logger.Info("pipeline.run.complete",
		"sections", len(result.SectionsDetected),
		"inclusion_key", inclusionKey,
		"criteria", len(result.Criteria),
		"latency", time.Since(start),
	)
	return result, summary, nil
}
