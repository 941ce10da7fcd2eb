// Package gateway turns a rendered prompt into a parsed JSON document.
//
// A Gateway call is stateless: one prompt in, one structured value out, no
// cache and no conversation history. Provider failures surface as
// protocol.UpstreamCallError and unparseable replies as
// protocol.MalformedResponseError. Retrying is left to the Retrying
// decorator so the core stages never retry on their own.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/jackzampolin/protocollens/internal/metrics"
	"github.com/jackzampolin/protocollens/internal/protocol"
	"github.com/jackzampolin/protocollens/internal/providers"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 90 * time.Second

// maxRawInError caps how much of an unparseable reply is kept on the error.
const maxRawInError = 2000

// systemPrompt pins the output format regardless of the stage template.
const systemPrompt = "You are a precise clinical document analysis assistant. Always respond with a single valid JSON object and nothing else."

// Gateway completes a prompt into a structured value.
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a fully rendered prompt.
type Request struct {
	Stage  string          // Pipeline stage, used for logging and error context
	Prompt string          // Rendered prompt text
	Schema json.RawMessage // Optional expected response shape
}

// Response is the parsed reply. Raw holds the JSON exactly as the model
// ordered it.
type Response struct {
	Raw              json.RawMessage
	RequestID        string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// Get looks up a gjson path in the response document.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Raw, path)
}

// Root returns the whole response document.
func (r *Response) Root() gjson.Result {
	return gjson.ParseBytes(r.Raw)
}

// Recorder receives one metric per completed call.
type Recorder interface {
	Record(m metrics.Metric)
}

// Config configures a Client.
type Config struct {
	LLM              providers.LLMClient
	Model            string        // Overrides the client default when set
	Temperature      float64       // Default 0
	MaxTokens        int           // 0 = provider default
	Timeout          time.Duration // Per-call timeout, default DefaultTimeout
	StructuredOutput bool          // Send the stage schema as a json_schema response format
	Metrics          Recorder      // Optional
	Logger           *slog.Logger
}

// Client is the production Gateway backed by an LLM provider.
type Client struct {
	llm              providers.LLMClient
	model            string
	temperature      float64
	maxTokens        int
	timeout          time.Duration
	structuredOutput bool
	validator        *providers.SchemaValidator
	metrics          Recorder
	logger           *slog.Logger
}

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.LLM == nil {
		return nil, errors.New("gateway: LLM client is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		llm:              cfg.LLM,
		model:            cfg.Model,
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		timeout:          cfg.Timeout,
		structuredOutput: cfg.StructuredOutput,
		validator:        &providers.SchemaValidator{},
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
	}, nil
}

// Complete sends the prompt and parses the reply.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := c.logger.With("stage", req.Stage, "request_id", requestID, "provider", c.llm.Name())

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Model:          c.model,
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: c.responseFormat(req),
		RequestID:      requestID,
	}

	logger.Debug("gateway.complete.start", "prompt_chars", len(req.Prompt))

	result, err := c.llm.Chat(callCtx, chatReq)
	if err != nil {
		upErr := upstreamError(req.Stage, c.llm.Name(), err)
		logger.Warn("gateway.complete.upstream_error", "kind", upErr.Kind, "latency", time.Since(start), "error", err)
		c.record(metrics.Metric{
			RequestID:      requestID,
			Stage:          req.Stage,
			Provider:       upErr.Provider,
			Model:          c.llm.Model(),
			LatencySeconds: time.Since(start).Seconds(),
			ErrorType:      upErr.Kind,
		})
		return nil, upErr
	}

	raw, err := providers.ParseStructuredJSON(result.Content)
	if err != nil {
		logger.Warn("gateway.complete.malformed", "content_chars", len(result.Content), "finish_reason", result.FinishReason, "error", err)
		c.record(metrics.Metric{
			RequestID:        requestID,
			Stage:            req.Stage,
			Provider:         result.Provider,
			Model:            result.ModelUsed,
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			LatencySeconds:   time.Since(start).Seconds(),
			ErrorType:        "malformed",
		})
		return nil, &protocol.MalformedResponseError{
			Stage: req.Stage,
			Raw:   truncate(result.Content, maxRawInError),
			Cause: err,
		}
	}

	// Schema mismatches are diagnostic only. The stages own the tolerance
	// rules for partial output.
	if err := c.validator.Validate(req.Schema, raw); err != nil {
		logger.Warn("gateway.complete.schema_mismatch", "error", err)
	}

	resp := &Response{
		Raw:              raw,
		RequestID:        requestID,
		Provider:         result.Provider,
		Model:            result.ModelUsed,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		Latency:          time.Since(start),
	}

	c.record(metrics.Metric{
		RequestID:        requestID,
		Stage:            req.Stage,
		Provider:         resp.Provider,
		Model:            resp.Model,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		LatencySeconds:   resp.Latency.Seconds(),
		Success:          true,
	})

	logger.Info("gateway.complete",
		"model", resp.Model,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
		"latency", resp.Latency,
	)
	return resp, nil
}

func (c *Client) responseFormat(req Request) *providers.ResponseFormat {
	if c.structuredOutput && len(req.Schema) > 0 {
		return &providers.ResponseFormat{Type: providers.ResponseFormatJSONSchema, JSONSchema: req.Schema}
	}
	return &providers.ResponseFormat{Type: providers.ResponseFormatJSONObject}
}

func (c *Client) record(m metrics.Metric) {
	if c.metrics != nil {
		c.metrics.Record(m)
	}
}

// upstreamError classifies any provider failure as an UpstreamCallError.
func upstreamError(stage, provider string, err error) *protocol.UpstreamCallError {
	var existing *protocol.UpstreamCallError
	if errors.As(err, &existing) {
		if existing.Stage == "" {
			existing.Stage = stage
		}
		return existing
	}

	upErr := &protocol.UpstreamCallError{
		Stage:    stage,
		Provider: provider,
		Kind:     protocol.UpstreamTransport,
		Cause:    err,
	}
	if ce, ok := providers.IsCallError(err); ok {
		upErr.Kind = ce.Kind
		upErr.StatusCode = ce.StatusCode
		upErr.RetryAfter = ce.RetryAfter
		if ce.Provider != "" {
			upErr.Provider = ce.Provider
		}
	} else if errors.Is(err, context.DeadlineExceeded) {
		upErr.Kind = protocol.UpstreamTimeout
	}
	return upErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[truncated]"
}

var _ Gateway = (*Client)(nil)
