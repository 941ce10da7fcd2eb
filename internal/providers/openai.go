package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jackzampolin/protocollens/internal/protocol"
)

const (
	OpenAIType = "openai"

	// GeminiOpenAIBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	openAIDefaultModel = "gemini-1.5-flash"
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat client.
type OpenAIConfig struct {
	Name       string        // Registry name, reported as Provider
	APIKey     string        // Required
	BaseURL    string        // Defaults to GeminiOpenAIBaseURL
	Model      string        // Default model
	RateLimit  int           // Requests per minute
	DailyLimit int           // Requests per UTC day (0 = unlimited)
	Timeout    time.Duration // HTTP timeout
	HTTPClient *http.Client  // Optional (tests)
	Logger     *slog.Logger
}

// OpenAIClient implements LLMClient against any OpenAI-compatible chat
// completions API using the official SDK.
type OpenAIClient struct {
	name    string
	model   string
	baseURL string
	limiter *RateLimiter
	client  openai.Client
	logger  *slog.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIType
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	// Retries belong to the gateway decorator, never the transport.
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &OpenAIClient{
		name:    cfg.Name,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.DailyLimit),
		client:  client,
		logger:  cfg.Logger,
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.model
}

// BaseURL returns the API endpoint.
func (c *OpenAIClient) BaseURL() string {
	return c.baseURL
}

// LimiterStatus returns the rate limiter state.
func (c *OpenAIClient) LimiterStatus() LimiterStatus {
	return c.limiter.Status()
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	if req == nil || len(req.Messages) == 0 {
		err := &CallError{Provider: c.name, Kind: protocol.UpstreamRequest, Message: "request has no messages"}
		return &ChatResult{Provider: c.name, Success: false, ErrorType: err.Kind, ErrorMessage: err.Error()}, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	result := &ChatResult{
		Provider:  c.name,
		ModelUsed: model,
		RequestID: requestID,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		kind := kindForError(err)
		if errors.Is(err, ErrDailyQuotaExhausted) {
			kind = protocol.UpstreamQuota
		}
		callErr := &CallError{Provider: c.name, Kind: kind, Err: err}
		return c.fail(result, start, callErr), callErr
	}
	result.QueueTime = time.Since(start)

	params, err := buildChatParams(model, req)
	if err != nil {
		callErr := &CallError{Provider: c.name, Kind: protocol.UpstreamRequest, Err: err}
		return c.fail(result, start, callErr), callErr
	}

	execStart := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	result.ExecutionTime = time.Since(execStart)
	if err != nil {
		callErr := c.mapError(err)
		if callErr.Kind == protocol.UpstreamRateLimit {
			c.limiter.Record429(callErr.RetryAfter)
		}
		return c.fail(result, start, callErr), callErr
	}

	if len(completion.Choices) == 0 {
		callErr := &CallError{Provider: c.name, Kind: protocol.UpstreamServer, Message: "response has no choices"}
		return c.fail(result, start, callErr), callErr
	}

	choice := completion.Choices[0]
	result.Content = choice.Message.Content
	result.FinishReason = string(choice.FinishReason)
	if completion.Model != "" {
		result.ModelUsed = completion.Model
	}
	result.PromptTokens = int(completion.Usage.PromptTokens)
	result.CompletionTokens = int(completion.Usage.CompletionTokens)
	result.TotalTokens = int(completion.Usage.TotalTokens)
	result.Success = true
	result.TotalTime = time.Since(start)

	c.logger.Debug("llm.chat.complete",
		"provider", c.name,
		"model", result.ModelUsed,
		"request_id", requestID,
		"prompt_tokens", result.PromptTokens,
		"completion_tokens", result.CompletionTokens,
		"finish_reason", result.FinishReason,
		"latency", result.TotalTime,
	)
	return result, nil
}

func (c *OpenAIClient) fail(result *ChatResult, start time.Time, err *CallError) *ChatResult {
	result.Success = false
	result.ErrorType = err.Kind
	result.ErrorMessage = err.Error()
	result.TotalTime = time.Since(start)
	c.logger.Warn("llm.chat.failed",
		"provider", c.name,
		"model", result.ModelUsed,
		"request_id", result.RequestID,
		"kind", err.Kind,
		"status", err.StatusCode,
		"error", err,
	)
	return result
}

func buildChatParams(model string, req *ChatRequest) (openai.ChatCompletionNewParams, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch strings.ToLower(m.Role) {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	if rf := req.ResponseFormat; rf != nil {
		switch rf.Type {
		case ResponseFormatJSONSchema:
			spec, err := ParseSchemaSpec(rf.JSONSchema)
			if err != nil {
				return params, fmt.Errorf("invalid response schema: %w", err)
			}
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   spec.Name,
						Strict: openai.Bool(spec.Strict),
						Schema: spec.Schema,
					},
				},
			}
		case ResponseFormatJSONObject:
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
			}
		}
	}
	return params, nil
}

func (c *OpenAIClient) mapError(err error) *CallError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		callErr := &CallError{
			Provider:   c.name,
			Kind:       kindForStatus(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
		if apiErr.Response != nil {
			callErr.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return callErr
	}
	return &CallError{Provider: c.name, Kind: kindForError(err), Err: err}
}

var _ LLMClient = (*OpenAIClient)(nil)
var _ StatusReporter = (*OpenAIClient)(nil)
