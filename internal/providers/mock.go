package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/protocollens/internal/protocol"
)

const MockClientName = "mock"

// MockResponse is one scripted reply.
type MockResponse struct {
	Content string
	Err     error
}

// MockClient is an LLMClient for testing. Scripted Responses are served in
// order; once they run out, ResponseText is returned.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	Responses    []MockResponse
	DefaultModel string

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient(responses ...string) *MockClient {
	c := &MockClient{
		ResponseText: `{}`,
		DefaultModel: "mock-model",
	}
	for _, r := range responses {
		c.Responses = append(c.Responses, MockResponse{Content: r})
	}
	return c
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Model returns the default model.
func (c *MockClient) Model() string {
	return c.DefaultModel
}

// Chat serves the next scripted response.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	model := req.Model
	if model == "" {
		model = c.DefaultModel
	}
	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: model,
	}

	if c.ShouldFail {
		err := &CallError{Provider: MockClientName, Kind: protocol.UpstreamServer, Message: "mock client configured to fail"}
		return c.fail(result, start, err), err
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		err := &CallError{Provider: MockClientName, Kind: protocol.UpstreamServer, Message: fmt.Sprintf("mock client failed after %d requests", c.FailAfter)}
		return c.fail(result, start, err), err
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			err := &CallError{Provider: MockClientName, Kind: kindForError(ctx.Err()), Err: ctx.Err()}
			return c.fail(result, start, err), err
		}
	}

	content := c.ResponseText
	if idx := int(count) - 1; idx < len(c.Responses) {
		scripted := c.Responses[idx]
		if scripted.Err != nil {
			result.Success = false
			result.ErrorMessage = scripted.Err.Error()
			result.TotalTime = time.Since(start)
			return result, scripted.Err
		}
		content = scripted.Content
	}

	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	return result, nil
}

func (c *MockClient) fail(result *ChatResult, start time.Time, err *CallError) *ChatResult {
	result.Success = false
	result.ErrorType = err.Kind
	result.ErrorMessage = err.Error()
	result.TotalTime = time.Since(start)
	return result
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns a copy of every request received.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset resets the request counter and history.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
