package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackzampolin/protocollens/internal/protocol"
	"github.com/jackzampolin/protocollens/internal/providers"
)

func upstream(kind string) error {
	return &providers.CallError{Provider: "mock", Kind: kind}
}

func TestRetryingRecoversFromTransientFailure(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Responses = []providers.MockResponse{
		{Err: upstream(protocol.UpstreamServer)},
		{Err: upstream(protocol.UpstreamRateLimit)},
		{Content: `{"ok": true}`},
	}
	gw := WithRetry(newTestGateway(t, mock, nil), RetryConfig{Attempts: 3, Delay: time.Millisecond})

	resp, err := gw.Complete(context.Background(), Request{Stage: "s", Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !resp.Get("ok").Bool() {
		t.Fatalf("unexpected response: %s", resp.Raw)
	}
	if mock.RequestCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", mock.RequestCount())
	}
}

func TestRetryingDoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		respond providers.MockResponse
	}{
		{"auth", providers.MockResponse{Err: upstream(protocol.UpstreamAuth)}},
		{"quota", providers.MockResponse{Err: upstream(protocol.UpstreamQuota)}},
		{"malformed", providers.MockResponse{Content: "not json at all"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := providers.NewMockClient()
			mock.Responses = []providers.MockResponse{tt.respond, {Content: `{}`}}
			gw := WithRetry(newTestGateway(t, mock, nil), RetryConfig{Attempts: 3, Delay: time.Millisecond})

			_, err := gw.Complete(context.Background(), Request{Stage: "s", Prompt: "p"})
			if err == nil {
				t.Fatal("expected error")
			}
			if !protocol.IsClassified(err) {
				t.Fatalf("expected classified error, got %T: %v", err, err)
			}
			if mock.RequestCount() != 1 {
				t.Fatalf("expected a single attempt, got %d", mock.RequestCount())
			}
		})
	}
}

func TestRetryingReturnsLastErrorUnwrapped(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	gw := WithRetry(newTestGateway(t, mock, nil), RetryConfig{Attempts: 2, Delay: time.Millisecond})

	_, err := gw.Complete(context.Background(), Request{Stage: "segmentation", Prompt: "p"})
	var upErr *protocol.UpstreamCallError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamCallError, got %T: %v", err, err)
	}
	if mock.RequestCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", mock.RequestCount())
	}
}

func TestRetryingHonoursCancellation(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	gw := WithRetry(newTestGateway(t, mock, nil), RetryConfig{Attempts: 5, Delay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := gw.Complete(ctx, Request{Stage: "s", Prompt: "p"})
	var upErr *protocol.UpstreamCallError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamCallError, got %T: %v", err, err)
	}
}
