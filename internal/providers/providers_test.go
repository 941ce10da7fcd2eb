package providers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/protocollens/internal/protocol"
)

func TestMockClient(t *testing.T) {
	t.Run("scripted responses in order", func(t *testing.T) {
		c := NewMockClient(`{"a":1}`, `{"b":2}`)
		c.ResponseText = `{"fallback":true}`

		var got []string
		for i := 0; i < 3; i++ {
			result, err := c.Chat(context.Background(), &ChatRequest{
				Messages: []Message{{Role: "user", Content: "test"}},
			})
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
			got = append(got, result.Content)
		}

		want := []string{`{"a":1}`, `{"b":2}`, `{"fallback":true}`}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("response %d = %q, want %q", i, got[i], want[i])
			}
		}
		if c.RequestCount() != 3 {
			t.Errorf("RequestCount = %d, want 3", c.RequestCount())
		}
		if reqs := c.Requests(); len(reqs) != 3 || reqs[0].Messages[0].Content != "test" {
			t.Errorf("unexpected request history: %+v", reqs)
		}
	})

	t.Run("scripted error", func(t *testing.T) {
		boom := errors.New("boom")
		c := &MockClient{Responses: []MockResponse{{Err: boom}}}

		_, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if !errors.Is(err, boom) {
			t.Fatalf("expected scripted error, got %v", err)
		}
	})

	t.Run("should fail", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true

		result, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if err == nil {
			t.Fatal("expected error")
		}
		if ce, ok := IsCallError(err); !ok || ce.Kind != protocol.UpstreamServer {
			t.Fatalf("expected server CallError, got %v", err)
		}
		if result.Success {
			t.Error("Success = true, want false")
		}
	})

	t.Run("fail after", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 2

		for i := 0; i < 2; i++ {
			if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
				t.Fatalf("request %d: unexpected error %v", i+1, err)
			}
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Fatal("expected error on third request")
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = time.Second

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := c.Chat(ctx, &ChatRequest{}); err == nil {
			t.Fatal("expected error for cancelled context")
		}
	})

	t.Run("reset", func(t *testing.T) {
		c := NewMockClient()
		_, _ = c.Chat(context.Background(), &ChatRequest{})
		c.Reset()
		if c.RequestCount() != 0 || len(c.Requests()) != 0 {
			t.Error("expected reset state")
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("consumes tokens", func(t *testing.T) {
		r := NewRateLimiter(60, 0)
		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		st := r.Status()
		if st.TotalConsumed != 1 || st.TokensLimit != 60 {
			t.Fatalf("unexpected status: %+v", st)
		}
	})

	t.Run("daily quota", func(t *testing.T) {
		r := NewRateLimiter(600, 2)
		for i := 0; i < 2; i++ {
			if err := r.Wait(context.Background()); err != nil {
				t.Fatalf("Wait() %d error = %v", i, err)
			}
		}
		if err := r.Wait(context.Background()); !errors.Is(err, ErrDailyQuotaExhausted) {
			t.Fatalf("expected ErrDailyQuotaExhausted, got %v", err)
		}
		if st := r.Status(); st.DailyUsed != 2 || st.DailyLimit != 2 {
			t.Fatalf("unexpected status: %+v", st)
		}
	})

	t.Run("daily quota resets at UTC midnight", func(t *testing.T) {
		r := NewRateLimiter(600, 1)
		now := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
		r.now = func() time.Time { return now }
		r.day = utcDay(now)
		r.lastUpdate = now

		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if err := r.Wait(context.Background()); !errors.Is(err, ErrDailyQuotaExhausted) {
			t.Fatalf("expected quota error, got %v", err)
		}

		now = now.Add(2 * time.Minute)
		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() after midnight error = %v", err)
		}
	})

	t.Run("wait respects context", func(t *testing.T) {
		r := NewRateLimiter(1, 0)
		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("first Wait() error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("record 429 drains tokens", func(t *testing.T) {
		r := NewRateLimiter(60, 0)
		r.Record429(time.Second)
		st := r.Status()
		if st.TokensAvailable != 0 || st.Last429Time.IsZero() {
			t.Fatalf("unexpected status after 429: %+v", st)
		}
	})

	t.Run("concurrent waits", func(t *testing.T) {
		r := NewRateLimiter(1000, 0)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = r.Wait(context.Background())
			}()
		}
		wg.Wait()
		if st := r.Status(); st.TotalConsumed != 50 {
			t.Fatalf("TotalConsumed = %d, want 50", st.TotalConsumed)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("parseRetryAfter(\"\") = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("parseRetryAfter(soon) = %v", got)
	}
}
