package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackzampolin/protocollens/internal/protocol"
)

// CallError describes a failed provider call. Kind is one of the
// protocol.Upstream* kinds.
type CallError struct {
	Provider   string
	Kind       string
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *CallError) Error() string {
	msg := fmt.Sprintf("%s: %s error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CallError) Unwrap() error { return e.Err }

// IsCallError reports whether err is a CallError and returns it.
func IsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// kindForStatus maps an HTTP status to an upstream failure kind.
func kindForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return protocol.UpstreamAuth
	case status == http.StatusTooManyRequests:
		return protocol.UpstreamRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return protocol.UpstreamTimeout
	case status >= 500:
		return protocol.UpstreamServer
	case status >= 400:
		return protocol.UpstreamRequest
	default:
		return protocol.UpstreamTransport
	}
}

// kindForError classifies errors that carry no HTTP status.
func kindForError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return protocol.UpstreamTimeout
	}
	return protocol.UpstreamTransport
}

// parseRetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
