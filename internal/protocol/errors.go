package protocol

import (
	"errors"
	"fmt"
	"time"
)

// Class groups errors by how they are surfaced to the end user.
type Class string

const (
	ClassInvalidInput    Class = "invalid_input"
	ClassUnavailable     Class = "unavailable"
	ClassUninterpretable Class = "uninterpretable"
	ClassInternal        Class = "internal"
)

// User-facing messages, one per class.
const (
	MessageInvalidInput    = "no protocol text was provided"
	MessageUnavailable     = "analysis unavailable, try again"
	MessageUninterpretable = "could not interpret the document"
	MessageInternal        = "internal configuration error"
)

// Upstream failure kinds.
const (
	UpstreamTransport = "transport"
	UpstreamAuth      = "auth"
	UpstreamRateLimit = "rate_limit"
	UpstreamQuota     = "quota"
	UpstreamTimeout   = "timeout"
	UpstreamServer    = "server"
	UpstreamRequest   = "request"
)

// InvalidInputError is returned when the caller supplied unusable input.
// No upstream call is made.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Reason == "" {
		return "invalid input"
	}
	return "invalid input: " + e.Reason
}

// UpstreamCallError reports a transport, auth, quota or timeout failure
// talking to the LLM provider.
type UpstreamCallError struct {
	Stage      string
	Provider   string
	Kind       string
	StatusCode int
	RetryAfter time.Duration
	Cause      error
}

func (e *UpstreamCallError) Error() string {
	msg := fmt.Sprintf("upstream call failed (%s)", e.Kind)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: upstream call failed (%s)", e.Stage, e.Kind)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UpstreamCallError) Unwrap() error { return e.Cause }

// Retryable reports whether repeating the call could succeed.
// Auth, quota and bad-request failures are permanent.
func (e *UpstreamCallError) Retryable() bool {
	switch e.Kind {
	case UpstreamAuth, UpstreamQuota, UpstreamRequest:
		return false
	default:
		return true
	}
}

// MalformedResponseError is returned when the provider replied with text
// that cannot be parsed as JSON.
type MalformedResponseError struct {
	Stage string
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed response"
	if e.Stage != "" {
		msg = e.Stage + ": malformed response"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// ExtractionSchemaError is returned when the response parsed but lacks
// the expected top-level key.
type ExtractionSchemaError struct {
	Stage string
	Field string
}

func (e *ExtractionSchemaError) Error() string {
	return fmt.Sprintf("%s: response has no %q field", e.Stage, e.Field)
}

// TemplateNotFoundError is returned for an unknown stage identifier.
type TemplateNotFoundError struct {
	Stage string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("prompt template not found: %s", e.Stage)
}

// TemplateRenderError is returned when a template cannot be rendered,
// typically because a placeholder has no argument.
type TemplateRenderError struct {
	Stage string
	Cause error
}

func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("render prompt template %s: %v", e.Stage, e.Cause)
}

func (e *TemplateRenderError) Unwrap() error { return e.Cause }

// ClassOf maps an error onto its user-facing class.
// Unclassified errors are internal.
func ClassOf(err error) Class {
	if err == nil {
		return ""
	}

	var (
		invalid   *InvalidInputError
		upstream  *UpstreamCallError
		malformed *MalformedResponseError
		schema    *ExtractionSchemaError
	)
	switch {
	case errors.As(err, &invalid):
		return ClassInvalidInput
	case errors.As(err, &upstream):
		return ClassUnavailable
	case errors.As(err, &malformed), errors.As(err, &schema):
		return ClassUninterpretable
	default:
		return ClassInternal
	}
}

// UserMessage returns the message the presentation layer shows for err.
func UserMessage(err error) string {
	switch ClassOf(err) {
	case "":
		return ""
	case ClassInvalidInput:
		return MessageInvalidInput
	case ClassUnavailable:
		return MessageUnavailable
	case ClassUninterpretable:
		return MessageUninterpretable
	default:
		return MessageInternal
	}
}

// IsClassified reports whether err belongs to the error taxonomy.
func IsClassified(err error) bool {
	var (
		invalid   *InvalidInputError
		upstream  *UpstreamCallError
		malformed *MalformedResponseError
		schema    *ExtractionSchemaError
		notFound  *TemplateNotFoundError
		render    *TemplateRenderError
	)
	return errors.As(err, &invalid) ||
		errors.As(err, &upstream) ||
		errors.As(err, &malformed) ||
		errors.As(err, &schema) ||
		errors.As(err, &notFound) ||
		errors.As(err, &render)
}
