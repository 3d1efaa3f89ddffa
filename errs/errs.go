// Package errs provides structured error types and helpers for rosterview components.
package errs

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Code identifies a failure category used for retry and reporting decisions.
type Code string

const (
	// CodeNetwork indicates that no response reached the client.
	CodeNetwork Code = "network"
	// CodeTimeout indicates the request exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeClientRejected indicates a well-formed request the server declined (4xx).
	CodeClientRejected Code = "client_rejected"
	// CodeServer indicates a server-side failure (5xx).
	CodeServer Code = "server_error"
	// CodeParse indicates a malformed success body.
	CodeParse Code = "parse"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeNotFound indicates a missing resource or cache entry.
	CodeNotFound Code = "not_found"
	// CodeConflict indicates a concurrent mutation conflict.
	CodeConflict Code = "conflict"
	// CodeUnavailable indicates the component is shut down or saturated.
	CodeUnavailable Code = "unavailable"
)

// E captures structured error information produced across the rosterview stack.
type E struct {
	Op      string
	Code    Code
	HTTP    int
	RawBody string
	Message string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the operation and failure code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{
		Op:      strings.TrimSpace(op),
		Code:    code,
		HTTP:    0,
		RawBody: "",
		Message: "",
		cause:   nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithRawBody captures the raw response body for diagnostics.
func WithRawBody(body string) Option {
	return func(e *E) {
		e.RawBody = strings.TrimSpace(body)
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	op := strings.TrimSpace(e.Op)
	if op == "" {
		op = "unknown"
	}
	parts = append(parts, "op="+op)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RawBody != "" {
		parts = append(parts, "body="+strconv.Quote(e.RawBody))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the failure code from err, unwrapping as needed.
// Errors that carry no envelope classify as CodeNetwork.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return CodeNetwork
}

// Retryable reports whether a failure with the given code may be retried.
// Client rejections and parse failures never retry.
func Retryable(code Code) bool {
	switch code {
	case CodeNetwork, CodeTimeout, CodeServer, CodeUnavailable:
		return true
	default:
		return false
	}
}

// ClassifyHTTP maps an HTTP status to a failure code.
func ClassifyHTTP(status int) Code {
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return CodeTimeout
	case status >= http.StatusInternalServerError:
		return CodeServer
	case status >= http.StatusBadRequest:
		return CodeClientRejected
	default:
		return CodeNetwork
	}
}
