// Package resilience classifies pipeline errors and provides bounded retry.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (timeouts, 5xx,
// connection resets).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// QuotaError marks a provider rate/quota rejection. The extraction machine
// reacts by rotating to the next credential rather than backing off.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string { return e.Err.Error() }
func (e *QuotaError) Unwrap() error { return e.Err }

// NewQuotaError wraps an error as a quota rejection.
func NewQuotaError(err error) *QuotaError {
	return &QuotaError{Err: err}
}

// SchemaError marks a malformed or schema-violating extraction payload.
// Retried up to the extraction bound, then the item fails terminally.
type SchemaError struct {
	Err    error
	Issues []string
}

func (e *SchemaError) Error() string { return e.Err.Error() }
func (e *SchemaError) Unwrap() error { return e.Err }

// NewSchemaError wraps a parse/validation failure with its issue list.
func NewSchemaError(err error, issues ...string) *SchemaError {
	return &SchemaError{Err: err, Issues: issues}
}

// IsQuota reports whether the error chain contains a quota rejection, either
// an explicit QuotaError or a provider message matching known quota patterns.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	var qe *QuotaError
	if errors.As(err, &qe) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"429", "rate limit", "quota", "overloaded", "too many requests"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsSchema reports whether the error chain contains a SchemaError.
func IsSchema(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsTransient reports whether the error (or anything in its chain) is safe
// to retry: an explicit TransientError, a network timeout, or a connection
// failure recognized by message pattern.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
