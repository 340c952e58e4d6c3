package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies an adapter failure.
type Kind string

const (
	KindCredentialMissing Kind = "credential_missing"
	KindRateLimited       Kind = "rate_limited"
	KindQuotaExceeded     Kind = "quota_exceeded"
	KindModelUnavailable  Kind = "model_unavailable"
	KindConnectionFailed  Kind = "connection_failed"
	KindTimedOut          Kind = "timed_out"
	KindUnclassified      Kind = "unclassified"
)

// Error is a classified adapter failure. The original cause is preserved
// for diagnostics.
type Error struct {
	Kind     Kind
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a classified failure.
func NewError(kind Kind, endpoint string, err error) *Error {
	return &Error{Kind: kind, Endpoint: endpoint, Err: err}
}

// KindOf extracts the classification from err, or KindUnclassified when err
// carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnclassified
}

// ClassifyStatus maps a provider HTTP status and response body to a Kind.
func ClassifyStatus(status int, body string) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindCredentialMissing
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusPaymentRequired:
		return KindQuotaExceeded
	case http.StatusNotFound:
		return KindModelUnavailable
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimedOut
	}
	return classifyText(body)
}

// ClassifyErr maps a transport error to a Kind.
func ClassifyErr(err error) Kind {
	if err == nil {
		return KindUnclassified
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimedOut
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimedOut
		}
		return KindConnectionFailed
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return KindConnectionFailed
	}
	return classifyText(err.Error())
}

// classifyText mirrors provider error payloads that report failures in
// message text rather than status codes.
func classifyText(s string) Kind {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "api_key") || strings.Contains(s, "apikey") || strings.Contains(s, "invalid key"):
		return KindCredentialMissing
	case strings.Contains(s, "insufficient_quota") || strings.Contains(s, "quota"):
		return KindQuotaExceeded
	case strings.Contains(s, "rate") && strings.Contains(s, "limit"):
		return KindRateLimited
	case strings.Contains(s, "model") && (strings.Contains(s, "not found") || strings.Contains(s, "access") || strings.Contains(s, "available")):
		return KindModelUnavailable
	case strings.Contains(s, "timeout") || strings.Contains(s, "deadline"):
		return KindTimedOut
	case strings.Contains(s, "connect"):
		return KindConnectionFailed
	}
	return KindUnclassified
}
