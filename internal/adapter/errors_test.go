package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   Kind
	}{
		{http.StatusUnauthorized, "", KindCredentialMissing},
		{http.StatusForbidden, "", KindCredentialMissing},
		{http.StatusTooManyRequests, "", KindRateLimited},
		{http.StatusPaymentRequired, "", KindQuotaExceeded},
		{http.StatusNotFound, "", KindModelUnavailable},
		{http.StatusGatewayTimeout, "", KindTimedOut},
		{http.StatusInternalServerError, "insufficient_quota", KindQuotaExceeded},
		{http.StatusBadRequest, "model gpt-9 not found", KindModelUnavailable},
		{http.StatusInternalServerError, "something odd", KindUnclassified},
	}
	for _, c := range cases {
		if got := ClassifyStatus(c.status, c.body); got != c.want {
			t.Errorf("ClassifyStatus(%d, %q) = %v, want %v", c.status, c.body, got, c.want)
		}
	}
}

func TestClassifyErr(t *testing.T) {
	if got := ClassifyErr(context.DeadlineExceeded); got != KindTimedOut {
		t.Errorf("deadline = %v, want timed_out", got)
	}
	if got := ClassifyErr(errors.New("connection refused")); got != KindConnectionFailed {
		t.Errorf("refused = %v, want connection_failed", got)
	}
	if got := ClassifyErr(errors.New("invalid api_key provided")); got != KindCredentialMissing {
		t.Errorf("api_key = %v, want credential_missing", got)
	}
	if got := ClassifyErr(errors.New("mystery")); got != KindUnclassified {
		t.Errorf("mystery = %v, want unclassified", got)
	}
}

func TestKindOfUnwrapsThroughWrapping(t *testing.T) {
	base := NewError(KindRateLimited, "https://api.example.com", errors.New("slow down"))
	wrapped := fmt.Errorf("proxy model-x: %w", base)
	if got := KindOf(wrapped); got != KindRateLimited {
		t.Errorf("KindOf(wrapped) = %v, want rate_limited", got)
	}
	if got := KindOf(errors.New("bare")); got != KindUnclassified {
		t.Errorf("KindOf(bare) = %v, want unclassified", got)
	}
}

func TestErrorStringIncludesEndpoint(t *testing.T) {
	e := NewError(KindTimedOut, "https://api.example.com/v1", errors.New("deadline"))
	got := e.Error()
	if got != "timed_out (https://api.example.com/v1): deadline" {
		t.Errorf("Error() = %q", got)
	}
}
