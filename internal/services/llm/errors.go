package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threadcast/internal/services"
)

// ProviderError reports a completion that failed permanently: either the
// provider returned a non-transient failure or every attempt was used up.
type ProviderError struct {
	Op         string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Attempts > 1 {
		fmt.Fprintf(&b, ": failed after %d attempts", e.Attempts)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the provider marker and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	return []error{services.ErrProvider, e.Err}
}

func newProviderError(op string, attempts int, err error) error {
	if err == nil {
		return nil
	}
	var existing *ProviderError
	if errors.As(err, &existing) {
		return err
	}
	perr := &ProviderError{Op: op, Attempts: attempts, Err: err}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		perr.StatusCode = statusErr.StatusCode
	}
	return perr
}

type httpStatusError struct {
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

func (e *httpStatusError) RetryAfter() time.Duration { return e.retryAfter }

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

// transientError marks provider failures that an adapter has already
// classified as worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// RetryAfter extracts a provider supplied wait hint from err.
func RetryAfter(err error) (time.Duration, bool) {
	var hinted interface{ RetryAfter() time.Duration }
	if errors.As(err, &hinted) {
		if d := hinted.RetryAfter(); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// IsTransient reports whether err is worth retrying: HTTP 408/429/5xx, empty
// content, network timeouts and connection failures. Context cancellation and
// deadline errors of the caller are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var marked *transientError
	if errors.As(err, &marked) {
		return true
	}

	var empty *emptyContentError
	if errors.As(err, &empty) {
		return true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		var opErr *net.OpError
		if errors.As(urlErr, &opErr) {
			return true
		}
	}
	return false
}
