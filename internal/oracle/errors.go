package oracle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// StatusError is a non-success response from the price API
type StatusError struct {
	StatusCode  int
	Body        string
	RetryAfter  string
	RateLimited bool
}

func (e *StatusError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("price oracle rate limited (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("price oracle returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.RateLimited {
		return models.ErrRateLimited
	}
	return nil
}

// Transient reports whether the request is worth retrying
func (e *StatusError) Transient() bool {
	return e.RateLimited || e.StatusCode >= http.StatusInternalServerError
}

// TimeoutError is returned when the oracle does not answer in time. It is
// distinct from a price simply being absent.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("price oracle %s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() []error {
	return []error{models.ErrOracleTimeout, e.Err}
}

// classifyResponse is the one place that decides whether a response is a
// rate limit. Some gateways answer 429; others return a plain-text
// "Rate limit ..." body with another status.
func classifyResponse(resp *http.Response, body []byte) error {
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256]
	}

	rateLimited := resp.StatusCode == http.StatusTooManyRequests || looksRateLimited(resp, text)
	if resp.StatusCode == http.StatusOK && !rateLimited {
		return nil
	}
	return &StatusError{
		StatusCode:  resp.StatusCode,
		Body:        text,
		RetryAfter:  resp.Header.Get("Retry-After"),
		RateLimited: rateLimited,
	}
}

func looksRateLimited(resp *http.Response, text string) bool {
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") && strings.HasPrefix(text, "{") {
		return false
	}
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "rate limit") || strings.Contains(lower, "too many requests")
}

// IsRateLimited reports whether err came from a rate-limited oracle response
func IsRateLimited(err error) bool {
	return errors.Is(err, models.ErrRateLimited)
}

func classifyTransportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Op: op, Err: err}
	}
	return fmt.Errorf("failed to execute %s: %w", op, err)
}
