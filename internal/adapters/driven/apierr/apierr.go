// Package apierr classifies failures of HTTP provider calls into domain errors.
//
// Transport failures, server errors and rate limiting are reported as
// domain.ErrProviderUnavailable. Any other 4xx response means the provider
// rejected the request and is reported as domain.ErrInvalidInput.
package apierr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// maxBody bounds how much of an error body is kept in the message.
const maxBody = 4096

// Transport wraps an error returned by the HTTP client itself.
func Transport(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrProviderUnavailable, provider, err)
}

// Status returns nil for a 2xx response and a classified error otherwise.
// The body is read but not closed.
func Status(provider string, resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	return FromStatus(provider, resp.StatusCode, body)
}

// FromStatus classifies a status code and error body.
func FromStatus(provider string, status int, body []byte) error {
	kind := domain.ErrProviderUnavailable
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError &&
		status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		kind = domain.ErrInvalidInput
	}
	return &StatusError{Provider: provider, Code: status, Body: strings.TrimSpace(string(body)), kind: kind}
}

// StatusError is a non-2xx response. It unwraps to its domain error.
type StatusError struct {
	Provider string
	Code     int
	Body     string

	kind error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s (status %d): %s", e.kind, e.Provider, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return e.kind }

// StatusCode returns the HTTP status carried by err, or 0 if there is none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
