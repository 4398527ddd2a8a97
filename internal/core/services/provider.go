package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// withTimeout bounds ctx by d. A non-positive d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// providerErr wraps a provider failure so callers can match
// domain.ErrProviderUnavailable. Timeouts and cancellations count as
// provider failures. Rejected input keeps its own classification.
func providerErr(op string, err error) error {
	if errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrInvalidInput) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrProviderUnavailable, err)
}
