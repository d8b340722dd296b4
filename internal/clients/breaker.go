package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	support_errors "storefront-support/pkg/errors"

	"github.com/sony/gobreaker"
)

// newBreaker opens after five consecutive failures and probes again after 30s.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, support_errors.ErrNotFound)
		},
	})
}

// classify turns transport failures into the upstream sentinels.
func classify(name string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, support_errors.ErrNotFound),
		errors.Is(err, support_errors.ErrUpstream),
		errors.Is(err, support_errors.ErrUpstreamTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", name, support_errors.ErrUpstreamTimeout)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%s: circuit open: %w", name, support_errors.ErrUpstream)
	default:
		return fmt.Errorf("%s: %v: %w", name, err, support_errors.ErrUpstream)
	}
}
