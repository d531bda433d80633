package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions contains configuration for retry behavior.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// GetDeliveryRetryOptions returns retry options for Discord message delivery.
// Delivery is best effort, so the budget is kept small.
func GetDeliveryRetryOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  10 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxRetries:      2,
	}
}

// WithRetry executes the given operation with exponential backoff using provided options.
// Wrap an error with backoff.Permanent to stop retrying early.
func WithRetry[T any](ctx context.Context, operation func() (T, error), opts RetryOptions) (T, error) {
	var result T

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	), opts.MaxRetries)

	err := backoff.Retry(func() error {
		var err error
		result, err = operation()
		return err
	}, backoff.WithContext(b, ctx))

	return result, err
}
