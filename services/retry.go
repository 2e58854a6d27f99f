// services/retry.go
package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WithRetry runs op up to maxAttempts times with a fixed wait between
// attempts, honoring context cancellation between tries. Download, upload
// and delete paths all share this single retry policy instead of ad hoc
// per-call-site loops.
func WithRetry(ctx context.Context, op func() error, maxAttempts uint64, wait time.Duration) error {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(wait), maxAttempts-1),
		ctx,
	)
	return backoff.Retry(op, policy)
}

// Permanent marks an error as non-retryable so WithRetry fails fast.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
