// services/retry_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	}, 2, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return errors.New("persistent")
	}, 2, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithRetryPermanentErrorFailsFast(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return Permanent(errors.New("bad request"))
	}, 3, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := WithRetry(ctx, func() error {
		attempts++
		return errors.New("transient")
	}, 5, time.Minute)

	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 1)
}
