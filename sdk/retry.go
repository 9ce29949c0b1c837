package tutor

import (
	"context"
	"errors"

	"github.com/sethvargo/go-retry"

	"github.com/prepod-ai/tutor/pkg/core"
)

// doIdempotent wraps a read-only call with bounded exponential backoff.
// Mutating calls must not go through here.
func (c *Client) doIdempotent(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if shouldRetryRead(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func shouldRetryRead(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr.IsRetryable()
	}
	return false
}
