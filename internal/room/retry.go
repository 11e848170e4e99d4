// internal/room/retry.go
package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/loteria/internal/store"
	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds how hard a transaction is retried on store failures.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration // doubled after every failed attempt
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, Backoff: 25 * time.Millisecond}

// withRetry runs attempt until it succeeds, fails permanently, or the policy
// is exhausted, in which case the last error is wrapped in ErrStoreUnavailable.
func (c *Coordinator) withRetry(ctx context.Context, roomID, op string, attempt func() error) error {
	backoff := c.retry.Backoff
	for i := 1; ; i++ {
		err := attempt()
		if permanent(err) {
			return translate(err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		fields := logrus.Fields{"room": roomID, "op": op, "attempt": i}
		if i >= c.retry.MaxAttempts {
			c.logger.WithFields(fields).WithError(err).Warn("store retries exhausted")
			return fmt.Errorf("%s on room %s: %w: %w", op, roomID, ErrStoreUnavailable, err)
		}
		c.logger.WithFields(fields).WithError(err).Warn("store operation failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

// translate maps store-level errors onto room error kinds.
func translate(err error) error {
	if err != nil && errors.Is(err, store.ErrNotFound) && !errors.Is(err, ErrRoomNotFound) {
		return fmt.Errorf("%w: %w", ErrRoomNotFound, err)
	}
	return err
}
