// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"fmt"
	"time"
)

// maxBackoffDelay caps the wait between two clone attempts.
const maxBackoffDelay = 30 * time.Second

// Backoff spaces out repeated attempts of an operation: the n-th retry waits
// Base * 2^(n-1), capped at Max.
type Backoff struct {
	Attempts int
	Base     time.Duration
	// Max caps a single wait; zero means maxBackoffDelay.
	Max time.Duration
}

// Delay returns the wait before the given retry (1 for the first retry).
func (b Backoff) Delay(retry int) time.Duration {
	limit := b.Max
	if limit <= 0 {
		limit = maxBackoffDelay
	}
	if retry < 1 || b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return min(d, limit)
}

// Retry calls op until it succeeds, reports a permanent failure, or the
// attempts run out; the last error is returned in the latter two cases.
// op reports whether its error is worth another attempt. Waiting stops early
// when ctx is done.
func (b Backoff) Retry(ctx context.Context, op func(attempt int) (retry bool, err error)) error {
	attempts := max(b.Attempts, 1)

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			timer := time.NewTimer(b.Delay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-timer.C:
			}
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}
