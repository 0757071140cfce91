package utils

import (
	"context"
	"time"
)

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns base doubled attempt times, capped at limit. A non-positive
// limit means no cap.
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 0 {
		return 0
	}

	d := base
	for i := 0; i < attempt; i++ {
		if limit > 0 && d >= limit {
			break
		}
		d *= 2
	}

	if limit > 0 && d > limit {
		return limit
	}
	return d
}
