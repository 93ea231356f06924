// Package clock provides context-aware time helpers for polling loops.
package clock

import (
	"context"
	"time"
)

// SleepWithContext blocks for d or until the context ends, whichever comes
// first, returning the context error on early wakeup.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
