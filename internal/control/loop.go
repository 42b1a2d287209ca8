package control

import (
	"context"
	"time"
)

// dtEpsilon substitutes for a zero inter-sample interval in rate
// computations.
const dtEpsilon = 1e-9

// runEvery invokes fn once per period until ctx is cancelled or fn
// returns false. The sleep after each pass is the period minus the time
// the pass took, floored at zero, so a slow instrument read eats into
// the idle time instead of stretching the cycle.
//
// The period is re-read every pass so a settings change applies without
// restarting the loop.
func runEvery(ctx context.Context, period func() time.Duration, fn func(ctx context.Context) bool) {
	for {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if !fn(ctx) {
			return
		}
		sleep := period() - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}
