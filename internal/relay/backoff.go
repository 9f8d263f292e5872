package relay

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	retryBase     = 2 * time.Second
	maxRetryDelay = 5 * time.Minute
	maxIdleWait   = 10 * time.Second
	jitterWindow  = 250 * time.Millisecond
)

// retryDelay is how long a row waits after its nth failed publish.
func retryDelay(attempt int) time.Duration {
	delay := retryBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

// slower doubles the idle wait after a failed drain.
func slower(current, floor time.Duration) time.Duration {
	if current < floor {
		current = floor
	}
	return min(current*2, maxIdleWait)
}

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
