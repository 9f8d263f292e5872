package relay

import (
	"context"
	"testing"
	"time"
)

func TestRetryDelayCapsAtMax(t *testing.T) {
	cases := map[int]time.Duration{
		0:  retryBase,
		1:  retryBase,
		2:  2 * retryBase,
		3:  4 * retryBase,
		40: maxRetryDelay,
	}
	for attempt, want := range cases {
		if got := retryDelay(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}

func TestSlowerDoublesUpToIdleCap(t *testing.T) {
	if got := slower(0, time.Second); got != 2*time.Second {
		t.Fatalf("expected floor doubled, got %s", got)
	}
	if got := slower(8*time.Second, time.Second); got != maxIdleWait {
		t.Fatalf("expected capped wait, got %s", got)
	}
}

func TestJitteredStaysInWindow(t *testing.T) {
	for range 20 {
		got := jittered(time.Second)
		if got < time.Second || got >= time.Second+jitterWindow {
			t.Fatalf("jitter out of window: %s", got)
		}
	}
	if jittered(0) != 0 {
		t.Fatalf("expected zero duration to stay zero")
	}
}

func TestSleepCtxReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); err == nil {
		t.Fatalf("expected canceled context error")
	}
}
