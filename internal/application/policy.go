package application

import (
	"context"
	"time"
)

// ThrottlePolicy bounds how search results are enriched with quotes.
// MaxConcurrent 1 makes enrichment strictly sequential; InterRequestDelay
// is waited between consecutive batches.
type ThrottlePolicy struct {
	MaxResults        int
	MaxConcurrent     int
	InterRequestDelay time.Duration
}

// DefaultThrottlePolicy keeps enrichment under free-tier per-minute quotas.
var DefaultThrottlePolicy = ThrottlePolicy{
	MaxResults:        5,
	MaxConcurrent:     1,
	InterRequestDelay: 250 * time.Millisecond,
}

// Timeouts bound each individual provider call.
type Timeouts struct {
	Search   time.Duration
	Quote    time.Duration
	History  time.Duration
	Overview time.Duration
}

var DefaultTimeouts = Timeouts{
	Search:   12 * time.Second,
	Quote:    12 * time.Second,
	History:  15 * time.Second,
	Overview: 12 * time.Second,
}

// withDefaults replaces every non-positive field with its DefaultTimeouts
// value so no provider call runs without a deadline.
func (t Timeouts) withDefaults() Timeouts {
	pick := func(v, def time.Duration) time.Duration {
		if v <= 0 {
			return def
		}
		return v
	}
	return Timeouts{
		Search:   pick(t.Search, DefaultTimeouts.Search),
		Quote:    pick(t.Quote, DefaultTimeouts.Quote),
		History:  pick(t.History, DefaultTimeouts.History),
		Overview: pick(t.Overview, DefaultTimeouts.Overview),
	}
}

// Sleeper waits between throttled calls. Tests inject a recording fake.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
