package driveapi

import (
	"context"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const (
	throttleKey      = "drive-outbound"
	throttleMinSleep = 50 * time.Millisecond
)

// Throttle bounds the rate of outbound drive calls so the client stays under
// the API's published quota instead of burning it on 429 retries.
type Throttle struct {
	limiter *limiter.Limiter
}

// NewThrottle allows at most `calls` requests per `period`.
func NewThrottle(calls int64, period time.Duration) *Throttle {
	store := memory.NewStore()
	return &Throttle{
		limiter: limiter.New(store, limiter.Rate{
			Period: period,
			Limit:  calls,
		}),
	}
}

// Wait blocks until a request slot is available or the context is done.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		lctx, err := t.limiter.Get(ctx, throttleKey)
		if err != nil {
			return err
		}
		if !lctx.Reached {
			return nil
		}

		delay := time.Until(time.Unix(lctx.Reset, 0))
		if delay < throttleMinSleep {
			delay = throttleMinSleep
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
