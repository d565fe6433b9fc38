package driveapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_AllowsUpToQuota(t *testing.T) {
	throttle := NewThrottle(5, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	for range 5 {
		require.NoError(t, throttle.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestThrottle_BlocksWhenExhausted(t *testing.T) {
	throttle := NewThrottle(1, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, throttle.Wait(ctx))

	// quota spent, second wait must block until the context gives up
	err := throttle.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
