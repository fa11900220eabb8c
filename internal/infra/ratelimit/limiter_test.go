package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_UnlimitedDoesNotWait(t *testing.T) {
	l := New(0)
	ctx := context.Background()

	start := time.Now()
	for range 100 {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_Throttles(t *testing.T) {
	// 600 rpm = 100ms 間隔
	l := New(600)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		require.NoError(t, l.Wait(ctx))
	}

	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestLimiter_ContextCancelledWhileWaiting(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}
