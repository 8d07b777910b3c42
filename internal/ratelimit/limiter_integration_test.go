//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcop/internal/ratelimit"
	"arcop/pkg/testutil/containers"
)

func TestRedisLimiterEnforcesWindow(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	limiter := ratelimit.NewRedisLimiter(rc.Client, 3)

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, time.Minute)
}

func TestRedisLimiterIsolatesClients(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	limiter := ratelimit.NewRedisLimiter(rc.Client, 1)

	res, err := limiter.Allow(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// A different client is unaffected by the first one's exhaustion.
	res, err = limiter.Allow(ctx, "203.0.113.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
