package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/cache"
)

func TestRateLimiterAllow(t *testing.T) {
	ctx := context.Background()
	store := cache.NewStore(cache.Options{})
	limiter, err := NewRateLimiter(store, "subscribe", 2, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// 其他来源与其他命名空间互不影响。
	res, err = limiter.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	other, err := NewRateLimiter(store, "heartbeat", 2, time.Minute)
	require.NoError(t, err)
	res, err = other.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	limiter.Reset(ctx, "1.2.3.4")
	res, err = limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestNewRateLimiterValidates(t *testing.T) {
	_, err := NewRateLimiter(nil, "x", 1, time.Minute)
	require.Error(t, err)
	_, err = NewRateLimiter(cache.NewStore(cache.Options{}), "x", 0, time.Minute)
	require.Error(t, err)
}
