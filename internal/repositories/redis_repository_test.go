package repository_test

import (
	"testing"
	"time"

	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	ctx := t.Context()

	setup := func(t *testing.T) (repository.RateLimiter, *miniredis.Miniredis, *redis.Client) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		return repository.NewRateLimiter(client, "checkout_starts", time.Minute, 2), mr, client
	}

	t.Run("Blocks Once The Window Is Full", func(t *testing.T) {
		limiter, mr, _ := setup(t)

		for range 2 {
			allowed, retryAfter, err := limiter.Allow(ctx, "sess-1")
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Zero(t, retryAfter)
		}

		allowed, retryAfter, err := limiter.Allow(ctx, "sess-1")

		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Greater(t, retryAfter, time.Duration(0))
		assert.LessOrEqual(t, retryAfter, time.Minute)
		assert.True(t, mr.Exists("checkout_starts:sess-1"))
	})

	t.Run("Rejected Attempts Are Not Recorded", func(t *testing.T) {
		limiter, _, client := setup(t)

		for range 5 {
			_, _, err := limiter.Allow(ctx, "sess-1")
			require.NoError(t, err)
		}

		recorded, err := client.ZCard(ctx, "checkout_starts:sess-1").Result()

		require.NoError(t, err)
		assert.Equal(t, int64(2), recorded)
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		limiter, _, _ := setup(t)

		for range 3 {
			_, _, err := limiter.Allow(ctx, "sess-1")
			require.NoError(t, err)
		}

		allowed, _, err := limiter.Allow(ctx, "sess-2")

		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Redis Failure", func(t *testing.T) {
		limiter, mr, _ := setup(t)
		mr.Close()

		allowed, _, err := limiter.Allow(ctx, "sess-1")

		require.Error(t, err)
		assert.False(t, allowed)
	})
}
