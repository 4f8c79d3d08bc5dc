package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowLimiterWithoutRedis(t *testing.T) {
	tests := []struct {
		name  string
		limit int
	}{
		{name: "positive limit", limit: 2},
		{name: "disabled", limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewFixedWindowLimiter(nil, tt.limit, 0)
			for range 5 {
				res, err := l.Allow(context.Background(), "1.2.3.4")
				require.NoError(t, err)
				assert.True(t, res.Allowed)
				assert.Equal(t, time.Minute, res.ResetIn)
			}
		})
	}
}

func TestFixedWindowLimiterRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	l := NewFixedWindowLimiter(client, 10, time.Minute)
	res, err := l.Allow(context.Background(), "1.2.3.4")
	assert.Error(t, err)
	assert.True(t, res.Allowed, "limiter fails open")
	assert.Equal(t, 10, res.Remaining)
}
