package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	cfg := AlphaVantageDailyLimit(25)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 25, remaining)

	assert.NoError(t, limiter.Wait(context.Background(), AlphaVantageBurstLimit))
}

func TestAlphaVantageDailyLimit(t *testing.T) {
	cfg := AlphaVantageDailyLimit(500)

	assert.Equal(t, "alphavantage:daily", cfg.Key)
	assert.Equal(t, 500, cfg.Limit)
	assert.Equal(t, 24*time.Hour, cfg.Window)
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(disabledClient(t), "test")

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(ctx, "key"))
	assert.NoError(t, cache.DeletePrefix(ctx, "fact:"))
}

func TestCache_GetOrSetDisabledCallsLoader(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	calls := 0
	var got map[string]int
	err := cache.GetOrSet(context.Background(), "k", &got, TTLShort, func() (interface{}, error) {
		calls++
		return map[string]int{"rows": 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, got["rows"])
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{"FactKey", func() string { return FactKey("ko") }, "fact:KO"},
		{"FactLatestKey", func() string { return FactLatestKey("KO") }, "fact:KO:latest"},
		{"ScreenerKey", func() string { return ScreenerKey("rule_peg") }, "screener:rule_peg"},
		{"LatestRunKey", LatestRunKey, "run:latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn())
		})
	}
}
