package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
)

func testConfig() cfgpkg.RedisConfig {
	return cfgpkg.RedisConfig{
		Enabled:     true,
		Addr:        "localhost:6379",
		DB:          15,
		PoolSize:    4,
		DialTimeout: 500 * time.Millisecond,
	}
}

func setupTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), testConfig())
	if err != nil {
		t.Skipf("Redis不可用，跳过测试: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOptions(t *testing.T) {
	opts := Options(testConfig())
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 15, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)
}

func TestNewClient_Disabled(t *testing.T) {
	_, err := NewClient(context.Background(), cfgpkg.RedisConfig{})
	assert.Error(t, err)

	var c *Client
	assert.NoError(t, c.Close())
}

func TestClient_LockHolder(t *testing.T) {
	c := setupTestClient(t)
	ctx := context.Background()
	key := "loadbank:test:holder"
	defer c.Del(ctx, key)

	_, _, held, err := c.LockHolder(ctx, key)
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, c.Set(ctx, key, "token-1", 10*time.Second).Err())
	token, ttl, held, err := c.LockHolder(ctx, key)
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, "token-1", token)
	assert.Greater(t, ttl, time.Duration(0))

	assert.NoError(t, c.HealthCheck(ctx))
	assert.NotNil(t, c.Stats())
}
