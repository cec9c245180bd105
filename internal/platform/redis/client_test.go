package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/internal/platform/config"
)

func TestNew(t *testing.T) {
	t.Run("empty URL means not configured", func(t *testing.T) {
		c, err := New(config.RedisConfig{})
		assert.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("unreachable server fails fast", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := New(config.RedisConfig{URL: "redis://" + addr, DialTimeout: 100 * time.Millisecond})
		assert.Error(t, err)
	})

	t.Run("connects and reports health", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := New(config.RedisConfig{
			URL:         "redis://" + mr.Addr(),
			PoolSize:    2,
			DialTimeout: time.Second,
		})
		require.NoError(t, err)
		defer c.Close()

		assert.NoError(t, c.Health(context.Background()))
	})
}

func TestKeys(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, DefaultNamespace, c.Namespace())
	assert.Equal(t, "lostfound:guard:verify:abc", c.Key("guard", "verify", "abc"))

	c2, err := New(config.RedisConfig{URL: "redis://" + mr.Addr(), Namespace: "staging:"})
	require.NoError(t, err)
	defer c2.Close()
	assert.Equal(t, "staging:crosstab", c2.Key("crosstab"))
}

func TestRegisterMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, c.RegisterMetrics(reg))
	require.NoError(t, c.Health(context.Background()))

	n, err := testutil.GatherAndCount(reg, "lostfound_redis_pool_total_conns", "lostfound_redis_pool_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Error(t, c.RegisterMetrics(reg), "registering twice is rejected")
}
