package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"lostfound/internal/platform/config"
)

// DefaultNamespace prefixes every key when REDIS_NAMESPACE is unset.
const DefaultNamespace = "lostfound"

// Client wraps the go-redis client with health checking, key namespacing and
// pool metrics. The guard, rate limiter and cross-tab stores share one pool.
type Client struct {
	*redis.Client
	namespace string
}

// New creates a new Redis client from the provided configuration.
// Returns nil if the URL is empty (Redis not configured).
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout+time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ns := strings.Trim(cfg.Namespace, ":")
	if ns == "" {
		ns = DefaultNamespace
	}
	return &Client{Client: client, namespace: ns}, nil
}

// Namespace is the key prefix handed to the stores built on this client.
func (c *Client) Namespace() string {
	return c.namespace
}

// Key joins parts under the client namespace: Key("guard", "verify") is
// "lostfound:guard:verify".
func (c *Client) Key(parts ...string) string {
	return c.namespace + ":" + strings.Join(parts, ":")
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}

// RegisterMetrics exposes pool statistics on reg. Values are read from the
// pool at scrape time, so no sampling goroutine is needed.
func (c *Client) RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(&poolCollector{client: c.Client})
}

var (
	poolHitsDesc = prometheus.NewDesc("lostfound_redis_pool_hits_total",
		"Number of times a connection was found in the pool", nil, nil)
	poolMissesDesc = prometheus.NewDesc("lostfound_redis_pool_misses_total",
		"Number of times a connection was not found in the pool", nil, nil)
	poolTimeoutsDesc = prometheus.NewDesc("lostfound_redis_pool_timeouts_total",
		"Number of times a connection was not obtained due to timeout", nil, nil)
	poolStaleDesc = prometheus.NewDesc("lostfound_redis_pool_stale_conns_total",
		"Number of stale connections removed from the pool", nil, nil)
	poolTotalDesc = prometheus.NewDesc("lostfound_redis_pool_total_conns",
		"Number of total connections in the pool", nil, nil)
	poolIdleDesc = prometheus.NewDesc("lostfound_redis_pool_idle_conns",
		"Number of idle connections in the pool", nil, nil)
)

type poolCollector struct {
	client *redis.Client
}

func (p *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolHitsDesc
	ch <- poolMissesDesc
	ch <- poolTimeoutsDesc
	ch <- poolStaleDesc
	ch <- poolTotalDesc
	ch <- poolIdleDesc
}

func (p *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := p.client.PoolStats()
	ch <- prometheus.MustNewConstMetric(poolHitsDesc, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(poolMissesDesc, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(poolTimeoutsDesc, prometheus.CounterValue, float64(s.Timeouts))
	ch <- prometheus.MustNewConstMetric(poolStaleDesc, prometheus.CounterValue, float64(s.StaleConns))
	ch <- prometheus.MustNewConstMetric(poolTotalDesc, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(s.IdleConns))
}
