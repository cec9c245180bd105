// Package guard rejects a workflow action while the same action on the same
// target is still running, so a double submit cannot apply twice.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "lostfound/pkg/domain-errors"
)

// DefaultTTL bounds how long a crashed holder can block a key.
const DefaultTTL = 30 * time.Second

// Key builds the dedup key for action on target.
func Key(action, target string) string {
	return action + ":" + target
}

// errInProgress reports a key that is already held.
func errInProgress(key string) error {
	return dErrors.WithRemedy(dErrors.CodeInProgress,
		fmt.Sprintf("%s is already being processed", key),
		"wait for the current request to finish")
}

// InMemory guards keys within one process.
type InMemory struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewInMemory(ttl time.Duration) *InMemory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemory{held: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// Acquire holds key until release is called or the TTL lapses.
func (g *InMemory) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if exp, ok := g.held[key]; ok && now.Before(exp) {
		return nil, errInProgress(key)
	}
	exp := now.Add(g.ttl)
	g.held[key] = exp
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.held[key].Equal(exp) {
			delete(g.held, key)
		}
	}, nil
}

const redisKeyPrefix = "lostfound:guard:"

// releaseScript deletes the key only when ARGV[1] still owns it.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Redis guards keys across every server sharing the instance.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

type RedisOption func(*Redis)

// WithKeyPrefix namespaces guard keys, e.g. "staging:guard:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(g *Redis) {
		if prefix != "" {
			g.prefix = prefix
		}
	}
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, opts ...RedisOption) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g := &Redis{client: client, ttl: ttl, prefix: redisKeyPrefix}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.prefix+key, token, g.ttl).Result()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire processing guard")
	}
	if !ok {
		return nil, errInProgress(key)
	}
	return func() {
		// Release must run even when the request context is already done.
		_ = releaseScript.Run(context.WithoutCancel(ctx), g.client, []string{g.prefix + key}, token).Err()
	}, nil
}
