package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lostfound/internal/session/models"
)

// RouteKeyPrefix is the well-known key the route lives under, suffixed by namespace.
const RouteKeyPrefix = "lostfound:route:"

// RedisStore keeps one string per namespace (one namespace per browser
// origin/profile). Routes outside the allow-list are refused.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedis(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, key: RouteKeyPrefix + namespace}
}

func (s *RedisStore) Load(ctx context.Context) (models.Route, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return models.RouteNone, nil
	}
	if err != nil {
		return models.RouteNone, fmt.Errorf("load route: %w", err)
	}
	route := models.Route(val)
	if !route.Persistable() {
		// written by an older build; treat as absent
		return models.RouteNone, nil
	}
	return route, nil
}

func (s *RedisStore) Save(ctx context.Context, route models.Route) error {
	if !route.Persistable() {
		return fmt.Errorf("route %q is not persistable", route)
	}
	if err := s.client.Set(ctx, s.key, string(route), 0).Err(); err != nil {
		return fmt.Errorf("save route: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear route: %w", err)
	}
	return nil
}
