package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lostfound/internal/crosstab/models"
	id "lostfound/pkg/domain"
)

const (
	flagKeyPrefix  = "authflow:flag:"
	indexKeyPrefix = "authflow:tabs:"
)

// RedisStore keeps one hash per owning tab, each with its own PEXPIRE TTL,
// plus a set indexing the tabs of a namespace (one namespace per browser
// origin/profile). Index members whose hash has expired are pruned on read.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	index     string
}

func NewRedis(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace, index: indexKeyPrefix + namespace}
}

func (s *RedisStore) flagKey(tab string) string {
	return flagKeyPrefix + s.namespace + ":" + tab
}

// Get returns the most recently set live flag, or nil when none is live.
func (s *RedisStore) Get(ctx context.Context) (*models.Flag, error) {
	tabs, err := s.client.SMembers(ctx, s.index).Result()
	if err != nil {
		return nil, fmt.Errorf("read auth flow index: %w", err)
	}
	if len(tabs) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(tabs))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, tab := range tabs {
			cmds[i] = pipe.HGetAll(ctx, s.flagKey(tab))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read auth flow flags: %w", err)
	}

	var latest *models.Flag
	var stale []any
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, tabs[i])
			continue
		}
		flag, err := parseFlag(fields)
		if err != nil {
			return nil, err
		}
		if latest == nil || flag.SetAt.After(latest.SetAt) {
			latest = flag
		}
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.index, stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune auth flow index: %w", err)
		}
	}
	return latest, nil
}

func parseFlag(fields map[string]string) (*models.Flag, error) {
	tab, err := uuid.Parse(fields["origin_tab"])
	if err != nil {
		return nil, fmt.Errorf("parse flag origin: %w", err)
	}
	setAt, err := strconv.ParseInt(fields["set_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse flag time: %w", err)
	}
	return &models.Flag{
		Flow:      models.Flow(fields["flow"]),
		OriginTab: id.TabID(tab),
		SetAt:     time.Unix(0, setAt).UTC(),
	}, nil
}

// Set writes the flag under its origin tab, replacing only that tab's entry.
func (s *RedisStore) Set(ctx context.Context, flag models.Flag, ttl time.Duration) error {
	tab := flag.OriginTab.String()
	key := s.flagKey(tab)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"flow", string(flag.Flow),
			"origin_tab", tab,
			"set_at", strconv.FormatInt(flag.SetAt.UnixNano(), 10),
		)
		pipe.PExpire(ctx, key, ttl)
		pipe.SAdd(ctx, s.index, tab)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write auth flow flag: %w", err)
	}
	return nil
}

// Refresh extends the TTL of tab's own flag. It reports false once the flag
// has expired or been cleared.
func (s *RedisStore) Refresh(ctx context.Context, tab id.TabID, ttl time.Duration) (bool, error) {
	ok, err := s.client.PExpire(ctx, s.flagKey(tab.String()), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("refresh auth flow flag: %w", err)
	}
	return ok, nil
}

// ClearIfOwner removes tab's own flag. Flags held by other tabs stay.
func (s *RedisStore) ClearIfOwner(ctx context.Context, tab id.TabID) (bool, error) {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.flagKey(tab.String()))
		pipe.SRem(ctx, s.index, tab.String())
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("clear auth flow flag: %w", err)
	}
	return del.Val() == 1, nil
}
