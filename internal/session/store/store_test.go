package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/internal/session/models"
)

type routeStore interface {
	Load(ctx context.Context) (models.Route, error)
	Save(ctx context.Context, route models.Route) error
	Clear(ctx context.Context) error
}

func TestRouteStores(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stores := map[string]routeStore{
		"memory": NewInMemory(),
		"redis":  NewRedis(client, "profile-a"),
	}
	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			route, err := st.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, models.RouteNone, route)

			require.NoError(t, st.Save(ctx, models.RouteAdminAudit))
			route, err = st.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, models.RouteAdminAudit, route)

			assert.Error(t, st.Save(ctx, models.RouteResetPassword))
			assert.Error(t, st.Save(ctx, models.RouteLanding))
			route, _ = st.Load(ctx)
			assert.Equal(t, models.RouteAdminAudit, route, "refused saves leave the old route")

			require.NoError(t, st.Clear(ctx))
			route, err = st.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, models.RouteNone, route)
		})
	}
}

func TestRedisStoreUsesWellKnownKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, NewRedis(client, "profile-a").Save(ctx, models.RouteItems))
	val, err := mr.Get(RouteKeyPrefix + "profile-a")
	require.NoError(t, err)
	assert.Equal(t, "items", val)

	// a value no build would write is treated as absent
	require.NoError(t, mr.Set(RouteKeyPrefix+"profile-b", "reset-password"))
	route, err := NewRedis(client, "profile-b").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RouteNone, route)
}
