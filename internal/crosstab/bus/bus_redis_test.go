package bus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/internal/crosstab/models"
	id "lostfound/pkg/domain"
)

func TestRedisBusDeliversAcrossClients(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pubClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	subClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = pubClient.Close()
		_ = subClient.Close()
	})

	publisher := NewRedis(pubClient, "origin-1", logger)
	subscriber := NewRedis(subClient, "origin-1", logger)
	elsewhere := NewRedis(subClient, "origin-2", logger)

	var (
		mu       sync.Mutex
		received []models.Message
		stray    int
	)
	ctx := context.Background()
	cancel, err := subscriber.Subscribe(ctx, func(m models.Message) {
		mu.Lock()
		received = append(received, m)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()
	cancelOther, err := elsewhere.Subscribe(ctx, func(models.Message) {
		mu.Lock()
		stray++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancelOther()

	tab := id.NewTabID()
	require.NoError(t, publisher.Publish(ctx, models.Message{Kind: models.MessageAnnounce, Flow: models.FlowRecovery, OriginTab: tab}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, tab, received[0].OriginTab)
	assert.Equal(t, models.FlowRecovery, received[0].Flow)
	assert.Zero(t, stray, "namespaces are isolated")
}

func TestInMemoryBusCancel(t *testing.T) {
	b := NewInMemory()
	var got int
	cancel, err := b.Subscribe(context.Background(), func(models.Message) { got++ })
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), models.Message{Kind: models.MessageAnnounce}))
	cancel()
	cancel()
	require.NoError(t, b.Publish(context.Background(), models.Message{Kind: models.MessageRetract}))
	assert.Equal(t, 1, got)
}
