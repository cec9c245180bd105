package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/internal/crosstab/models"
	id "lostfound/pkg/domain"
)

func TestInMemoryStoreStaleness(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	st := NewInMemory(WithClock(func() time.Time { return now }))
	ctx := context.Background()
	tab := id.NewTabID()

	require.NoError(t, st.Set(ctx, models.Flag{Flow: models.FlowRecovery, OriginTab: tab, SetAt: now}, time.Minute))

	now = now.Add(59 * time.Second)
	flag, err := st.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, flag)

	now = now.Add(time.Second)
	flag, err = st.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, flag)

	owned, err := st.Refresh(ctx, tab, time.Minute)
	require.NoError(t, err)
	assert.False(t, owned, "an expired flag cannot be revived")
}

func TestInMemoryStoreKeepsOneFlagPerTab(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	st := NewInMemory(WithClock(func() time.Time { return now }))
	ctx := context.Background()
	tabA, tabC := id.NewTabID(), id.NewTabID()

	require.NoError(t, st.Set(ctx, models.Flag{Flow: models.FlowRecovery, OriginTab: tabA, SetAt: now}, 2*time.Minute))
	now = now.Add(time.Second)
	require.NoError(t, st.Set(ctx, models.Flag{Flow: models.FlowEmailVerify, OriginTab: tabC, SetAt: now}, time.Minute))

	flag, err := st.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.Equal(t, tabC, flag.OriginTab, "latest announcement is reported")

	owned, err := st.Refresh(ctx, tabA, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, owned, "tab A still owns its own flag")

	cleared, err := st.ClearIfOwner(ctx, tabC)
	require.NoError(t, err)
	assert.True(t, cleared)

	flag, err = st.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.Equal(t, tabA, flag.OriginTab)

	cleared, err = st.ClearIfOwner(ctx, tabC)
	require.NoError(t, err)
	assert.False(t, cleared, "second clear is a no-op")
}
