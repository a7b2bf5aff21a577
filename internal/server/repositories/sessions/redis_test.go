package sessions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func newSession(id, userID string) *models.Session {
	return &models.Session{
		ID:               id,
		UserID:           userID,
		AccessTokenHash:  "access-" + id,
		RefreshTokenHash: "refresh-" + id,
		DeviceType:       "web",
		IssuedAt:         time.Now().UTC(),
		IsActive:         true,
	}
}

func TestRedisStore_ActivateAndGet(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	s := newSession("s1", "u1")
	require.NoError(t, store.Activate(ctx, s))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "access-s1", got.AccessTokenHash)
	assert.Equal(t, "refresh-s1", got.RefreshTokenHash)
	assert.Equal(t, "web", got.DeviceType)
	assert.True(t, got.IssuedAt.Equal(s.IssuedAt))
	assert.Nil(t, got.EndedAt)
}

func TestRedisStore_SecondLoginSupersedesFirst(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Activate(ctx, newSession("s1", "u1")))
	require.NoError(t, store.Activate(ctx, newSession("s2", "u1")))

	first, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, first.IsActive)
	assert.NotNil(t, first.EndedAt)

	second, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, second.IsActive)

	err = store.UpdateAccessHash(ctx, "s1", "x")
	assert.ErrorIs(t, err, common.ErrorNotFound, "inactive session must not be refreshed")
}

func TestRedisStore_OtherUsersUnaffected(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Activate(ctx, newSession("a1", "alice")))
	require.NoError(t, store.Activate(ctx, newSession("b1", "bob")))

	a, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, a.IsActive)
}

func TestRedisStore_UpdateAccessHash(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Activate(ctx, newSession("s1", "u1")))
	require.NoError(t, store.UpdateAccessHash(ctx, "s1", "rotated"))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.AccessTokenHash)

	assert.ErrorIs(t, store.UpdateAccessHash(ctx, "missing", "x"), common.ErrorNotFound)
}

func TestRedisStore_DeactivateUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Activate(ctx, newSession("s1", "u1")))

	at := time.Now()
	require.NoError(t, store.DeactivateUser(ctx, "u1", at))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, at.UnixNano(), got.EndedAt.UnixNano())

	// idempotent
	require.NoError(t, store.DeactivateUser(ctx, "u1", time.Now()))
	require.NoError(t, store.DeactivateUser(ctx, "nobody", time.Now()))
}

func TestRedisStore_Expiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Activate(ctx, newSession("s1", "u1")))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRedisStore_ConcurrentLoginsLeaveOneActive(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Activate(ctx, newSession(fmt.Sprintf("s%d", i), "u1")))
		}(i)
	}
	wg.Wait()

	active := 0
	for i := 0; i < n; i++ {
		s, err := store.Get(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		if s.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}
