package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
	"github.com/maxischmaxi/code-preview-server/internal/repositories/memory"
)

// setupTestRedis creates a miniredis instance and a redis client for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestCreateStoresSessionWithTTL(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	repo := NewSessionRepo(memory.NewSessionRepo(), rdb, time.Hour, nil)

	created, err := repo.Create(context.Background(), &models.Session{CreatedBy: "alice"})
	require.NoError(t, err)

	assert.True(t, mr.Exists(sessionKey(created.ID)))
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(created.ID)))
}

func TestGetServesFromCache(t *testing.T) {
	_, rdb := setupTestRedis(t)
	inner := memory.NewSessionRepo()
	repo := NewSessionRepo(inner, rdb, time.Hour, nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Session{CreatedBy: "alice", Code: "v1"})
	require.NoError(t, err)

	// Change the backing store behind the cache's back; the cached copy wins.
	stale := *created
	stale.Code = "v2"
	require.NoError(t, inner.Update(ctx, &stale))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Code)
}

func TestGetFallsBackOnMiss(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	inner := memory.NewSessionRepo()
	repo := NewSessionRepo(inner, rdb, time.Hour, nil)
	ctx := context.Background()

	created, err := inner.Create(ctx, &models.Session{CreatedBy: "alice", Code: "db"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(sessionKey(created.ID)))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "db", got.Code)
	assert.True(t, mr.Exists(sessionKey(created.ID)))
}

func TestGetMissingPropagatesNotFound(t *testing.T) {
	_, rdb := setupTestRedis(t)
	repo := NewSessionRepo(memory.NewSessionRepo(), rdb, time.Hour, nil)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUpdateWritesThrough(t *testing.T) {
	_, rdb := setupTestRedis(t)
	inner := memory.NewSessionRepo()
	repo := NewSessionRepo(inner, rdb, time.Hour, nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Session{CreatedBy: "alice"})
	require.NoError(t, err)
	created.Admins = []string{"bob"}
	require.NoError(t, repo.Update(ctx, created))

	fromInner, err := inner.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, fromInner.Admins)

	fromCache, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, fromCache.Admins)
}

func TestRedisOutageDoesNotFailReads(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })
	inner := memory.NewSessionRepo()
	repo := NewSessionRepo(inner, rdb, time.Hour, nil)
	ctx := context.Background()

	created, err := inner.Create(ctx, &models.Session{CreatedBy: "alice"})
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestDeleteAllPurgesCache(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	repo := NewSessionRepo(memory.NewSessionRepo(), rdb, time.Hour, nil)
	ctx := context.Background()

	a, err := repo.Create(ctx, &models.Session{CreatedBy: "a"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, &models.Session{CreatedBy: "b"})
	require.NoError(t, err)
	require.NoError(t, mr.Set("unrelated", "keep"))

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.False(t, mr.Exists(sessionKey(a.ID)))
	assert.False(t, mr.Exists(sessionKey(b.ID)))
	assert.True(t, mr.Exists("unrelated"))

	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
