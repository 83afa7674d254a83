package skills

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, "skills:snapshot", time.Minute), client
}

func TestRedisCache_RefreshThenSnapshotRoundTrips(t *testing.T) {
	lib := &Library{skills: make(map[string]*Skill), minSamples: 1}
	lib.CreateSkill(Trigger{TaskType: "bugfix"}, "retry with smaller diff")

	cache, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx, lib))

	snap, err := cache.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "retry with smaller diff", snap[0].Approach)
}

func TestRedisCache_SnapshotMissingKeyReturnsNilNotError(t *testing.T) {
	cache, _ := newTestCache(t)
	snap, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}
