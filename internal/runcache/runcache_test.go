package runcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/teams"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, ttl, zap.NewNop()), mr
}

func TestDigestInputStable(t *testing.T) {
	in := teams.Input{Part1Context: "chat", RawReviews: "reviews"}
	assert.Equal(t, DigestInput(in), DigestInput(in))

	changed := in
	changed.RawReviews = "reviews edited"
	assert.NotEqual(t, DigestInput(in), DigestInput(changed))
}

func TestPutAndGet(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()
	digest := DigestInput(teams.Input{Part2Text: "listing"})

	entry := Entry{RunID: "r1", Report: "# Plan", Warning: "thin harvest"}
	require.NoError(t, cache.Put(ctx, digest, entry))

	got, hit, err := cache.Get(ctx, digest)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, &entry, got)
}

func TestGetMiss(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)
	_, hit, err := cache.Get(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestEntryExpires(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "d", Entry{RunID: "r1", Report: "x"}))
	mr.FastForward(2 * time.Minute)

	_, hit, err := cache.Get(ctx, "d")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t, 0)
	require.NoError(t, mr.Set(key("d"), "{not json"))

	_, hit, err := cache.Get(context.Background(), "d")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "d", Entry{RunID: "r1", Report: "x"}))
	require.NoError(t, cache.Invalidate(ctx, "d"))

	_, hit, err := cache.Get(ctx, "d")
	require.NoError(t, err)
	assert.False(t, hit)
}
