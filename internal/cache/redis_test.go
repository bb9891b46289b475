package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"solar-simulator/internal/models"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), Options{Addr: srv.Addr()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestRedisCache_StoreAndRead(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	records := map[string]models.Record{
		"provence": {
			FarmName:          "provence",
			Timestamp:         time.Date(2024, 6, 13, 12, 0, 0, 0, time.UTC),
			PowerProductionKW: 1500,
			InverterStatus:    []int{1, 1, 0, 1},
			AnomalyType:       models.AnomalyInverterDown,
			AnomalySeverity:   models.SeverityHigh,
		},
		"occitanie": models.DefaultRecord("occitanie", 3),
	}
	require.NoError(t, c.StoreSnapshot(ctx, records))

	got, err := c.Record(ctx, "provence")
	require.NoError(t, err)
	assert.Equal(t, records["provence"], got)

	all, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, all)

	n, err := c.Refreshes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisCache_MissingRecord(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Record(context.Background(), "bretagne")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := c.Refreshes(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisCache_RecordsExpire(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.StoreSnapshot(ctx, map[string]models.Record{"provence": {FarmName: "provence"}}))
	srv.FastForward(SnapshotTTL + time.Second)

	all, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRedisCache_CorruptEntrySkipped(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.StoreSnapshot(ctx, map[string]models.Record{"provence": {FarmName: "provence"}}))
	require.NoError(t, srv.Set(RecordKeyPrefix+"provence", "{not json"))

	all, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisCache(context.Background(), Options{Addr: addr, MaxRetries: 1}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewFromClient(t *testing.T) {
	srv := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}), nil)
	defer c.Close()

	assert.NoError(t, c.Ping(context.Background()))
}
