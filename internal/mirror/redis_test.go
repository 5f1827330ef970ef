// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mirror

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisMirror) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, newRedisMirror(client, "test", zerolog.Nop())
}

func TestRedisMirror_FetchMissing(t *testing.T) {
	_, m := setupMiniRedis(t)

	_, err := m.Fetch(context.Background(), "progress.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisMirror_CreateThenUpdate(t *testing.T) {
	mr, m := setupMiniRedis(t)
	ctx := context.Background()

	rev1, err := m.Put(ctx, "progress.json", []byte(`{"a":1}`), "")
	require.NoError(t, err)
	assert.Equal(t, ContentRevision([]byte(`{"a":1}`)), rev1)

	blob, err := m.Fetch(ctx, "progress.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(blob.Content))
	assert.Equal(t, rev1, blob.Revision)

	rev2, err := m.Put(ctx, "progress.json", []byte(`{"a":2}`), rev1)
	require.NoError(t, err)
	assert.NotEqual(t, rev1, rev2)

	assert.Equal(t, `{"a":2}`, mr.HGet("test:progress.json", fieldContent))
}

func TestRedisMirror_StaleRevisionConflicts(t *testing.T) {
	_, m := setupMiniRedis(t)
	ctx := context.Background()

	base, err := m.Put(ctx, "k", []byte("v1"), "")
	require.NoError(t, err)

	// Writer A wins with the shared base revision.
	_, err = m.Put(ctx, "k", []byte("from-a"), base)
	require.NoError(t, err)

	// Writer B still carries the base revision.
	_, err = m.Put(ctx, "k", []byte("from-b"), base)
	assert.ErrorIs(t, err, ErrConflict)

	blob, err := m.Fetch(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from-a", string(blob.Content))
}

func TestRedisMirror_CreateOverExistingConflicts(t *testing.T) {
	_, m := setupMiniRedis(t)
	ctx := context.Background()

	_, err := m.Put(ctx, "k", []byte("v1"), "")
	require.NoError(t, err)

	_, err = m.Put(ctx, "k", []byte("v2"), "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRedisMirror_ServerDown(t *testing.T) {
	mr, m := setupMiniRedis(t)
	mr.Close()

	_, err := m.Fetch(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewRedisMirror_UnreachableIsNotFatal(t *testing.T) {
	ctx := context.Background()
	m, err := NewRedisMirror(ctx, RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	assert.Error(t, m.HealthCheck(ctx))
	_, err = m.Fetch(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewRedisMirror_RequiresAddr(t *testing.T) {
	_, err := NewRedisMirror(context.Background(), RedisConfig{}, zerolog.Nop())
	assert.ErrorContains(t, err, "requires an address")
}
