package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// setupRedisStore creates a test Redis store with miniredis
func setupRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, opts...)
	return store, mr
}

func TestRedisStore_LoadNotFound(t *testing.T) {
	store, _ := setupRedisStore(t)

	_, err := store.Load(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_InvalidInput(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, store.Save(ctx, nil), ErrInvalidSnapshot)
	assert.ErrorIs(t, store.Save(ctx, &workflow.Snapshot{}), ErrInvalidID)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrInvalidID)
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSnapshot("run-1", "checkout", baseTime)))
	assert.True(t, mr.Exists("stepflow:run:run-1"))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "checkout", loaded.Workflow)
	assert.Equal(t, []string{"account", "shipping"}, loaded.StepOrder)
	assert.Equal(t, workflow.StatusCurrent, loaded.Statuses["shipping"])
	assert.Equal(t, workflow.KindAdvance, loaded.History[0].Kind)
	assert.True(t, loaded.UpdatedAt.Equal(baseTime))
	assert.Equal(t, "acme", loaded.Metadata["tenant"])
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupRedisStore(t, WithTTL(time.Hour), WithPrefix("test"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSnapshot("run-1", "checkout", baseTime)))
	assert.Equal(t, time.Hour, mr.TTL("test:run:run-1"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_NoTTL(t *testing.T) {
	store, mr := setupRedisStore(t, WithTTL(0))

	require.NoError(t, store.Save(context.Background(), testSnapshot("run-1", "checkout", baseTime)))
	assert.Zero(t, mr.TTL("stepflow:run:run-1"))
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSnapshot("run-1", "checkout", baseTime)))

	require.NoError(t, store.Delete(ctx, "run-1"))
	_, err := store.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "run-1"), ErrNotFound)

	ids, err := store.List(ctx, ListOptions{Workflow: "checkout"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_List(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSnapshot("run-a", "checkout", baseTime)))
	require.NoError(t, store.Save(ctx, testSnapshot("run-b", "checkout", baseTime.Add(time.Minute))))
	require.NoError(t, store.Save(ctx, testSnapshot("run-c", "onboarding", baseTime.Add(2*time.Minute))))

	ids, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-c", "run-b", "run-a"}, ids)

	ids, err = store.List(ctx, ListOptions{Workflow: "checkout", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-b"}, ids)

	// Re-saving moves a run to the front.
	require.NoError(t, store.Save(ctx, testSnapshot("run-a", "checkout", baseTime.Add(time.Hour))))
	ids, err = store.List(ctx, ListOptions{Workflow: "checkout"})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, ids)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	store, mr := setupRedisStore(t)
	mr.Close()

	err := store.Save(context.Background(), testSnapshot("run-1", "checkout", baseTime))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidID)
}
