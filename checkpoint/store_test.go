package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/refai06/openfl/flow"
)

func testRecord(id, runID, step string, at time.Time) *Record {
	return &Record{
		ID:    id,
		RunID: runID,
		Flow:  "mnist",
		Step:  step,
		Attributes: map[string]any{
			"round": float64(3),
			"model": []any{0.1, 0.2},
		},
		CreatedAt: at,
	}
}

// storeContract exercises the behavior every Store backend must share.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, testRecord("cp-1", "run-1", "start", base)))
	require.NoError(t, store.Save(ctx, testRecord("cp-2", "run-1", "train", base.Add(time.Second))))
	require.NoError(t, store.Save(ctx, testRecord("cp-3", "run-2", "start", base.Add(2*time.Second))))

	rec, err := store.Get(ctx, "cp-2")
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "train", rec.Step)
	assert.Equal(t, float64(3), rec.Attributes["round"])

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	recs, err := store.ListRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "cp-1", recs[0].ID)
	assert.Equal(t, "cp-2", recs[1].ID)

	recs, err = store.ListRun(ctx, "run-absent")
	require.NoError(t, err)
	assert.Empty(t, recs)

	require.NoError(t, store.Delete(ctx, "cp-1"))
	require.NoError(t, store.Delete(ctx, "cp-1"))
	_, err = store.Get(ctx, "cp-1")
	assert.ErrorIs(t, err, ErrNotFound)

	recs, err = store.ListRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "cp-2", recs[0].ID)

	assert.ErrorIs(t, store.Save(ctx, nil), ErrInvalidInput)
	assert.ErrorIs(t, store.Save(ctx, &Record{}), ErrInvalidInput)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	storeContract(t, store)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	storeContract(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore("")
	require.NoError(t, err)
	defer store.Close()
	storeContract(t, store)
}

func TestRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestNewStoreFactory(t *testing.T) {
	store, err := NewStore(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewStore(Config{Backend: "sqlite"})
	require.NoError(t, err)
	assert.IsType(t, &GormStore{}, store)
	store.Close()

	_, err = NewStore(Config{Backend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestWriterSave(t *testing.T) {
	store := NewMemoryStore()
	w := NewWriter(store, zap.NewNop())

	cp := flow.Checkpoint{
		RunID:      "run-9",
		Flow:       "mnist",
		Step:       "train",
		Attributes: map[string]any{"round": 1},
		CreatedAt:  time.Now(),
	}
	require.NoError(t, w.Save(context.Background(), cp))
	require.NoError(t, w.Save(context.Background(), cp))

	recs, err := store.ListRun(context.Background(), "run-9")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Every write mints its own record identity.
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
	assert.Equal(t, "train", recs[0].Step)
}

func TestRedisStoreRejectsUnencodableAttributes(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	rec := testRecord("cp-bad", "run-1", "train", time.Now())
	rec.Attributes["cb"] = func() {}

	err = store.Save(context.Background(), rec)
	require.Error(t, err)
	assert.True(t, flow.IsSerialization(err))
}
