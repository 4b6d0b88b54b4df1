package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), ".isoenv", FileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInsertAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		{Env: "default", StartedAt: base, Duration: 2 * time.Second, ExitCode: 0, Commands: 2},
		{Env: "docs", StartedAt: base.Add(time.Minute), Duration: 500 * time.Millisecond, ExitCode: 2, Commands: 1},
		{Env: "default", StartedAt: base.Add(2 * time.Minute), Duration: time.Second, ExitCode: 0, Commands: 2},
	}
	for _, rec := range records {
		require.NoError(t, store.Insert(ctx, rec))
		assert.NotEmpty(t, rec.ID)
	}

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first.
	assert.Equal(t, "default", got[0].Env)
	assert.True(t, got[0].StartedAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, "docs", got[1].Env)
	assert.Equal(t, 2, got[1].ExitCode)
	assert.Equal(t, 500*time.Millisecond, got[1].Duration)
	assert.Equal(t, "default", got[2].Env)
}

func TestRecentLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Insert(ctx, &Record{
			Env:       "default",
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecentEmpty(t *testing.T) {
	store := openStore(t)

	got, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertKeepsExplicitID(t *testing.T) {
	store := openStore(t)
	rec := &Record{ID: "run-1", Env: "default", StartedAt: time.Now().UTC()}
	require.NoError(t, store.Insert(context.Background(), rec))
	assert.Equal(t, "run-1", rec.ID)

	// Duplicate ids violate the primary key.
	assert.Error(t, store.Insert(context.Background(), &Record{ID: "run-1", Env: "docs", StartedAt: time.Now().UTC()}))
}
