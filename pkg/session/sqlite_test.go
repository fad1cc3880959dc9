package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	got, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Set(ctx, "sess-1", map[string]any{
		"positions": []any{map[string]any{"ticker": "SBER", "weight": 0.4}},
	}))

	got, err = s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Contains(t, got, "positions")

	// Upsert replaces the stored parameters.
	require.NoError(t, s.Set(ctx, "sess-1", map[string]any{"k": "v2"}))
	got, err = s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got["k"])
	assert.NotContains(t, got, "positions")
}

func TestSQLiteStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	current := time.Unix(1000, 0)
	s.now = func() time.Time { return current }

	require.NoError(t, s.Set(ctx, "sess-1", map[string]any{"k": "v"}))

	current = current.Add(59 * time.Second)
	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "v", got["k"])

	current = current.Add(2 * time.Second)
	got, err = s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStoreClear(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	require.NoError(t, s.Set(ctx, "sess-1", map[string]any{"k": "v"}))
	require.NoError(t, s.Clear(ctx, "sess-1"))

	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, s.Clear(ctx, "missing"))
}
