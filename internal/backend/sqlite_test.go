package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/kinosync/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "kinosync.db"))
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreInitRequiresPath(t *testing.T) {
	assert.Error(t, NewSQLiteStore("").Init())
}

func TestRecordTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	favs := s.Favorites()

	require.NoError(t, favs.Put(ctx, "alice", "tt+1", json.RawMessage(`{"title":"Dune"}`)))
	require.NoError(t, favs.Put(ctx, "alice", "tt+1", json.RawMessage(`{"title":"Dune: Part One"}`)))
	require.NoError(t, favs.Put(ctx, "alice", "tt+2", json.RawMessage(`{"title":"Arrival"}`)))
	require.NoError(t, favs.Put(ctx, "bob", "tt+3", json.RawMessage(`{"title":"Heat"}`)))
	assert.ErrorIs(t, favs.Put(ctx, "alice", "bad", json.RawMessage(`{}`)), domain.ErrInvalidKey)

	all, err := favs.All(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.JSONEq(t, `{"title":"Dune: Part One"}`, string(all["tt+1"]))

	// Tables are independent
	progress, err := s.PlayRecords().All(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, progress)

	require.NoError(t, favs.Delete(ctx, "alice", "tt+1"))
	require.NoError(t, favs.Delete(ctx, "alice", "tt+404"))
	all, err = favs.All(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, favs.Clear(ctx, "alice"))
	all, err = favs.All(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, all)

	bob, err := favs.All(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob, 1)
}

func TestSearchHistoryOrderingAndCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.History(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{}, empty)

	for i := range 25 {
		require.NoError(t, s.AddKeyword(ctx, "alice", fmt.Sprintf("kw%02d", i)))
	}
	got, err := s.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, domain.MaxSearchHistory)
	assert.Equal(t, "kw24", got[0])
	assert.Equal(t, "kw05", got[19])

	// Re-adding moves to the front without growing
	require.NoError(t, s.AddKeyword(ctx, "alice", "kw10"))
	got, err = s.History(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got, domain.MaxSearchHistory)
	assert.Equal(t, "kw10", got[0])
	assert.Equal(t, "kw24", got[1])

	require.NoError(t, s.RemoveKeyword(ctx, "alice", "kw10"))
	got, err = s.History(ctx, "alice")
	require.NoError(t, err)
	assert.NotContains(t, got, "kw10")

	assert.ErrorIs(t, s.AddKeyword(ctx, "alice", ""), domain.ErrEmptyKeyword)

	require.NoError(t, s.ClearHistory(ctx, "alice"))
	got, err = s.History(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}
