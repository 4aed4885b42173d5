package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/kinosync/internal/domain"
)

func TestMemoryKeyedRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	favs := m.Favorites()

	require.NoError(t, favs.Upsert(ctx, "tt+1", domain.Favorite{Title: "Dune"}))
	require.NoError(t, favs.Upsert(ctx, "tt+2", domain.Favorite{Title: "Alien"}))
	require.NoError(t, favs.Delete(ctx, "tt+1"))

	all, err := favs.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Favorite{"tt+2": {Title: "Alien"}}, all)

	// Returned maps are copies
	all["tt+3"] = domain.Favorite{}
	again, err := favs.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 1)

	require.NoError(t, favs.Clear(ctx))
	empty, err := favs.FetchAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	assert.Equal(t, 3, m.RequestsMade(domain.DomainFavorites, domain.OpFetch))
	assert.Equal(t, 0, m.RequestsMade(domain.DomainWatchProgress, domain.OpFetch))
}

func TestMemoryHistoryFollowsListSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	h := m.SearchHistory()

	require.NoError(t, h.Add(ctx, "dune"))
	require.NoError(t, h.Add(ctx, "alien"))
	require.NoError(t, h.Add(ctx, "dune"))

	got, err := h.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dune", "alien"}, got)

	require.NoError(t, h.Remove(ctx, "dune"))
	got, err = h.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alien"}, got)

	require.NoError(t, h.Clear(ctx))
	got, err = h.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)
}

func TestMemoryFailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Fail(domain.DomainWatchProgress, domain.OpUpsert, nil)

	err := m.WatchProgress().Upsert(ctx, "tt+1", domain.WatchProgress{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.ErrorIs(t, err, ErrInjected)

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, domain.OpUpsert, remoteErr.Op)
	assert.Equal(t, domain.DomainWatchProgress, remoteErr.Domain)

	// Failed calls are still logged and leave state untouched
	assert.Equal(t, 1, m.RequestsMade(domain.DomainWatchProgress, domain.OpUpsert))
	all, err := m.WatchProgress().FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	m.Recover(domain.DomainWatchProgress, domain.OpUpsert)
	assert.NoError(t, m.WatchProgress().Upsert(ctx, "tt+1", domain.WatchProgress{}))
}

func TestMemoryBeforeCallHook(t *testing.T) {
	m := NewMemory()
	var seen []Request
	m.BeforeCall = func(r Request) { seen = append(seen, r) }

	_ = m.SearchHistory().Add(context.Background(), "dune")
	_, _ = m.Favorites().FetchAll(context.Background())

	assert.Equal(t, []Request{
		{Domain: domain.DomainSearchHistory, Op: domain.OpAdd, Arg: "dune"},
		{Domain: domain.DomainFavorites, Op: domain.OpFetch},
	}, seen)
	assert.Equal(t, seen, m.Requests())
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Favorites().FetchAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
