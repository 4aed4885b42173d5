package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/store"
)

func newTestUserStore(now *time.Time) (*UserStore, *store.DeviceStore) {
	device := store.NewMemoryStore()
	return NewUserStore(device, fixedClock(now), nil), device
}

func TestUserStoreReadWrite(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	s, _ := newTestUserStore(&now)

	_, ok := Read[map[string]domain.Favorite](s, "alice", domain.DomainFavorites)
	assert.False(t, ok)

	favs := map[string]domain.Favorite{"tt+1": {Title: "Dune", Year: "2021"}}
	require.NoError(t, Write(s, "alice", domain.DomainFavorites, Wrap(s.Codec(), favs)))

	got, ok := Read[map[string]domain.Favorite](s, "alice", domain.DomainFavorites)
	require.True(t, ok)
	assert.Equal(t, favs, got.Data)
	assert.True(t, got.Valid(s.Codec()))
}

func TestUserStoreKeepsSiblingDomains(t *testing.T) {
	now := time.Now()
	s, _ := newTestUserStore(&now)

	require.NoError(t, Write(s, "alice", domain.DomainSearchHistory, Wrap(s.Codec(), []string{"dune"})))
	require.NoError(t, Write(s, "alice", domain.DomainFavorites, Wrap(s.Codec(), map[string]domain.Favorite{})))

	history, ok := Read[[]string](s, "alice", domain.DomainSearchHistory)
	require.True(t, ok)
	assert.Equal(t, []string{"dune"}, history.Data)

	status := s.Status("alice")
	assert.True(t, status[domain.DomainSearchHistory])
	assert.True(t, status[domain.DomainFavorites])
	assert.False(t, status[domain.DomainWatchProgress])
}

func TestUserStoreIsolatesUsers(t *testing.T) {
	now := time.Now()
	s, _ := newTestUserStore(&now)

	require.NoError(t, Write(s, "alice", domain.DomainSearchHistory, Wrap(s.Codec(), []string{"alice-only"})))

	_, ok := Read[[]string](s, "bob", domain.DomainSearchHistory)
	assert.False(t, ok)

	require.NoError(t, s.Clear("bob"))
	_, ok = Read[[]string](s, "alice", domain.DomainSearchHistory)
	assert.True(t, ok, "clearing one user leaves others intact")

	require.NoError(t, s.Clear("alice"))
	_, ok = Read[[]string](s, "alice", domain.DomainSearchHistory)
	assert.False(t, ok)
}

func TestUserStoreAnonymousIsNoOp(t *testing.T) {
	now := time.Now()
	s, device := newTestUserStore(&now)

	require.NoError(t, Write(s, "", domain.DomainSearchHistory, Wrap(s.Codec(), []string{"x"})))
	keys, err := device.Keys("")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ok := Read[[]string](s, "", domain.DomainSearchHistory)
	assert.False(t, ok)
	assert.NoError(t, s.Clear(""))
}

func TestUserStoreFailsOpenOnCorruptData(t *testing.T) {
	now := time.Now()
	s, device := newTestUserStore(&now)

	require.NoError(t, device.Set(KeyPrefix+"alice", []byte("{not json")))
	_, ok := Read[[]string](s, "alice", domain.DomainSearchHistory)
	assert.False(t, ok)

	// A write over a corrupt record starts a fresh bundle
	require.NoError(t, Write(s, "alice", domain.DomainSearchHistory, Wrap(s.Codec(), []string{"dune"})))
	got, ok := Read[[]string](s, "alice", domain.DomainSearchHistory)
	require.True(t, ok)
	assert.Equal(t, []string{"dune"}, got.Data)

	// Payload of the wrong shape for the requested type reads as absent
	_, ok = Read[map[string]domain.Favorite](s, "alice", domain.DomainSearchHistory)
	assert.False(t, ok)
}

func TestUserStoreSweepExpired(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	s, device := newTestUserStore(&now)

	// stale: only entry is two hours old
	require.NoError(t, Write(s, "stale", domain.DomainFavorites, Wrap(s.Codec(), map[string]domain.Favorite{})))
	// mixed: one stale entry, one fresh sibling
	require.NoError(t, Write(s, "mixed", domain.DomainFavorites, Wrap(s.Codec(), map[string]domain.Favorite{})))

	now = now.Add(2 * time.Hour)
	require.NoError(t, Write(s, "mixed", domain.DomainSearchHistory, Wrap(s.Codec(), []string{"x"})))
	require.NoError(t, Write(s, "fresh", domain.DomainSearchHistory, Wrap(s.Codec(), []string{"y"})))
	require.NoError(t, device.Set(KeyPrefix+"corrupt", []byte("garbage")))

	removed := s.SweepExpired()
	assert.Equal(t, 2, removed)
	assert.ElementsMatch(t, []string{"fresh", "mixed"}, s.Users())

	// The stale sibling inside a surviving bundle stays until replaced
	stale, ok := Read[map[string]domain.Favorite](s, "mixed", domain.DomainFavorites)
	require.True(t, ok)
	assert.False(t, stale.Valid(s.Codec()))
}
