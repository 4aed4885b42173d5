package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/engine"
	"github.com/mmcdole/kinosync/internal/store"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Options{
		Mode:   engine.ModeLocalOnly,
		Device: store.NewMemoryStore(),
		User:   domain.StaticUser("alice"),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	ctx := context.Background()
	require.NoError(t, e.WatchProgress().Upsert(ctx, "tt+1", domain.WatchProgress{Title: "Dune", PlayTime: 30, TotalTime: 60, SaveTime: 2}))
	require.NoError(t, e.WatchProgress().Upsert(ctx, "tt+2", domain.WatchProgress{Title: "Arrival", SaveTime: 1}))
	require.NoError(t, e.Favorites().Upsert(ctx, "tt+1", domain.Favorite{Title: "Dune", SaveTime: 5}))
	require.NoError(t, e.SearchHistory().Add(ctx, "dune"))
	return e
}

// loaded returns a model with every collection loaded and a window size set.
func loaded(t *testing.T, e *engine.Engine) Model {
	t.Helper()
	m := NewModel(e, nil)
	m = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	for _, d := range domain.AllDomains {
		m = update(m, loadCollectionCmd(e, d, "")())
	}
	return m
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(m Model, keys string) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return next.(Model), cmd
}

func TestModelLoadsCollections(t *testing.T) {
	e := newTestEngine(t)
	m := loaded(t, e)

	rows := m.Rows[domain.DomainWatchProgress]
	require.Len(t, rows, 2)
	assert.Equal(t, "tt+1", rows[0].Key, "most recent first")
	assert.InDelta(t, 0.5, rows[0].Progress, 1e-9)

	require.Len(t, m.Rows[domain.DomainFavorites], 1)
	assert.Negative(t, m.Rows[domain.DomainFavorites][0].Progress)

	require.Len(t, m.Rows[domain.DomainSearchHistory], 1)
	assert.Equal(t, "dune", m.Rows[domain.DomainSearchHistory][0].Key)

	view := m.View()
	assert.Contains(t, view, "Dune")
	assert.Contains(t, view, "Arrival")
}

func TestModelNavigation(t *testing.T) {
	m := loaded(t, newTestEngine(t))

	m, _ = press(m, "j")
	m, _ = press(m, "j")
	assert.Equal(t, 1, m.Cursor[domain.DomainWatchProgress], "cursor stops at the last row")

	m, _ = press(m, "k")
	row, ok := m.SelectedRow()
	require.True(t, ok)
	assert.Equal(t, "tt+1", row.Key)

	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.DomainFavorites, m.CurrentDomain())
	m = update(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = update(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, domain.DomainSearchHistory, m.CurrentDomain())
}

func TestModelFilter(t *testing.T) {
	e := newTestEngine(t)
	m := loaded(t, e)

	m, _ = press(m, "/")
	require.Equal(t, StateFiltering, m.State)
	m, _ = press(m, "a")
	m, _ = press(m, "r")
	assert.Equal(t, "ar", m.Query[domain.DomainWatchProgress])

	// Results for an outdated query are ignored
	m = update(m, CollectionLoadedMsg{Domain: domain.DomainWatchProgress, Query: "a", Rows: nil})
	assert.Len(t, m.Rows[domain.DomainWatchProgress], 2)

	m = update(m, loadCollectionCmd(e, domain.DomainWatchProgress, "ar")())
	rows := m.Rows[domain.DomainWatchProgress]
	require.Len(t, rows, 1)
	assert.Equal(t, "Arrival", rows[0].Title)
	assert.NotEmpty(t, rows[0].Matched)

	m = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StateBrowsing, m.State)
	assert.Empty(t, m.Query[domain.DomainWatchProgress])
}

func TestModelDeleteSelected(t *testing.T) {
	e := newTestEngine(t)
	m := loaded(t, e)

	m, cmd := press(m, "x")
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, ActionDoneMsg{Domain: domain.DomainWatchProgress, Text: "deleted tt+1"}, msg)

	_, ok := e.WatchProgress().Get(context.Background(), "tt+1")
	assert.False(t, ok)

	m = update(m, msg)
	assert.Equal(t, "deleted tt+1", m.Message)
}

func TestModelClearAsksFirst(t *testing.T) {
	e := newTestEngine(t)
	m := loaded(t, e)
	m = update(m, tea.KeyMsg{Type: tea.KeyTab})

	m, _ = press(m, "X")
	require.Equal(t, StateConfirmClear, m.State)
	assert.Contains(t, m.View(), "Clear every entry of Favorites?")

	m, cmd := press(m, "n")
	assert.Equal(t, StateBrowsing, m.State)
	assert.Nil(t, cmd)

	m, _ = press(m, "X")
	m, cmd = press(m, "y")
	require.NotNil(t, cmd)
	assert.IsType(t, ActionDoneMsg{}, cmd())
	assert.Empty(t, e.Favorites().GetAll(context.Background()))
	assert.Equal(t, StateBrowsing, m.State)
}

func TestModelShowsErrors(t *testing.T) {
	m := loaded(t, newTestEngine(t))
	m = update(m, ErrMsg{Err: domain.ErrUnauthorized, Context: "delete tt+1"})
	assert.Contains(t, m.View(), "delete tt+1")

	m, _ = press(m, "?")
	assert.Equal(t, StateHelp, m.State)
	m = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StateBrowsing, m.State)
}

func TestChannelObserverForwardsChanges(t *testing.T) {
	e := newTestEngine(t)
	ch := make(chan CollectionChangedMsg, 4)
	stop := NewChannelObserver(ch).Watch(e)

	require.NoError(t, e.Favorites().Delete(context.Background(), "tt+1"))
	assert.Equal(t, CollectionChangedMsg{Domain: domain.DomainFavorites}, <-ch)

	stop()
	require.NoError(t, e.SearchHistory().Add(context.Background(), "arrival"))
	assert.Empty(t, ch)
}
