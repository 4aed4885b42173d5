package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/engine"
)

// loadCollectionCmd reads one collection, filtered by query.
func loadCollectionCmd(e *engine.Engine, d domain.Domain, query string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var rows []Row
		switch d {
		case domain.DomainWatchProgress:
			for _, item := range e.WatchProgress().Filter(ctx, query) {
				rows = append(rows, progressRow(item))
			}
		case domain.DomainFavorites:
			for _, item := range e.Favorites().Filter(ctx, query) {
				rows = append(rows, favoriteRow(item))
			}
		case domain.DomainSearchHistory:
			for _, kw := range e.SearchHistory().Suggest(ctx, query, 0) {
				rows = append(rows, Row{Key: kw, Title: kw, Progress: -1})
			}
		}
		return CollectionLoadedMsg{Domain: d, Query: query, Rows: rows}
	}
}

func progressRow(item engine.Item[domain.WatchProgress]) Row {
	wp := item.Value
	detail := wp.Year
	if wp.TotalEpisodes > 1 {
		detail = fmt.Sprintf("%s  ep %d/%d", wp.Year, wp.Index, wp.TotalEpisodes)
	}
	return Row{
		Key:      item.Key,
		Title:    wp.Title,
		Detail:   detail,
		Progress: wp.Progress(),
		Matched:  item.MatchedIndexes,
	}
}

func favoriteRow(item engine.Item[domain.Favorite]) Row {
	f := item.Value
	return Row{
		Key:      item.Key,
		Title:    f.Title,
		Detail:   f.Year + "  " + f.SourceName,
		Progress: -1,
		Matched:  item.MatchedIndexes,
	}
}

// statusCmd reads the cache state.
func statusCmd(e *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Status: e.Status()}
	}
}

// deleteRowCmd removes one entry of a collection.
func deleteRowCmd(e *engine.Engine, d domain.Domain, key string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		switch d {
		case domain.DomainWatchProgress:
			err = e.WatchProgress().Delete(ctx, key)
		case domain.DomainFavorites:
			err = e.Favorites().Delete(ctx, key)
		case domain.DomainSearchHistory:
			err = e.SearchHistory().Remove(ctx, key)
		}
		if err != nil {
			return ErrMsg{Err: err, Context: "delete " + key}
		}
		return ActionDoneMsg{Domain: d, Text: "deleted " + key}
	}
}

// clearCollectionCmd removes every entry of a collection.
func clearCollectionCmd(e *engine.Engine, d domain.Domain) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		switch d {
		case domain.DomainWatchProgress:
			err = e.WatchProgress().Clear(ctx)
		case domain.DomainFavorites:
			err = e.Favorites().Clear(ctx)
		case domain.DomainSearchHistory:
			err = e.SearchHistory().Clear(ctx)
		}
		if err != nil {
			return ErrMsg{Err: err, Context: "clear " + string(d)}
		}
		return ActionDoneMsg{Domain: d, Text: "cleared " + string(d)}
	}
}

// preloadCmd warms the cache of every collection.
func preloadCmd(e *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		if !e.Preload(context.Background()) {
			return ActionDoneMsg{Text: "cache already warm"}
		}
		e.Wait()
		return ActionDoneMsg{Text: "preloaded"}
	}
}

// logoutCmd drops the current user's cache.
func logoutCmd(e *engine.Engine, user string) tea.Cmd {
	return func() tea.Msg {
		if err := e.Logout(user); err != nil {
			return ErrMsg{Err: err, Context: "logout"}
		}
		return ActionDoneMsg{Text: "logged out " + user}
	}
}

// waitForChangeCmd reads the next change event from the observer channel.
func waitForChangeCmd(ch <-chan CollectionChangedMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
