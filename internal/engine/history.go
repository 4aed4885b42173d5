package engine

import (
	"context"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/history"
)

// History is the user's search-keyword list, most recent first.
//
// Remote failures on writes are logged and reconciled but never returned.
type History struct {
	col *collection[[]string]
}

func newHistory(e *Engine) *History {
	return &History{
		col: &collection[[]string]{
			e:      e,
			domain: domain.DomainSearchHistory,
			empty:  func() []string { return []string{} },
			fetch: func(ctx context.Context) ([]string, error) {
				return e.remote.SearchHistory().FetchAll(ctx)
			},
		},
	}
}

func (h *History) remote() domain.HistoryRemote {
	return h.col.e.remote.SearchHistory()
}

// GetAll returns the keywords, most recent first.
func (h *History) GetAll(ctx context.Context) []string {
	return h.col.getAll(ctx)
}

// Add records a keyword, moving it to the front if already present.
func (h *History) Add(ctx context.Context, keyword string) error {
	keyword = history.Normalize(keyword)
	if keyword == "" {
		return domain.ErrEmptyKeyword
	}
	return h.col.mutate(ctx, func(list []string) []string {
		next, _ := history.Add(list, keyword)
		return next
	}, func(ctx context.Context) error {
		return h.remote().Add(ctx, keyword)
	}, false)
}

// Remove deletes a keyword.
func (h *History) Remove(ctx context.Context, keyword string) error {
	keyword = history.Normalize(keyword)
	if keyword == "" {
		return domain.ErrEmptyKeyword
	}
	return h.col.mutate(ctx, func(list []string) []string {
		return history.Remove(list, keyword)
	}, func(ctx context.Context) error {
		return h.remote().Remove(ctx, keyword)
	}, false)
}

// Clear removes every keyword.
func (h *History) Clear(ctx context.Context) error {
	return h.col.mutate(ctx, func([]string) []string {
		return []string{}
	}, func(ctx context.Context) error {
		return h.remote().Clear(ctx)
	}, false)
}

// Suggest returns up to limit keywords matching prefix, best match first.
func (h *History) Suggest(ctx context.Context, prefix string, limit int) []string {
	return history.Suggest(h.GetAll(ctx), prefix, limit)
}
