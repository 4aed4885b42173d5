// Package history implements the list semantics of the search history:
// most-recent first, no duplicates, capped length.
package history

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/kinosync/internal/domain"
)

// Normalize trims a keyword. Comparison is exact on the trimmed form.
func Normalize(keyword string) string {
	return strings.TrimSpace(keyword)
}

// Add returns a new history with keyword moved (or inserted) at the front,
// capped at domain.MaxSearchHistory. Empty keywords are rejected.
func Add(h []string, keyword string) ([]string, error) {
	keyword = Normalize(keyword)
	if keyword == "" {
		return nil, domain.ErrEmptyKeyword
	}

	out := make([]string, 0, min(len(h)+1, domain.MaxSearchHistory))
	out = append(out, keyword)
	for _, k := range h {
		if len(out) == domain.MaxSearchHistory {
			break
		}
		if k != keyword {
			out = append(out, k)
		}
	}
	return out, nil
}

// Remove returns a new history without keyword.
func Remove(h []string, keyword string) []string {
	keyword = Normalize(keyword)
	out := make([]string, 0, len(h))
	for _, k := range h {
		if k != keyword {
			out = append(out, k)
		}
	}
	return out
}

// Suggest returns history entries matching query, best match first.
// Ties keep history order, so recent searches win. A limit <= 0 means no limit.
func Suggest(h []string, query string, limit int) []string {
	query = Normalize(query)
	if query == "" {
		return capped(append([]string(nil), h...), limit)
	}

	ranks := fuzzy.RankFindFold(query, h)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return capped(out, limit)
}

func capped(s []string, limit int) []string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
