package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/kinosync/internal/domain"
)

// Keyed is a collection of records addressed by composite keys.
type Keyed[V domain.Record] struct {
	col    *collection[map[string]V]
	remote func() domain.KeyedRemote[V]
}

func newKeyed[V domain.Record](e *Engine, d domain.Domain, fetch func(context.Context) (map[string]V, error), remote func() domain.KeyedRemote[V]) *Keyed[V] {
	return &Keyed[V]{
		col: &collection[map[string]V]{
			e:      e,
			domain: d,
			empty:  func() map[string]V { return make(map[string]V) },
			fetch:  fetch,
		},
		remote: remote,
	}
}

// Domain returns the domain the collection belongs to.
func (k *Keyed[V]) Domain() domain.Domain { return k.col.domain }

// GetAll returns every record keyed by composite key.
func (k *Keyed[V]) GetAll(ctx context.Context) map[string]V {
	return k.col.getAll(ctx)
}

// Get returns the record stored under key.
func (k *Keyed[V]) Get(ctx context.Context, key string) (V, bool) {
	v, ok := k.GetAll(ctx)[key]
	return v, ok
}

// Upsert stores value under key.
func (k *Keyed[V]) Upsert(ctx context.Context, key string, value V) error {
	if err := domain.ValidateKey(key); err != nil {
		return err
	}
	err := k.col.mutate(ctx, func(m map[string]V) map[string]V {
		m[key] = value
		return m
	}, func(ctx context.Context) error {
		return k.remote().Upsert(ctx, key, value)
	}, true)
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", k.col.domain, key, err)
	}
	return nil
}

// Delete removes the record stored under key. Deleting a missing key succeeds.
func (k *Keyed[V]) Delete(ctx context.Context, key string) error {
	if err := domain.ValidateKey(key); err != nil {
		return err
	}
	err := k.col.mutate(ctx, func(m map[string]V) map[string]V {
		delete(m, key)
		return m
	}, func(ctx context.Context) error {
		return k.remote().Delete(ctx, key)
	}, true)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", k.col.domain, key, err)
	}
	return nil
}

// Clear removes every record.
func (k *Keyed[V]) Clear(ctx context.Context) error {
	err := k.col.mutate(ctx, func(map[string]V) map[string]V {
		return make(map[string]V)
	}, func(ctx context.Context) error {
		return k.remote().Clear(ctx)
	}, true)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", k.col.domain, err)
	}
	return nil
}

// Item is a record together with its key.
type Item[V domain.Record] struct {
	Key   string
	Value V
	// MatchedIndexes holds the title positions matched by a filter query.
	MatchedIndexes []int
}

// Recent returns every record, most recently saved first.
func (k *Keyed[V]) Recent(ctx context.Context) []Item[V] {
	return recent(k.GetAll(ctx))
}

func recent[V domain.Record](all map[string]V) []Item[V] {
	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := all[keys[i]].GetSaveTime(), all[keys[j]].GetSaveTime()
		if ti != tj {
			return ti > tj
		}
		return keys[i] < keys[j]
	})

	items := make([]Item[V], len(keys))
	for i, key := range keys {
		items[i] = Item[V]{Key: key, Value: all[key]}
	}
	return items
}

// titleSource adapts items for sahilm/fuzzy.
type titleSource[V domain.Record] []Item[V]

func (s titleSource[V]) String(i int) string { return strings.ToLower(s[i].Value.GetTitle()) }
func (s titleSource[V]) Len() int            { return len(s) }

// Filter returns the records whose title fuzzily matches query, best match
// first. An empty query returns every record, most recent first.
func (k *Keyed[V]) Filter(ctx context.Context, query string) []Item[V] {
	items := recent(k.GetAll(ctx))
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), titleSource[V](items))
	out := make([]Item[V], len(matches))
	for i, m := range matches {
		item := items[m.Index]
		item.MatchedIndexes = m.MatchedIndexes
		out[i] = item
	}
	return out
}
