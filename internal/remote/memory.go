package remote

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/history"
)

// ErrInjected is returned by Memory calls configured to fail.
var ErrInjected = errors.New("injected remote failure")

// Request records one call made against a Memory store.
type Request struct {
	Domain domain.Domain
	Op     string
	Arg    string // key or keyword, empty for fetch/clear
}

// Memory is an in-process authoritative store for a single session.
// It records every request and can be told to fail specific operations,
// which makes it the fake of choice for exercising the engine.
type Memory struct {
	mu        sync.Mutex
	progress  map[string]domain.WatchProgress
	favorites map[string]domain.Favorite
	history   []string

	failures map[failKey]error
	requests []Request

	// BeforeCall, when set, runs before each request is served, outside the lock.
	BeforeCall func(r Request)
}

type failKey struct {
	domain domain.Domain
	op     string
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		progress:  make(map[string]domain.WatchProgress),
		favorites: make(map[string]domain.Favorite),
		failures:  make(map[failKey]error),
	}
}

// SeedWatchProgress replaces the stored watch progress.
func (m *Memory) SeedWatchProgress(records map[string]domain.WatchProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = maps.Clone(records)
	if m.progress == nil {
		m.progress = make(map[string]domain.WatchProgress)
	}
}

// SeedFavorites replaces the stored favorites.
func (m *Memory) SeedFavorites(records map[string]domain.Favorite) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites = maps.Clone(records)
	if m.favorites == nil {
		m.favorites = make(map[string]domain.Favorite)
	}
}

// SeedHistory replaces the stored search history.
func (m *Memory) SeedHistory(keywords []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = slices.Clone(keywords)
}

// Fail makes every future op on d return err (ErrInjected when nil).
func (m *Memory) Fail(d domain.Domain, op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[failKey{d, op}] = err
}

// Recover undoes Fail for op on d.
func (m *Memory) Recover(d domain.Domain, op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, failKey{d, op})
}

// Requests returns a copy of every request served so far.
func (m *Memory) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// RequestsMade returns the number of requests for op on d.
func (m *Memory) RequestsMade(d domain.Domain, op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Domain == d && r.Op == op {
			n++
		}
	}
	return n
}

// TotalRequests returns the number of requests of any kind.
func (m *Memory) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// begin logs r, runs the hook and reports any injected failure.
// On success it returns with m.mu held.
func (m *Memory) begin(ctx context.Context, r Request) error {
	if hook := m.BeforeCall; hook != nil {
		hook(r)
	}
	if err := ctx.Err(); err != nil {
		return &domain.RemoteError{Op: r.Op, Domain: r.Domain, Err: err}
	}

	m.mu.Lock()
	m.requests = append(m.requests, r)
	if err, ok := m.failures[failKey{r.Domain, r.Op}]; ok {
		m.mu.Unlock()
		return &domain.RemoteError{Op: r.Op, Domain: r.Domain, Err: err}
	}
	return nil
}

// WatchProgress implements domain.Remote.
func (m *Memory) WatchProgress() domain.KeyedRemote[domain.WatchProgress] {
	return &memoryKeyed[domain.WatchProgress]{m: m, domain: domain.DomainWatchProgress, records: &m.progress}
}

// Favorites implements domain.Remote.
func (m *Memory) Favorites() domain.KeyedRemote[domain.Favorite] {
	return &memoryKeyed[domain.Favorite]{m: m, domain: domain.DomainFavorites, records: &m.favorites}
}

// SearchHistory implements domain.Remote.
func (m *Memory) SearchHistory() domain.HistoryRemote {
	return &memoryHistory{m: m}
}

type memoryKeyed[V any] struct {
	m       *Memory
	domain  domain.Domain
	records *map[string]V // guarded by m.mu
}

func (k *memoryKeyed[V]) FetchAll(ctx context.Context) (map[string]V, error) {
	if err := k.m.begin(ctx, Request{Domain: k.domain, Op: domain.OpFetch}); err != nil {
		return nil, err
	}
	defer k.m.mu.Unlock()
	return maps.Clone(*k.records), nil
}

func (k *memoryKeyed[V]) Upsert(ctx context.Context, key string, value V) error {
	if err := k.m.begin(ctx, Request{Domain: k.domain, Op: domain.OpUpsert, Arg: key}); err != nil {
		return err
	}
	defer k.m.mu.Unlock()
	(*k.records)[key] = value
	return nil
}

func (k *memoryKeyed[V]) Delete(ctx context.Context, key string) error {
	if err := k.m.begin(ctx, Request{Domain: k.domain, Op: domain.OpDelete, Arg: key}); err != nil {
		return err
	}
	defer k.m.mu.Unlock()
	delete(*k.records, key)
	return nil
}

func (k *memoryKeyed[V]) Clear(ctx context.Context) error {
	if err := k.m.begin(ctx, Request{Domain: k.domain, Op: domain.OpClear}); err != nil {
		return err
	}
	defer k.m.mu.Unlock()
	*k.records = make(map[string]V)
	return nil
}

type memoryHistory struct {
	m *Memory
}

func (h *memoryHistory) FetchAll(ctx context.Context) ([]string, error) {
	if err := h.m.begin(ctx, Request{Domain: domain.DomainSearchHistory, Op: domain.OpFetch}); err != nil {
		return nil, err
	}
	defer h.m.mu.Unlock()
	out := slices.Clone(h.m.history)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (h *memoryHistory) Add(ctx context.Context, keyword string) error {
	if err := h.m.begin(ctx, Request{Domain: domain.DomainSearchHistory, Op: domain.OpAdd, Arg: keyword}); err != nil {
		return err
	}
	defer h.m.mu.Unlock()
	next, err := history.Add(h.m.history, keyword)
	if err != nil {
		return &domain.RemoteError{Op: domain.OpAdd, Domain: domain.DomainSearchHistory, StatusCode: 400, Err: err}
	}
	h.m.history = next
	return nil
}

func (h *memoryHistory) Remove(ctx context.Context, keyword string) error {
	if err := h.m.begin(ctx, Request{Domain: domain.DomainSearchHistory, Op: domain.OpRemove, Arg: keyword}); err != nil {
		return err
	}
	defer h.m.mu.Unlock()
	h.m.history = history.Remove(h.m.history, keyword)
	return nil
}

func (h *memoryHistory) Clear(ctx context.Context) error {
	if err := h.m.begin(ctx, Request{Domain: domain.DomainSearchHistory, Op: domain.OpClear}); err != nil {
		return err
	}
	defer h.m.mu.Unlock()
	h.m.history = nil
	return nil
}
