// Package engine keeps the per-user collections (watch progress, favorites and
// search history) in sync between the device cache and the authoritative remote.
//
// Reads are served from a valid cache entry when possible and refreshed in the
// background. Writes are applied optimistically to the cache and announced on the
// event bus before the remote is called; a failed remote call is followed by a
// reconciliation fetch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mmcdole/kinosync/internal/cache"
	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/events"
)

// Mode selects where collections live.
type Mode string

const (
	// ModeLocalOnly keeps each user's collections in device records, one per domain.
	ModeLocalOnly Mode = "local-only"
	// ModeRemoteBacked treats the remote as the source of truth and the device
	// store as a per-user cache.
	ModeRemoteBacked Mode = "remote-backed"
)

// DefaultSweepDelay is how long after startup expired bundles are swept.
const DefaultSweepDelay = time.Second

// localKeyPrefix prefixes the device records used in local-only mode:
// local:<user>:<domain>, or local:<domain> for anonymous sessions.
const localKeyPrefix = "local:"

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLocalOnly, ModeRemoteBacked:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Options configures an Engine.
type Options struct {
	Mode   Mode
	Device domain.DeviceStore
	// Remote is required in remote-backed mode and never used in local-only mode.
	Remote domain.Remote
	Bus    *events.Bus
	User   domain.UserSource
	Codec  *cache.Codec
	Logger *slog.Logger
}

// Engine coordinates the cache, the remote and the event bus.
type Engine struct {
	mode   Mode
	device domain.DeviceStore
	users  *cache.UserStore
	remote domain.Remote
	bus    *events.Bus
	user   domain.UserSource
	logger *slog.Logger

	tasks   *supervisor
	fetches singleflight.Group

	watchProgress *Keyed[domain.WatchProgress]
	favorites     *Keyed[domain.Favorite]
	history       *History
}

// New creates an engine. Nil Bus, Codec and Logger select defaults; a nil User
// means an anonymous session.
func New(opts Options) (*Engine, error) {
	if opts.Device == nil {
		return nil, errors.New("engine: device store is required")
	}
	switch opts.Mode {
	case ModeLocalOnly:
	case ModeRemoteBacked:
		if opts.Remote == nil {
			return nil, errors.New("engine: remote is required in remote-backed mode")
		}
	default:
		return nil, fmt.Errorf("engine: unknown mode %q", opts.Mode)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	user := opts.User
	if user == nil {
		user = domain.StaticUser("")
	}

	e := &Engine{
		mode:   opts.Mode,
		device: opts.Device,
		users:  cache.NewUserStore(opts.Device, opts.Codec, logger),
		remote: opts.Remote,
		bus:    bus,
		user:   user,
		logger: logger,
		tasks:  newSupervisor(),
	}

	e.watchProgress = newKeyed(e, domain.DomainWatchProgress, func(ctx context.Context) (map[string]domain.WatchProgress, error) {
		return e.remote.WatchProgress().FetchAll(ctx)
	}, func() domain.KeyedRemote[domain.WatchProgress] {
		return e.remote.WatchProgress()
	})
	e.favorites = newKeyed(e, domain.DomainFavorites, func(ctx context.Context) (map[string]domain.Favorite, error) {
		return e.remote.Favorites().FetchAll(ctx)
	}, func() domain.KeyedRemote[domain.Favorite] {
		return e.remote.Favorites()
	})
	e.history = newHistory(e)

	return e, nil
}

// Mode returns the mode the engine was built with.
func (e *Engine) Mode() Mode { return e.mode }

// Bus returns the event bus changes are published on.
func (e *Engine) Bus() *events.Bus { return e.bus }

// WatchProgress returns the watch-progress collection.
func (e *Engine) WatchProgress() *Keyed[domain.WatchProgress] { return e.watchProgress }

// Favorites returns the favorites collection.
func (e *Engine) Favorites() *Keyed[domain.Favorite] { return e.favorites }

// SearchHistory returns the search-history collection.
func (e *Engine) SearchHistory() *History { return e.history }

func (e *Engine) currentUser() (string, bool) {
	name, ok := e.user.CurrentUser()
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// CacheStatus reports which domains hold a valid cache entry for the current user.
type CacheStatus struct {
	Mode     Mode                   `json:"mode"`
	Username string                 `json:"username,omitempty"`
	HasUser  bool                   `json:"has_user"`
	Domains  map[domain.Domain]bool `json:"domains"`
}

// Ready reports whether every domain is cached.
func (s CacheStatus) Ready() bool {
	for _, d := range domain.AllDomains {
		if !s.Domains[d] {
			return false
		}
	}
	return true
}

// Status reports the current user's cache state.
func (e *Engine) Status() CacheStatus {
	st := CacheStatus{Mode: e.mode, Domains: make(map[domain.Domain]bool, len(domain.AllDomains))}
	for _, d := range domain.AllDomains {
		st.Domains[d] = false
	}

	user, ok := e.currentUser()
	if !ok {
		return st
	}
	st.Username, st.HasUser = user, true
	if e.mode == ModeLocalOnly {
		return st
	}
	for d, valid := range e.users.Status(user) {
		st.Domains[d] = valid
	}
	return st
}

// Preload warms the cache of every domain in the background when the current
// user lacks a valid entry for any of them. It reports whether a refresh was
// started.
func (e *Engine) Preload(ctx context.Context) bool {
	if e.mode != ModeRemoteBacked {
		return false
	}
	st := e.Status()
	if !st.HasUser {
		return false
	}
	if st.Ready() {
		e.logger.Debug("cache warm, skipping preload", "user", st.Username)
		return false
	}

	user := st.Username
	e.logger.Info("preloading user data", "user", user)
	e.tasks.spawn(user, func(scope context.Context) {
		scope, cancel := mergeCancel(scope, ctx)
		defer cancel()

		var g errgroup.Group
		g.Go(func() error { return e.watchProgress.col.preload(scope, user) })
		g.Go(func() error { return e.favorites.col.preload(scope, user) })
		g.Go(func() error { return e.history.col.preload(scope, user) })
		if err := g.Wait(); err != nil {
			e.logger.Warn("preload incomplete", "user", user, "error", err)
			return
		}
		e.logger.Debug("preload complete", "user", user)
	})
	return true
}

// ScheduleSweep removes expired user bundles once delay has passed.
// Close cancels a pending sweep.
func (e *Engine) ScheduleSweep(delay time.Duration) {
	if delay <= 0 {
		delay = DefaultSweepDelay
	}
	e.tasks.after(delay, func() {
		if n := e.users.SweepExpired(); n > 0 {
			e.logger.Info("swept expired caches", "removed", n)
		}
	})
}

// Sweep removes expired user bundles now and returns how many were removed.
func (e *Engine) Sweep() int {
	return e.users.SweepExpired()
}

// Logout stops the user's background work and deletes their cached data.
// Nothing is published.
func (e *Engine) Logout(username string) error {
	var err error
	e.tasks.cancel(username, func() {
		err = e.users.Clear(username)
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache for %s: %w", username, err)
	}
	e.logger.Info("user logged out", "user", username)
	return nil
}

// Wait blocks until in-flight background work has finished.
func (e *Engine) Wait() {
	e.tasks.wait()
}

// Close cancels all background work and waits for it to stop.
func (e *Engine) Close() {
	e.tasks.close()
}

// OnWatchProgress subscribes fn to watch-progress changes.
func (e *Engine) OnWatchProgress(fn func(map[string]domain.WatchProgress)) (unsubscribe func()) {
	return subscribe(e.bus, domain.DomainWatchProgress, fn)
}

// OnFavorites subscribes fn to favorites changes.
func (e *Engine) OnFavorites(fn func(map[string]domain.Favorite)) (unsubscribe func()) {
	return subscribe(e.bus, domain.DomainFavorites, fn)
}

// OnSearchHistory subscribes fn to search-history changes.
func (e *Engine) OnSearchHistory(fn func([]string)) (unsubscribe func()) {
	return subscribe(e.bus, domain.DomainSearchHistory, fn)
}

func subscribe[C any](bus *events.Bus, d domain.Domain, fn func(C)) func() {
	return bus.Subscribe(d.EventName(), func(payload any) {
		if v, ok := payload.(C); ok {
			fn(v)
		}
	})
}

// mergeCancel returns a context cancelled when either a or b is done.
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
