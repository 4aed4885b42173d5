package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mmcdole/kinosync/internal/cache"
	"github.com/mmcdole/kinosync/internal/domain"
)

// collection implements the read and write protocol shared by every domain.
// C is the decoded collection type: a map of records or a keyword list.
type collection[C any] struct {
	e      *Engine
	domain domain.Domain

	// empty returns a new empty collection; it also replaces nil values so that
	// nil and empty compare equal.
	empty func() C
	fetch func(ctx context.Context) (C, error)
}

func (c *collection[C]) normalize(v C) C {
	if reflect.ValueOf(&v).Elem().IsNil() {
		return c.empty()
	}
	return v
}

func (c *collection[C]) equal(a, b C) bool {
	return reflect.DeepEqual(c.normalize(a), c.normalize(b))
}

// localKey names the device record of the current user's collection in
// local-only mode. Anonymous sessions share the bare per-domain key.
func (c *collection[C]) localKey() string {
	if user, ok := c.e.currentUser(); ok {
		return localKeyPrefix + user + ":" + string(c.domain)
	}
	return localKeyPrefix + string(c.domain)
}

// getAll returns the collection. It never fails: fetch errors and corrupt
// records yield an empty collection.
func (c *collection[C]) getAll(ctx context.Context) C {
	if c.e.mode == ModeLocalOnly {
		return c.readLocal()
	}
	return c.readThrough(ctx)
}

func (c *collection[C]) readLocal() C {
	data, ok := c.e.device.Get(c.localKey())
	if !ok {
		return c.empty()
	}
	var v C
	if err := json.Unmarshal(data, &v); err != nil {
		c.e.logger.Debug("corrupt local record", "domain", c.domain, "error", err)
		return c.empty()
	}
	return c.normalize(v)
}

func (c *collection[C]) writeLocal(v C) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.domain, err)
	}
	if err := c.e.device.Set(c.localKey(), data); err != nil {
		return fmt.Errorf("failed to save %s: %w", c.domain, err)
	}
	return nil
}

func (c *collection[C]) readThrough(ctx context.Context) C {
	user, hasUser := c.e.currentUser()
	if hasUser {
		entry, ok := cache.Read[C](c.e.users, user, c.domain)
		if ok && entry.Valid(c.e.users.Codec()) {
			c.e.logger.Debug("cache hit", "user", user, "domain", c.domain)
			served := c.normalize(entry.Data)
			c.e.tasks.spawn(user, func(scope context.Context) {
				c.refresh(scope, user, served)
			})
			// The caller gets its own decode so the refresh can compare
			// against an untouched copy.
			return c.copyOf(served)
		}
	}

	v, err := c.fetchBlocking(ctx, user, hasUser)
	if err != nil {
		c.e.logger.Warn("fetch failed", "user", user, "domain", c.domain, "error", err)
		return c.empty()
	}
	return v
}

// fetchBlocking fetches the collection, coalescing concurrent misses for the
// same user and domain, and caches the result. The shared fetch runs under the
// user's scope rather than any one caller's ctx; ctx only bounds the wait.
func (c *collection[C]) fetchBlocking(ctx context.Context, user string, hasUser bool) (C, error) {
	var zero C
	scope := c.e.tasks.background()
	if hasUser {
		scope = c.e.tasks.scope(user)
	}

	key := user + "\x00" + string(c.domain)
	ch := c.e.fetches.DoChan(key, func() (any, error) {
		fresh, err := c.fetch(scope)
		if err != nil {
			return nil, err
		}
		fresh = c.normalize(fresh)
		if hasUser {
			c.commit(scope, user, fresh)
		}
		return fresh, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			return c.copyOf(res.Val.(C)), nil
		}
		return res.Val.(C), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// refresh replaces the cached collection with the remote snapshot when they
// differ and announces the change.
func (c *collection[C]) refresh(ctx context.Context, user string, served C) {
	fresh, err := c.fetch(ctx)
	if err != nil {
		c.e.logger.Warn("background refresh failed", "user", user, "domain", c.domain, "error", err)
		return
	}
	fresh = c.normalize(fresh)
	if c.equal(fresh, served) {
		return
	}
	if !c.commit(ctx, user, fresh) {
		return
	}
	c.e.logger.Debug("background refresh changed data", "user", user, "domain", c.domain)
	c.publish(fresh)
}

// preload fetches and caches the collection, announcing it when it differs from
// what was cached before.
func (c *collection[C]) preload(ctx context.Context, user string) error {
	previous := c.empty()
	if entry, ok := cache.Read[C](c.e.users, user, c.domain); ok {
		previous = c.normalize(entry.Data)
	}
	fresh, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	fresh = c.normalize(fresh)
	if !c.commit(ctx, user, fresh) {
		return ctx.Err()
	}
	if !c.equal(fresh, previous) {
		c.publish(fresh)
	}
	return nil
}

// mutate applies a write. apply receives a collection owned by the caller and
// returns the new state; call performs the matching remote mutation.
//
// In remote-backed mode the new state is cached and published before call runs.
// When call fails the collection is reconciled with the remote and, if surface
// is set, the error is returned.
func (c *collection[C]) mutate(ctx context.Context, apply func(C) C, call func(ctx context.Context) error, surface bool) error {
	if c.e.mode == ModeLocalOnly {
		next := c.normalize(apply(c.readLocal()))
		if err := c.writeLocal(next); err != nil {
			return err
		}
		c.publish(next)
		return nil
	}

	user, hasUser := c.e.currentUser()
	var scope context.Context
	base := c.empty()
	if hasUser {
		scope = c.e.tasks.scope(user)
		if entry, ok := cache.Read[C](c.e.users, user, c.domain); ok {
			base = c.normalize(entry.Data)
		}
	}

	next := c.normalize(apply(base))
	if hasUser {
		c.commit(scope, user, next)
	}
	c.publish(next)

	err := call(ctx)
	if err == nil {
		return nil
	}

	c.e.logger.Warn("remote write failed, reconciling", "user", user, "domain", c.domain, "error", err)
	c.reconcile(ctx, scope, user, hasUser)
	if surface {
		return err
	}
	return nil
}

// reconcile overwrites the cache with the remote snapshot and publishes it.
// A failed fetch is abandoned.
func (c *collection[C]) reconcile(ctx, scope context.Context, user string, hasUser bool) {
	fresh, err := c.fetch(ctx)
	if err != nil {
		c.e.logger.Debug("reconciliation fetch failed", "user", user, "domain", c.domain, "error", err)
		return
	}
	fresh = c.normalize(fresh)
	if hasUser && !c.commit(scope, user, fresh) {
		return
	}
	c.publish(fresh)
}

// commit stores v as the user's entry unless ctx was cancelled by a logout.
func (c *collection[C]) commit(ctx context.Context, user string, v C) bool {
	entry := cache.Wrap(c.e.users.Codec(), v)
	return c.e.tasks.commit(ctx, func() {
		if err := cache.Write(c.e.users, user, c.domain, entry); err != nil {
			c.e.logger.Warn("failed to write cache", "user", user, "domain", c.domain, "error", err)
		}
	})
}

func (c *collection[C]) publish(v C) {
	c.e.bus.Publish(c.domain.EventName(), v)
}

// copyOf returns a deep copy of v through its JSON form, which is also how it
// is stored.
func (c *collection[C]) copyOf(v C) C {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	out := c.empty()
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return c.normalize(out)
}
