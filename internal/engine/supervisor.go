package engine

import (
	"context"
	"sync"
	"time"
)

// supervisor owns every background task the engine starts. Tasks run under a
// per-user context so that logging a user out stops their refreshes, and cache
// commits re-check that context under the same lock logout takes.
type supervisor struct {
	mu     sync.Mutex
	root   context.Context
	stop   context.CancelFunc
	scopes map[string]*userScope
	wg     sync.WaitGroup
}

type userScope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newSupervisor() *supervisor {
	root, stop := context.WithCancel(context.Background())
	return &supervisor{
		root:   root,
		stop:   stop,
		scopes: make(map[string]*userScope),
	}
}

// scope returns the live context of user, creating it on first use.
func (s *supervisor) scope(user string) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.scopes[user]; ok {
		return sc.ctx
	}
	ctx, cancel := context.WithCancel(s.root)
	s.scopes[user] = &userScope{ctx: ctx, cancel: cancel}
	return ctx
}

// background returns the context of work not tied to a user.
func (s *supervisor) background() context.Context {
	return s.root
}

// spawn runs fn in the background under user's scope.
func (s *supervisor) spawn(user string, fn func(ctx context.Context)) {
	ctx := s.scope(user)
	if ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

// after runs fn once delay has elapsed, unless the supervisor stops first.
func (s *supervisor) after(delay time.Duration, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			fn()
		case <-s.root.Done():
		}
	}()
}

// commit runs fn unless ctx was cancelled. It reports whether fn ran.
func (s *supervisor) commit(ctx context.Context, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

// cancel stops user's tasks and runs cleanup before any of them can commit again.
func (s *supervisor) cancel(user string, cleanup func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.scopes[user]; ok {
		sc.cancel()
		delete(s.scopes, user)
	}
	cleanup()
}

// wait blocks until every running task has returned.
func (s *supervisor) wait() {
	s.wg.Wait()
}

// close cancels every task and waits for them.
func (s *supervisor) close() {
	s.mu.Lock()
	s.stop()
	for user, sc := range s.scopes {
		sc.cancel()
		delete(s.scopes, user)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
