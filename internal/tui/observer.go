package tui

import (
	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/engine"
)

// ChannelObserver forwards engine change events to a channel for Bubble Tea.
type ChannelObserver struct {
	ch chan<- CollectionChangedMsg
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan<- CollectionChangedMsg) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// Watch subscribes to every collection of e until stop is called.
func (o *ChannelObserver) Watch(e *engine.Engine) (stop func()) {
	unsubs := []func(){
		e.OnWatchProgress(func(map[string]domain.WatchProgress) { o.notify(domain.DomainWatchProgress) }),
		e.OnFavorites(func(map[string]domain.Favorite) { o.notify(domain.DomainFavorites) }),
		e.OnSearchHistory(func([]string) { o.notify(domain.DomainSearchHistory) }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// notify sends to the channel (non-blocking if full).
func (o *ChannelObserver) notify(d domain.Domain) {
	select {
	case o.ch <- CollectionChangedMsg{Domain: d}:
	default: // Non-blocking if channel full
	}
}
