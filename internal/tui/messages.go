package tui

import (
	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/engine"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Row is one displayed entry of a collection
type Row struct {
	Key      string // composite key, or the keyword itself for search history
	Title    string
	Detail   string
	Progress float64 // watched fraction, negative when not applicable
	Matched  []int   // byte offsets of Title matched by the filter
}

// CollectionLoadedMsg carries the rows of one collection
type CollectionLoadedMsg struct {
	Domain domain.Domain
	Query  string
	Rows   []Row
}

// CollectionChangedMsg signals that the engine published a change
type CollectionChangedMsg struct {
	Domain domain.Domain
}

// StatusMsg carries the current cache state
type StatusMsg struct {
	Status engine.CacheStatus
}

// ActionDoneMsg reports a finished write
type ActionDoneMsg struct {
	Domain domain.Domain
	Text   string
}
