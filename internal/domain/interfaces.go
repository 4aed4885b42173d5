package domain

import "context"

// DeviceStore is raw key/value persistence local to the running process.
// It knows nothing about users or domains.
type DeviceStore interface {
	// Get returns a copy of the stored value and whether it exists.
	Get(key string) ([]byte, bool)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key; missing keys are not an error.
	Delete(key string) error

	// Keys returns every stored key beginning with prefix.
	Keys(prefix string) ([]string, error)
}

// KeyedRemote is the authoritative store of a keyed collection
// (watch progress or favorites) for the current session's user.
type KeyedRemote[V any] interface {
	// FetchAll returns the whole collection keyed by source+id
	FetchAll(ctx context.Context) (map[string]V, error)

	// Upsert writes one record (last writer wins)
	Upsert(ctx context.Context, key string, value V) error

	// Delete removes one record
	Delete(ctx context.Context, key string) error

	// Clear removes every record
	Clear(ctx context.Context) error
}

// HistoryRemote is the authoritative store of the search history.
type HistoryRemote interface {
	// FetchAll returns keywords most-recent first
	FetchAll(ctx context.Context) ([]string, error)

	// Add records a keyword at the front
	Add(ctx context.Context, keyword string) error

	// Remove deletes one keyword
	Remove(ctx context.Context, keyword string) error

	// Clear removes every keyword
	Clear(ctx context.Context) error
}

// Remote groups the per-domain remote clients of one backend.
type Remote interface {
	WatchProgress() KeyedRemote[WatchProgress]
	Favorites() KeyedRemote[Favorite]
	SearchHistory() HistoryRemote
}

// UserSource resolves the signed-in user, if any.
type UserSource interface {
	// CurrentUser returns the username and false when nobody is signed in.
	CurrentUser() (string, bool)
}

// StaticUser is a UserSource fixed at construction. The empty string means anonymous.
type StaticUser string

// CurrentUser implements UserSource.
func (u StaticUser) CurrentUser() (string, bool) {
	return string(u), u != ""
}
