package domain

// Domain names one of the per-user collections kept in sync.
type Domain string

const (
	DomainWatchProgress Domain = "watch-progress"
	DomainFavorites     Domain = "favorites"
	DomainSearchHistory Domain = "search-history"
)

// Event names published when a collection's view changes.
const (
	EventWatchProgressUpdated = "watch-progress-updated"
	EventFavoritesUpdated     = "favorites-updated"
	EventSearchHistoryUpdated = "search-history-updated"
)

// AllDomains lists every synchronized collection in a stable order.
var AllDomains = []Domain{DomainWatchProgress, DomainFavorites, DomainSearchHistory}

// EventName returns the change event published for the domain.
func (d Domain) EventName() string {
	switch d {
	case DomainWatchProgress:
		return EventWatchProgressUpdated
	case DomainFavorites:
		return EventFavoritesUpdated
	case DomainSearchHistory:
		return EventSearchHistoryUpdated
	default:
		return string(d) + "-updated"
	}
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	switch d {
	case DomainWatchProgress, DomainFavorites, DomainSearchHistory:
		return true
	}
	return false
}

// MaxSearchHistory caps the number of remembered search keywords.
const MaxSearchHistory = 20
