// Package remote provides clients for the authoritative collection store.
package remote

// REST resources of the authoritative store.
const (
	PathWatchProgress = "/api/playrecords"
	PathFavorites     = "/api/favorites"
	PathSearchHistory = "/api/searchhistory"
)

// UserHeader carries the session's username to the store.
const UserHeader = "X-Kinosync-User"

// Query parameters selecting a single record for DELETE.
const (
	ParamKey     = "key"
	ParamKeyword = "keyword"
)

// UpsertProgressRequest is the POST body of PathWatchProgress.
type UpsertProgressRequest[V any] struct {
	Key    string `json:"key"`
	Record V      `json:"record"`
}

// UpsertFavoriteRequest is the POST body of PathFavorites.
type UpsertFavoriteRequest[V any] struct {
	Key      string `json:"key"`
	Favorite V      `json:"favorite"`
}

// AddKeywordRequest is the POST body of PathSearchHistory.
type AddKeywordRequest struct {
	Keyword string `json:"keyword"`
}

// ErrorResponse is the body of non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
