package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrInvalidKey indicates a composite key that is not of the form source+id
	ErrInvalidKey = errors.New("invalid composite key")

	// ErrEmptyKeyword indicates a search keyword that is empty after trimming
	ErrEmptyKeyword = errors.New("empty search keyword")

	// ErrRemote matches every RemoteError via errors.Is
	ErrRemote = errors.New("remote collection request failed")

	// ErrUnauthorized indicates the remote rejected the session
	ErrUnauthorized = errors.New("remote rejected the session")
)

// RemoteError describes a failed call against the authoritative store.
type RemoteError struct {
	Op         string // fetch, upsert, delete, add, remove, clear
	Domain     Domain
	StatusCode int // HTTP status when known, 0 otherwise
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Domain, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Domain, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRemote) match any RemoteError.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// Remote operation names carried by RemoteError.Op
const (
	OpFetch  = "fetch"
	OpUpsert = "upsert"
	OpDelete = "delete"
	OpAdd    = "add"
	OpRemove = "remove"
	OpClear  = "clear"
)
