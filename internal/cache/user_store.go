package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mmcdole/kinosync/internal/domain"
)

// KeyPrefix prefixes the device record holding one user's bundle.
const KeyPrefix = "usercache:"

// rawEntry is an Entry whose payload has not been decoded yet.
type rawEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Version   string          `json:"version"`
}

// Bundle holds one user's entries, at most one per domain.
type Bundle map[domain.Domain]rawEntry

// UserStore maps usernames to bundles persisted in a device store.
type UserStore struct {
	device domain.DeviceStore
	codec  *Codec
	logger *slog.Logger

	// Serializes bundle read-modify-write. Callers still must not assume
	// atomicity across domains.
	mu sync.Mutex
}

// NewUserStore creates a user cache on top of device.
func NewUserStore(device domain.DeviceStore, codec *Codec, logger *slog.Logger) *UserStore {
	if codec == nil {
		codec = DefaultCodec()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{device: device, codec: codec, logger: logger}
}

// Codec returns the codec entries are stamped and validated with.
func (s *UserStore) Codec() *Codec {
	return s.codec
}

func recordKey(username string) string {
	return KeyPrefix + username
}

// loadBundle decodes a user's bundle. Missing or corrupt records yield false.
func (s *UserStore) loadBundle(username string) (Bundle, bool) {
	data, ok := s.device.Get(recordKey(username))
	if !ok {
		return nil, false
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		s.logger.Debug("corrupt user cache record", "user", username, "error", err)
		return nil, false
	}
	if b == nil {
		b = make(Bundle)
	}
	return b, true
}

// Read returns the user's entry for d regardless of validity.
// Missing, corrupt or undecodable data reads as absent.
func Read[T any](s *UserStore, username string, d domain.Domain) (Entry[T], bool) {
	if username == "" {
		return Entry[T]{}, false
	}
	b, ok := s.loadBundle(username)
	if !ok {
		return Entry[T]{}, false
	}
	raw, ok := b[d]
	if !ok {
		return Entry[T]{}, false
	}
	var data T
	if err := json.Unmarshal(raw.Data, &data); err != nil {
		s.logger.Debug("undecodable cache entry", "user", username, "domain", d, "error", err)
		return Entry[T]{}, false
	}
	return Entry[T]{Data: data, Timestamp: raw.Timestamp, Version: raw.Version}, true
}

// Write replaces the user's entry for d, keeping the bundle's other entries.
// An empty username is a no-op.
func Write[T any](s *UserStore, username string, d domain.Domain, e Entry[T]) error {
	if username == "" {
		return nil
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to encode %s cache: %w", d, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.loadBundle(username)
	if !ok {
		b = make(Bundle)
	}
	b[d] = rawEntry{Data: data, Timestamp: e.Timestamp, Version: e.Version}
	return s.saveBundle(username, b)
}

func (s *UserStore) saveBundle(username string, b Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode cache bundle: %w", err)
	}
	return s.device.Set(recordKey(username), data)
}

// Clear removes the user's whole bundle.
func (s *UserStore) Clear(username string) error {
	if username == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device.Delete(recordKey(username))
}

// Status reports, per domain, whether the user has a valid entry.
func (s *UserStore) Status(username string) map[domain.Domain]bool {
	status := make(map[domain.Domain]bool, len(domain.AllDomains))
	for _, d := range domain.AllDomains {
		status[d] = false
	}
	if username == "" {
		return status
	}
	b, ok := s.loadBundle(username)
	if !ok {
		return status
	}
	for d, raw := range b {
		if _, known := status[d]; known {
			status[d] = s.codec.IsValid(raw.Timestamp, raw.Version)
		}
	}
	return status
}

// Users lists every user with a bundle on the device.
func (s *UserStore) Users() []string {
	keys, err := s.device.Keys(KeyPrefix)
	if err != nil {
		s.logger.Warn("failed to list user caches", "error", err)
		return nil
	}
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		users = append(users, strings.TrimPrefix(k, KeyPrefix))
	}
	return users
}

// SweepExpired removes every bundle holding no valid entry and returns how many
// were removed. Corrupt records count as holding nothing valid.
func (s *UserStore) SweepExpired() int {
	removed := 0
	for _, username := range s.Users() {
		s.mu.Lock()
		if !s.hasValidEntry(username) {
			if err := s.device.Delete(recordKey(username)); err != nil {
				s.logger.Warn("failed to remove expired user cache", "user", username, "error", err)
			} else {
				removed++
			}
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		s.logger.Info("swept expired user caches", "removed", removed)
	}
	return removed
}

func (s *UserStore) hasValidEntry(username string) bool {
	b, ok := s.loadBundle(username)
	if !ok {
		return false
	}
	for _, raw := range b {
		if s.codec.IsValid(raw.Timestamp, raw.Version) {
			return true
		}
	}
	return false
}
