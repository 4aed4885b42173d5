package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketKV = []byte("kv")
)

const dbFile = "kinosync.db"

// DeviceStore implements domain.DeviceStore using BoltDB.
type DeviceStore struct {
	db     *bolt.DB
	mu     sync.RWMutex // Protects memory cache; held across bolt writes
	logger *slog.Logger

	// In-memory cache for hot-path reads (promoted on access).
	// In memory-only mode it is the store.
	cache map[string][]byte
}

// NewDeviceStore opens (or creates) the store under dir.
// An empty dir selects memory-only mode (no persistence).
func NewDeviceStore(dir string) (*DeviceStore, error) {
	if dir == "" {
		return &DeviceStore{cache: make(map[string][]byte), logger: slog.Default()}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DeviceStore{db: db, cache: make(map[string][]byte), logger: slog.Default()}, nil
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore() *DeviceStore {
	s, _ := NewDeviceStore("")
	return s
}

// SetLogger replaces the logger used to report read failures.
func (s *DeviceStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *DeviceStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns a copy of the value stored under key. A bolt read failure is
// logged and reported as a missing key.
func (s *DeviceStore) Get(key string) ([]byte, bool) {
	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return cloneBytes(data), true
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false
	}

	// Promotion holds the write lock across the bolt read so a concurrent
	// Set or Delete cannot be overwritten by a stale value.
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.cache[key]; ok {
		return cloneBytes(data), true
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = cloneBytes(v)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to read device store", "key", key, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	s.cache[key] = data
	return cloneBytes(data), true
}

// Set stores value under key.
func (s *DeviceStore) Set(key string, value []byte) error {
	data := cloneBytes(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketKV).Put([]byte(key), data)
		})
		if err != nil {
			return fmt.Errorf("failed to write %q: %w", key, err)
		}
	}

	s.cache[key] = data
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *DeviceStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketKV)
			if b == nil {
				return nil
			}
			return b.Delete([]byte(key))
		})
		if err != nil {
			return fmt.Errorf("failed to delete %q: %w", key, err)
		}
	}

	delete(s.cache, key)
	return nil
}

// Keys returns all keys beginning with prefix, sorted.
func (s *DeviceStore) Keys(prefix string) ([]string, error) {
	if s.db == nil {
		s.mu.RLock()
		keys := make([]string, 0, len(s.cache))
		for k := range s.cache {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		s.mu.RUnlock()
		sort.Strings(keys)
		return keys, nil
	}

	// BoltDB keys are already byte-sorted; prefix scan with a cursor
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
