package store

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceStoreMemoryOnly(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	require.NoError(t, s.Set("usercache:alice", []byte(`{"a":1}`)))
	data, ok := s.Get("usercache:alice")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(data))

	// Returned slices are copies
	data[0] = 'X'
	again, _ := s.Get("usercache:alice")
	assert.Equal(t, `{"a":1}`, string(again))

	require.NoError(t, s.Delete("usercache:alice"))
	_, ok = s.Get("usercache:alice")
	assert.False(t, ok)
	assert.NoError(t, s.Delete("usercache:alice"))
}

func TestDeviceStoreKeysByPrefix(t *testing.T) {
	for name, open := range map[string]func(t *testing.T) *DeviceStore{
		"memory": func(t *testing.T) *DeviceStore { return NewMemoryStore() },
		"bolt": func(t *testing.T) *DeviceStore {
			s, err := NewDeviceStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	} {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			require.NoError(t, s.Set("usercache:bob", []byte("b")))
			require.NoError(t, s.Set("usercache:alice", []byte("a")))
			require.NoError(t, s.Set("local:favorites", []byte("f")))

			keys, err := s.Keys("usercache:")
			require.NoError(t, err)
			assert.Equal(t, []string{"usercache:alice", "usercache:bob"}, keys)

			all, err := s.Keys("")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestDeviceStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewDeviceStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("local:search-history", []byte(`["dune"]`)))
	require.NoError(t, s.Close())

	reopened, err := NewDeviceStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	data, ok := reopened.Get("local:search-history")
	require.True(t, ok)
	assert.Equal(t, `["dune"]`, string(data))

	require.NoError(t, reopened.Delete("local:search-history"))
	_, ok = reopened.Get("local:search-history")
	assert.False(t, ok)
}

// hammer calls Get on key in a loop until the returned stop func is called.
func hammer(s *DeviceStore, key string) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				s.Get(key)
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func TestDeviceStoreDeleteWinsOverConcurrentGet(t *testing.T) {
	s, err := NewDeviceStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	for i := range 200 {
		key := fmt.Sprintf("usercache:user%d", i)
		require.NoError(t, s.Set(key, []byte("bundle")))

		stop := hammer(s, key)
		require.NoError(t, s.Delete(key))
		_, ok := s.Get(key)
		stop()

		require.False(t, ok, "%s readable after Delete returned", key)
		_, ok = s.Get(key)
		require.False(t, ok, "%s promoted back after Delete", key)
	}
}

func TestDeviceStoreSetWinsOverConcurrentGet(t *testing.T) {
	s, err := NewDeviceStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	for i := range 200 {
		key := fmt.Sprintf("usercache:user%d", i)
		require.NoError(t, s.Set(key, []byte("old")))
		// Drop the promoted copy so the next Get goes to bolt.
		s.mu.Lock()
		delete(s.cache, key)
		s.mu.Unlock()

		stop := hammer(s, key)
		require.NoError(t, s.Set(key, []byte("new")))
		stop()

		data, ok := s.Get(key)
		require.True(t, ok)
		require.Equal(t, "new", string(data), key)
	}
}

func TestDeviceStoreLogsReadFailures(t *testing.T) {
	s, err := NewDeviceStore(t.TempDir())
	require.NoError(t, err)

	var buf bytes.Buffer
	s.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, s.Close())

	_, ok := s.Get("usercache:alice")
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "failed to read device store")
	assert.Contains(t, buf.String(), "usercache:alice")
}
