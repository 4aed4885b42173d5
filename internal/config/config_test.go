package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/kinosync/internal/cache"
	"github.com/mmcdole/kinosync/internal/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, engine.ModeRemoteBacked, cfg.Mode())
	assert.Equal(t, BackendHTTP, cfg.Remote.Backend)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, cache.DefaultTTL, cfg.Cache.TTL)
	assert.Equal(t, cache.CurrentVersion, cfg.Cache.Version)
	assert.Equal(t, engine.DefaultSweepDelay, cfg.Cache.SweepDelay)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: localstorage
cache:
  path: ~/kinosync-cache
  ttl: 30m
session:
  username: alice
logging:
  level: debug
  max_backups: 7
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, engine.ModeLocalOnly, cfg.Mode())
	assert.Equal(t, filepath.Join(home, "kinosync-cache"), cfg.Cache.Path)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Minute, cfg.Codec().TTL)
	assert.Equal(t, "alice", cfg.Session.Username)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Logging.MaxBackups)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("KINOSYNC_REMOTE_URL", "http://sync.example:9000")
	t.Setenv("KINOSYNC_SESSION_USERNAME", "bob")
	t.Setenv("KINOSYNC_CACHE_SWEEP_DELAY", "5s")

	cfg, err := Load(writeConfig(t, "remote:\n  url: http://ignored\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://sync.example:9000", cfg.Remote.URL)
	assert.Equal(t, "bob", cfg.Session.Username)
	assert.Equal(t, 5*time.Second, cfg.Cache.SweepDelay)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "remote:\n  backend: carrier-pigeon\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "remote:\n  url: \"\"\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "storage: [unterminated\n"))
	assert.Error(t, err)
}

func TestLocalStorageSkipsRemoteValidation(t *testing.T) {
	cfg, err := Load(writeConfig(t, "storage:\n  type: LocalStorage\nremote:\n  url: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, engine.ModeLocalOnly, cfg.Mode())
}

func TestModeMapping(t *testing.T) {
	for storageType, want := range map[string]engine.Mode{
		"localstorage": engine.ModeLocalOnly,
		"remote":       engine.ModeRemoteBacked,
		"http":         engine.ModeRemoteBacked,
		"sqlite":       engine.ModeRemoteBacked,
		"":             engine.ModeRemoteBacked,
	} {
		cfg := DefaultConfig()
		cfg.Storage.Type = storageType
		assert.Equal(t, want, cfg.Mode(), storageType)
	}
}
