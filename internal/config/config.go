// Package config loads kinosync configuration from config.yaml, .env files and
// KINOSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mmcdole/kinosync/internal/cache"
	"github.com/mmcdole/kinosync/internal/engine"
)

// EnvPrefix prefixes environment overrides, e.g. KINOSYNC_REMOTE_URL.
const EnvPrefix = "KINOSYNC"

// StorageTypeLocal keeps every collection on this device only.
const StorageTypeLocal = "localstorage"

// Remote backends
const (
	BackendHTTP   = "http"
	BackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Session SessionConfig `mapstructure:"session"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StorageConfig selects where collections live
type StorageConfig struct {
	Type string `mapstructure:"type"` // "localstorage" or a remote store
}

// RemoteConfig describes the authoritative store
type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
	Backend string        `mapstructure:"backend"` // "http" or "memory"
}

// CacheConfig holds device cache configuration
type CacheConfig struct {
	Path       string        `mapstructure:"path"` // Empty keeps the cache in memory
	TTL        time.Duration `mapstructure:"ttl"`
	Version    string        `mapstructure:"version"`
	SweepDelay time.Duration `mapstructure:"sweep_delay"`
}

// SessionConfig identifies the signed-in user
type SessionConfig struct {
	Username string `mapstructure:"username"`
}

// ServerConfig holds the reference backend's configuration
type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	DBPath string `mapstructure:"db_path"`
	Token  string `mapstructure:"token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Type: "remote",
		},
		Remote: RemoteConfig{
			URL:     "http://127.0.0.1:8420",
			Timeout: 10 * time.Second,
			Backend: BackendHTTP,
		},
		Cache: CacheConfig{
			Path:       filepath.Join(dataPath(), "cache"),
			TTL:        cache.DefaultTTL,
			Version:    cache.CurrentVersion,
			SweepDelay: engine.DefaultSweepDelay,
		},
		Server: ServerConfig{
			Addr:   "127.0.0.1:8420",
			DBPath: filepath.Join(dataPath(), "server.db"),
		},
		Logging: LoggingConfig{
			File:       filepath.Join(dataPath(), "kinosync.log"),
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// dataPath returns the per-user data directory for the current OS
func dataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "kinosync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "kinosync")
	}
}

// Dir returns the default config directory for the current OS
func Dir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "kinosync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "kinosync")
	}
}

// LoadEnv loads ./.env and the config directory's .env. Variables that are
// already set are never overridden.
func LoadEnv() {
	for _, path := range []string{".env", filepath.Join(Dir(), ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

// Load reads configuration from file, .env files and environment.
// An empty path searches the config directory and the working directory.
func Load(path string) (*Config, error) {
	LoadEnv()

	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Cache.Path = ExpandPath(cfg.Cache.Path)
	cfg.Server.DBPath = ExpandPath(cfg.Server.DBPath)
	cfg.Logging.File = ExpandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.type", cfg.Storage.Type)

	v.SetDefault("remote.url", cfg.Remote.URL)
	v.SetDefault("remote.token", cfg.Remote.Token)
	v.SetDefault("remote.timeout", cfg.Remote.Timeout)
	v.SetDefault("remote.backend", cfg.Remote.Backend)

	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.version", cfg.Cache.Version)
	v.SetDefault("cache.sweep_delay", cfg.Cache.SweepDelay)

	v.SetDefault("session.username", cfg.Session.Username)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.db_path", cfg.Server.DBPath)
	v.SetDefault("server.token", cfg.Server.Token)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Mode() == engine.ModeLocalOnly {
		return nil
	}
	switch c.Remote.Backend {
	case BackendMemory:
	case BackendHTTP:
		if c.Remote.URL == "" {
			return errors.New("remote.url is required for the http backend")
		}
	default:
		return fmt.Errorf("unknown remote.backend %q", c.Remote.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

// Mode maps storage.type to the engine mode. Anything other than
// "localstorage" is backed by a remote store.
func (c *Config) Mode() engine.Mode {
	if strings.EqualFold(c.Storage.Type, StorageTypeLocal) {
		return engine.ModeLocalOnly
	}
	return engine.ModeRemoteBacked
}

// Codec returns the cache codec described by the cache section.
func (c *Config) Codec() *cache.Codec {
	codec := cache.DefaultCodec()
	if c.Cache.TTL > 0 {
		codec.TTL = c.Cache.TTL
	}
	if c.Cache.Version != "" {
		codec.Version = c.Cache.Version
	}
	return codec
}

// ExpandPath expands a leading ~ to the home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
