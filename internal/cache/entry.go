// Package cache keeps per-user snapshots of the synchronized collections on the device.
//
// # Entries
//
// Every snapshot is wrapped in an Entry carrying the time it was taken and the
// schema version that produced it:
//
//	{"data": ..., "timestamp": 1718000000000, "version": "1.0.0"}
//
// An entry is valid iff its version equals the codec's version and it is younger
// than the codec's TTL. Invalid entries read as misses but stay on disk until the
// startup sweep removes bundles with nothing valid left in them.
//
// # Bundles
//
// All entries of one user live in a single device record (usercache:<username>),
// one optional entry per domain. Writes are read-modify-write of the whole bundle.
package cache

import "time"

const (
	// CurrentVersion is the schema version stamped on new entries.
	CurrentVersion = "1.0.0"

	// DefaultTTL bounds how long an entry is served without a blocking refetch.
	DefaultTTL = time.Hour
)

// Entry is a versioned, timestamped snapshot of a collection.
// Entries are replaced wholesale, never mutated in place.
type Entry[T any] struct {
	Data      T      `json:"data"`
	Timestamp int64  `json:"timestamp"` // Unix ms
	Version   string `json:"version"`
}

// Codec stamps and validates entries.
type Codec struct {
	Version string
	TTL     time.Duration
	Now     func() time.Time
}

// DefaultCodec returns a codec using CurrentVersion, DefaultTTL and the wall clock.
func DefaultCodec() *Codec {
	return &Codec{
		Version: CurrentVersion,
		TTL:     DefaultTTL,
		Now:     time.Now,
	}
}

func (c *Codec) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// IsValid reports whether an entry stamped with timestamp and version may be served.
func (c *Codec) IsValid(timestamp int64, version string) bool {
	if version != c.Version {
		return false
	}
	return c.now().UnixMilli()-timestamp < c.TTL.Milliseconds()
}

// Wrap stamps data with the current time and schema version.
func Wrap[T any](c *Codec, data T) Entry[T] {
	return Entry[T]{
		Data:      data,
		Timestamp: c.now().UnixMilli(),
		Version:   c.Version,
	}
}

// Valid reports whether the entry may be served under c.
func (e Entry[T]) Valid(c *Codec) bool {
	return c.IsValid(e.Timestamp, e.Version)
}

// Age returns how old the entry is under c's clock.
func (e Entry[T]) Age(c *Codec) time.Duration {
	return time.Duration(c.now().UnixMilli()-e.Timestamp) * time.Millisecond
}
