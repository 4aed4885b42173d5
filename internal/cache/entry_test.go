package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fixedClock returns a codec whose clock reads *now.
func fixedClock(now *time.Time) *Codec {
	c := DefaultCodec()
	c.Now = func() time.Time { return *now }
	return c
}

func TestWrapStampsTimeAndVersion(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	c := fixedClock(&now)

	e := Wrap(c, []string{"dune"})

	assert.Equal(t, []string{"dune"}, e.Data)
	assert.Equal(t, now.UnixMilli(), e.Timestamp)
	assert.Equal(t, CurrentVersion, e.Version)
	assert.True(t, e.Valid(c))
	assert.Equal(t, time.Duration(0), e.Age(c))
}

func TestValidityLaw(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	c := fixedClock(&now)

	tests := []struct {
		name    string
		age     time.Duration
		version string
		want    bool
	}{
		{"fresh", 0, CurrentVersion, true},
		{"half ttl", 30 * time.Minute, CurrentVersion, true},
		{"just under ttl", DefaultTTL - time.Millisecond, CurrentVersion, true},
		{"exactly ttl", DefaultTTL, CurrentVersion, false},
		{"past ttl", 2 * time.Hour, CurrentVersion, false},
		{"fresh wrong version", 0, "0.9.0", false},
		{"stale wrong version", 2 * time.Hour, "0.9.0", false},
		{"empty version", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry[int]{Data: 1, Timestamp: now.Add(-tt.age).UnixMilli(), Version: tt.version}
			assert.Equal(t, tt.want, e.Valid(c))
			assert.Equal(t, tt.want, c.IsValid(e.Timestamp, e.Version))
		})
	}
}

func TestValidityFollowsClock(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	c := fixedClock(&now)
	e := Wrap(c, 42)

	now = now.Add(59 * time.Minute)
	assert.True(t, e.Valid(c))

	now = now.Add(time.Minute)
	assert.False(t, e.Valid(c))
}

func TestCodecVersionOverride(t *testing.T) {
	now := time.Now()
	c := fixedClock(&now)
	e := Wrap(c, "x")

	c.Version = "2.0.0"
	assert.False(t, e.Valid(c), "entries from an older schema are invalid")
}
