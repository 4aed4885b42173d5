package domain

import (
	"fmt"
	"strings"
)

// KeySeparator joins the source and item identifiers of a composite key.
const KeySeparator = "+"

// MakeKey builds the composite key for an item of a video source.
func MakeKey(source, id string) (string, error) {
	if source == "" || id == "" {
		return "", fmt.Errorf("%w: source and id must be non-empty", ErrInvalidKey)
	}
	if strings.Contains(source, KeySeparator) {
		return "", fmt.Errorf("%w: source %q contains %q", ErrInvalidKey, source, KeySeparator)
	}
	return source + KeySeparator + id, nil
}

// ParseKey splits a composite key at its first separator.
func ParseKey(key string) (source, id string, err error) {
	source, id, ok := strings.Cut(key, KeySeparator)
	if !ok {
		return "", "", fmt.Errorf("%w: %q has no %q separator", ErrInvalidKey, key, KeySeparator)
	}
	if source == "" || id == "" {
		return "", "", fmt.Errorf("%w: %q has an empty side", ErrInvalidKey, key)
	}
	return source, id, nil
}

// ValidateKey rejects malformed composite keys.
func ValidateKey(key string) error {
	_, _, err := ParseKey(key)
	return err
}
