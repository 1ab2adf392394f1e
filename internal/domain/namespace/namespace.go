// Package namespace multiplexes logical collections over one physical key space.
//
// A namespaced key is "<collection><Delimiter><rawID>". Collection names never
// contain the delimiter, so the first delimiter always ends the collection part
// and raw ids are free to contain it.
package namespace

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

// Delimiter separates the collection name from the raw id.
const Delimiter = ':'

// MaxNameLen is the longest allowed collection name.
const MaxNameLen = 64

// ValidateName checks that name is 1..64 chars of [a-zA-Z0-9_-].
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is required", domain.ErrInvalidName)
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: collection name %q too long (max %d)", domain.ErrInvalidName, name, MaxNameLen)
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return fmt.Errorf("%w: collection name %q must be alphanumeric with underscores and hyphens",
				domain.ErrInvalidName, name)
		}
	}
	return nil
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '-'
}

// Encode builds the namespaced key for rawID inside collection.
func Encode(collection, rawID string) (string, error) {
	if err := ValidateName(collection); err != nil {
		return "", err
	}
	if rawID == "" {
		return "", fmt.Errorf("%w: empty raw id for collection %q", domain.ErrMalformedKey, collection)
	}
	var b strings.Builder
	b.Grow(len(collection) + 1 + len(rawID))
	b.WriteString(collection)
	b.WriteByte(Delimiter)
	b.WriteString(rawID)
	return b.String(), nil
}

// Decode splits a namespaced key on the first delimiter.
func Decode(key string) (collection, rawID string, err error) {
	i := strings.IndexByte(key, Delimiter)
	if i <= 0 || i == len(key)-1 {
		return "", "", fmt.Errorf("%w: %q", domain.ErrMalformedKey, key)
	}
	return key[:i], key[i+1:], nil
}

// Collection returns only the collection part of a namespaced key.
func Collection(key string) (string, error) {
	col, _, err := Decode(key)
	return col, err
}

// Rekey moves a namespaced key into another collection, keeping its raw id.
func Rekey(key, target string) (string, error) {
	_, rawID, err := Decode(key)
	if err != nil {
		return "", err
	}
	return Encode(target, rawID)
}
