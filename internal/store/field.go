package store

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	shardExt      = ".sqlite"
	maxFieldBytes = 200
)

// shardSidecars are files SQLite keeps next to a shard.
var shardSidecars = []string{"-wal", "-shm", "-journal"}

// NormalizeField returns the canonical (NFC) form of a field name, or
// ErrInvalidField if it cannot name a shard file.
//
// Composed and decomposed spellings of the same name map to one shard.
func NormalizeField(field string) (string, error) {
	name := norm.NFC.String(field)
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidField)
	}
	if len(name) > maxFieldBytes {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidField, maxFieldBytes)
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			continue
		}
		return "", fmt.Errorf("%w: %q contains %q", ErrInvalidField, field, r)
	}
	return name, nil
}

// fieldFromFile returns the field stored in a shard file name.
func fieldFromFile(name string) (string, bool) {
	if !strings.HasSuffix(name, shardExt) {
		return "", false
	}
	field := strings.TrimSuffix(name, shardExt)
	return field, field != ""
}

// isShardFile reports whether name is a shard or one of its sidecars.
func isShardFile(name string) bool {
	if strings.HasSuffix(name, shardExt) {
		return true
	}
	for _, s := range shardSidecars {
		if strings.HasSuffix(name, shardExt+s) {
			return true
		}
	}
	return false
}
