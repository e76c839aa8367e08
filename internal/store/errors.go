package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a shard has no value for a uid.
	ErrNotFound = errors.New("fieldkv: not found")

	// ErrInvalidField is returned for field names that cannot name a shard file.
	ErrInvalidField = errors.New("fieldkv: invalid field name")
)

// StorageError reports an I/O or engine failure against one shard.
type StorageError struct {
	Op    string
	Field string
	Err   error
}

func (e *StorageError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("fieldkv: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("fieldkv: %s %s: %v", e.Op, e.Field, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStorageError returns true if err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op, field string, err error) error {
	return &StorageError{Op: op, Field: field, Err: err}
}
