// Package storage persists fetched video records to a CSV file keyed by
// video ID, providing the duplicate detection that makes interrupted batch
// runs safely resumable.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested record was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists indicates a record with the same video ID is already stored.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates the backing file could not be understood.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring the output file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("open", "append", "compact", "lock").
	Op string
	// Entity is the entity type ("record", "file").
	Entity string
	// ID is the video ID or file path if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// RecordStore is the interface the processing pipeline writes through.
// A video ID present in the store must never be fetched or appended again.
type RecordStore interface {
	// Has reports whether a record with the given video ID is already stored.
	Has(ctx context.Context, videoID string) (bool, error)
	// Append stores a new record. It returns ErrAlreadyExists if a record
	// with the same video ID is present and ErrInvalidInput if the record
	// fails validation.
	Append(ctx context.Context, rec *Record) error
	// Close flushes buffered rows and releases the file lock.
	Close() error
}
