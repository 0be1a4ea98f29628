package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// lockTimeout bounds how long Open waits for another process to release the
// output file.
const lockTimeout = 5 * time.Second

// CSVStore implements RecordStore on a single CSV file. On open it loads the
// video IDs of all existing rows into memory, so duplicate checks are O(1)
// and an interrupted batch can resume without re-fetching. New records are
// appended and flushed row by row.
type CSVStore struct {
	mu   sync.Mutex
	path string

	seen  map[string]struct{}
	count int

	// Append handle, opened lazily so a run that writes nothing never
	// creates the file.
	file *os.File
	w    *csv.Writer

	lock *FileLock
}

// OpenCSVStore opens or prepares the CSV file at path. A pre-existing file
// must carry the canonical header; rows with a wrong field count, an empty
// video ID, or a video ID seen earlier in the file are dropped, and when any
// were found the file is compacted atomically so the on-disk state satisfies
// the one-row-per-video invariant again. The store holds an advisory lock on
// the file until Close.
func OpenCSVStore(path string) (*CSVStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Entity: "file", Err: fmt.Errorf("%w: empty path", ErrInvalidInput)}
	}

	lock := NewFileLock(path)
	if err := lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	s := &CSVStore{
		path: path,
		seen: make(map[string]struct{}),
		lock: lock,
	}

	if err := s.load(); err != nil {
		lock.Unlock()
		return nil, err
	}

	return s, nil
}

// load reads the existing file, if any, into the in-memory index.
func (s *CSVStore) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil // fresh store, file created on first append
	}
	if err != nil {
		return &StorageError{Op: "open", Entity: "file", ID: s.path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // field counts validated against Header below

	var (
		records    []*Record
		headerSeen bool
		dirty      bool
	)

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structural damage (e.g. an unterminated quote) cannot be
			// skipped safely; refuse to append to the file.
			return &StorageError{Op: "open", Entity: "file", ID: s.path,
				Err: fmt.Errorf("%w: %v", ErrStorageCorrupt, err)}
		}

		if !headerSeen {
			headerSeen = true
			if !isCanonicalHeader(row) {
				return &StorageError{Op: "open", Entity: "file", ID: s.path,
					Err: fmt.Errorf("%w: unexpected header %q", ErrStorageCorrupt, row)}
			}
			continue
		}

		rec, err := recordFromRow(row)
		if err != nil || rec.VideoID == "" {
			dirty = true
			continue
		}
		if _, dup := s.seen[rec.VideoID]; dup {
			dirty = true
			continue
		}

		s.seen[rec.VideoID] = struct{}{}
		records = append(records, rec)
	}

	if !headerSeen {
		return nil // zero-byte file, treat as fresh
	}

	s.count = len(records)

	if dirty {
		return s.rewrite(records)
	}
	return nil
}

// rewrite replaces the file with header + records via temp file + rename.
func (s *CSVStore) rewrite(records []*Record) error {
	aw, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StorageError{Op: "compact", Entity: "file", ID: s.path, Err: err}
	}

	cw := csv.NewWriter(aw)
	if err := cw.Write(Header); err != nil {
		aw.Abort()
		return &StorageError{Op: "compact", Entity: "file", ID: s.path, Err: err}
	}
	for _, rec := range records {
		if err := cw.Write(rec.row()); err != nil {
			aw.Abort()
			return &StorageError{Op: "compact", Entity: "record", ID: rec.VideoID, Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		aw.Abort()
		return &StorageError{Op: "compact", Entity: "file", ID: s.path, Err: err}
	}

	if err := aw.Commit(); err != nil {
		return &StorageError{Op: "compact", Entity: "file", ID: s.path, Err: err}
	}
	return nil
}

// Has reports whether a record with the given video ID is already stored.
func (s *CSVStore) Has(ctx context.Context, videoID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[videoID]
	return ok, nil
}

// Append validates and writes one record, creating the file with its header
// on the first write. The row is flushed before Append returns, so a crash
// loses at most the row in flight.
func (s *CSVStore) Append(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return &StorageError{Op: "append", Entity: "record", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[rec.VideoID]; dup {
		return &StorageError{Op: "append", Entity: "record", ID: rec.VideoID, Err: ErrAlreadyExists}
	}

	if err := s.ensureWriter(); err != nil {
		return err
	}

	if err := s.w.Write(rec.row()); err != nil {
		return &StorageError{Op: "append", Entity: "record", ID: rec.VideoID, Err: err}
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return &StorageError{Op: "append", Entity: "record", ID: rec.VideoID, Err: err}
	}

	s.seen[rec.VideoID] = struct{}{}
	s.count++
	return nil
}

// ensureWriter opens the append handle on first use, writing the header when
// the file is new or empty.
func (s *CSVStore) ensureWriter() error {
	if s.w != nil {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &StorageError{Op: "append", Entity: "file", ID: s.path, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return &StorageError{Op: "append", Entity: "file", ID: s.path, Err: err}
	}

	s.file = f
	s.w = csv.NewWriter(f)

	if info.Size() == 0 {
		if err := s.w.Write(Header); err != nil {
			return &StorageError{Op: "append", Entity: "file", ID: s.path, Err: err}
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			return &StorageError{Op: "append", Entity: "file", ID: s.path, Err: err}
		}
	}
	return nil
}

// Count returns the number of records currently stored.
func (s *CSVStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Path returns the CSV file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Close flushes pending rows, syncs the file, and releases the lock.
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error

	if s.w != nil {
		s.w.Flush()
		if err := s.w.Error(); err != nil && firstErr == nil {
			firstErr = &StorageError{Op: "close", Entity: "file", ID: s.path, Err: err}
		}
		s.w = nil
	}
	if s.file != nil {
		if err := s.file.Sync(); err != nil && firstErr == nil {
			firstErr = &StorageError{Op: "close", Entity: "file", ID: s.path, Err: err}
		}
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = &StorageError{Op: "close", Entity: "file", ID: s.path, Err: err}
		}
		s.file = nil
	}
	if s.lock != nil {
		s.lock.Unlock()
		s.lock = nil
	}

	return firstErr
}

// isCanonicalHeader reports whether row matches Header exactly.
func isCanonicalHeader(row []string) bool {
	if len(row) != len(Header) {
		return false
	}
	for i, col := range Header {
		if row[i] != col {
			return false
		}
	}
	return true
}
