package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*CSVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "videos.csv")
	store, err := OpenCSVStore(path)
	if err != nil {
		t.Fatalf("OpenCSVStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func sampleRecord(videoID string) *Record {
	return &Record{
		VideoID:     videoID,
		Title:       "Test Video",
		URL:         "https://www.youtube.com/watch?v=" + videoID,
		Description: "A test video",
		Transcript:  "Hello World",
		UploadDate:  "20231201",
		Duration:    212,
		ViewCount:   1000000,
		Channel:     "Test Channel",
		ChannelID:   "UCtest123",
	}
}

// readRows parses the file and returns all rows including the header.
func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestOpenCSVStore_FreshDoesNotCreateFile(t *testing.T) {
	store, path := newTestStore(t)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("fresh store created the file before any append")
	}
	if got := store.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

func TestCSVStore_AppendWritesHeaderOnce(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, sampleRecord("dQw4w9WgXcQ")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Append(ctx, sampleRecord("abcdefghijk")); err != nil {
		t.Fatalf("Append() second error = %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("file has %d rows, want 3 (header + 2)", len(rows))
	}
	for i, col := range Header {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][0] != "dQw4w9WgXcQ" || rows[2][0] != "abcdefghijk" {
		t.Errorf("rows out of order: %q, %q", rows[1][0], rows[2][0])
	}
	if rows[1][6] != "212" || rows[1][7] != "1000000" {
		t.Errorf("numeric cells = %q/%q, want 212/1000000", rows[1][6], rows[1][7])
	}
}

func TestCSVStore_AppendDuplicate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, sampleRecord("dQw4w9WgXcQ")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	err := store.Append(ctx, sampleRecord("dQw4w9WgXcQ"))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Append() duplicate error = %v, want ErrAlreadyExists", err)
	}
	if got := store.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestCSVStore_AppendInvalid(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Append(ctx, &Record{Title: "no id"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Append() error = %v, want ErrInvalidInput", err)
	}

	var storErr *StorageError
	if !errors.As(err, &storErr) {
		t.Fatalf("Append() error = %T, want *StorageError", err)
	}
	if storErr.Op != "append" {
		t.Errorf("StorageError.Op = %q, want %q", storErr.Op, "append")
	}
}

func TestCSVStore_ResumeAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.csv")
	ctx := context.Background()

	store, err := OpenCSVStore(path)
	if err != nil {
		t.Fatalf("OpenCSVStore() error = %v", err)
	}
	if err := store.Append(ctx, sampleRecord("dQw4w9WgXcQ")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	store.Close()

	store2, err := OpenCSVStore(path)
	if err != nil {
		t.Fatalf("OpenCSVStore() reopen error = %v", err)
	}
	defer store2.Close()

	has, err := store2.Has(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if !has {
		t.Error("Has() = false after reopen, want true")
	}
	if got := store2.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	if err := store2.Append(ctx, sampleRecord("dQw4w9WgXcQ")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Append() after reopen error = %v, want ErrAlreadyExists", err)
	}

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Errorf("file has %d rows, want 2 (header + 1)", len(rows))
	}
}

func TestCSVStore_QuotingRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.csv")
	ctx := context.Background()

	rec := sampleRecord("abc_DEF-123")
	rec.Title = `He said "hello", twice`
	rec.Description = "line one\nline two, with comma"
	rec.Transcript = "fragment one fragment two"

	store, err := OpenCSVStore(path)
	if err != nil {
		t.Fatalf("OpenCSVStore() error = %v", err)
	}
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	store.Close()

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("file has %d rows, want 2", len(rows))
	}
	got := rows[1]
	if got[1] != rec.Title {
		t.Errorf("title = %q, want %q", got[1], rec.Title)
	}
	if got[3] != rec.Description {
		t.Errorf("description = %q, want %q", got[3], rec.Description)
	}
}

func TestCSVStore_EmptyTranscriptIsValid(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("dQw4w9WgXcQ")
	rec.Transcript = ""
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	rows := readRows(t, path)
	if rows[1][4] != "" {
		t.Errorf("transcript cell = %q, want empty", rows[1][4])
	}
}

func TestCSVStore_CompactsLegacyDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.csv")

	// A file that already violates uniqueness (e.g. two merged runs).
	content := strings.Join(Header, ",") + "\n" +
		"dupdupdup01,First,u,d,t,20230101,10,1,c,cid\n" +
		"uniqueid001,Second,u,d,t,20230102,20,2,c,cid\n" +
		"dupdupdup01,Third,u,d,t,20230103,30,3,c,cid\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store, err := OpenCSVStore(path)
	if err != nil {
		t.Fatalf("OpenCSVStore() error = %v", err)
	}
	defer store.Close()

	if got := store.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("compacted file has %d rows, want 3 (header + 2)", len(rows))
	}
	if rows[1][0] != "dupdupdup01" || rows[1][1] != "First" {
		t.Errorf("first occurrence not kept: %v", rows[1])
	}
	if rows[2][0] != "uniqueid001" {
		t.Errorf("unique row lost: %v", rows[2])
	}
}

func TestCSVStore_DropsShortRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.csv")

	content := strings.Join(Header, ",") + "\n" +
		"goodid00001,Good,u,d,t,20230101,10,1,c,cid\n" +
		"shortrow001,OnlyTwoFields\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store, err := OpenCSVStore(path)
	if err != nil {
		t.Fatalf("OpenCSVStore() error = %v", err)
	}
	defer store.Close()

	if got := store.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	has, _ := store.Has(context.Background(), "shortrow001")
	if has {
		t.Error("Has() = true for dropped short row")
	}

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Errorf("compacted file has %d rows, want 2", len(rows))
	}
}

func TestOpenCSVStore_RejectsForeignHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.csv")

	if err := os.WriteFile(path, []byte("id,name\n1,foo\n"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	_, err := OpenCSVStore(path)
	if !errors.Is(err, ErrStorageCorrupt) {
		t.Errorf("OpenCSVStore() error = %v, want ErrStorageCorrupt", err)
	}
}

func TestOpenCSVStore_RejectsStructuralDamage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.csv")

	content := strings.Join(Header, ",") + "\n" +
		"brokenid001,\"unterminated quote,u,d,t,20230101,10,1,c,cid\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	_, err := OpenCSVStore(path)
	if !errors.Is(err, ErrStorageCorrupt) {
		t.Errorf("OpenCSVStore() error = %v, want ErrStorageCorrupt", err)
	}
}

func TestOpenCSVStore_EmptyFileIsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.csv")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store, err := OpenCSVStore(path)
	if err != nil {
		t.Fatalf("OpenCSVStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Append(context.Background(), sampleRecord("dQw4w9WgXcQ")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Errorf("file has %d rows, want 2 (header written into empty file)", len(rows))
	}
}

func TestFileLock_Contention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.csv")

	l1 := NewFileLock(path)
	if err := l1.Lock(100 * time.Millisecond); err != nil {
		t.Fatalf("first Lock() error = %v", err)
	}
	defer l1.Unlock()

	l2 := NewFileLock(path)
	if err := l2.Lock(50 * time.Millisecond); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("second Lock() error = %v, want ErrLockTimeout", err)
	}

	l1.Unlock()
	l3 := NewFileLock(path)
	if err := l3.Lock(100 * time.Millisecond); err != nil {
		t.Errorf("Lock() after Unlock() error = %v", err)
	}
	l3.Unlock()
}
