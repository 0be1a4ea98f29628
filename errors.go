package transcripts

import (
	httpclient "github.com/LinuxIsCool/yt-dlp-transcripts/http"
	"github.com/LinuxIsCool/yt-dlp-transcripts/internal/retry"
	"github.com/LinuxIsCool/yt-dlp-transcripts/storage"
	"github.com/LinuxIsCool/yt-dlp-transcripts/youtube"
)

// Type aliases for convenient error handling.
type (
	// ListerError wraps errors during playlist and channel enumeration.
	ListerError = youtube.ListerError
	// FetchError wraps errors during metadata and transcript fetching.
	FetchError = youtube.FetchError
	// ExhaustedError wraps errors that persisted after retries were exhausted.
	ExhaustedError = retry.ExhaustedError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
	// HTTPError reports a non-2xx HTTP response.
	HTTPError = httpclient.HTTPError
	// RateLimitError reports an HTTP 429 or 503 response.
	RateLimitError = httpclient.RateLimitError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrVideoNotFound indicates the video does not exist or is private.
	ErrVideoNotFound = youtube.ErrVideoNotFound
	// ErrPlaylistNotFound indicates the playlist does not exist.
	ErrPlaylistNotFound = youtube.ErrPlaylistNotFound
	// ErrChannelNotFound indicates the channel does not exist.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrRateLimited indicates the operation was rate limited by YouTube.
	ErrRateLimited = youtube.ErrRateLimited
	// ErrNetworkTimeout indicates a network timeout occurred.
	ErrNetworkTimeout = youtube.ErrNetworkTimeout
	// ErrInvalidURL indicates the provided URL is invalid.
	ErrInvalidURL = youtube.ErrInvalidURL
	// ErrYtdlpNotInstalled indicates the yt-dlp binary was not found.
	ErrYtdlpNotInstalled = youtube.ErrYtdlpNotInstalled
	// ErrNoTranscript indicates the video has no captions in the
	// requested language.
	ErrNoTranscript = youtube.ErrNoTranscript
	// ErrUnsupportedURL indicates yt-dlp does not support the URL.
	ErrUnsupportedURL = youtube.ErrUnsupportedURL

	// Storage errors

	// ErrNotFound indicates a record was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrAlreadyExists indicates a record already exists in storage.
	ErrAlreadyExists = storage.ErrAlreadyExists
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = storage.ErrInvalidInput
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// IsRetryable determines if an error is worth retrying.
// It returns false for permanent conditions like context cancellation.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
