package youtube

import (
	"context"
	"time"
)

// Video is the fully fetched form of a single YouTube video: metadata plus
// transcript, ready to be persisted as one record.
type Video struct {
	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`

	// Title is the video title.
	Title string `json:"title"`

	// URL is the canonical watch URL.
	URL string `json:"url"`

	// Description is the full video description.
	Description string `json:"description,omitempty"`

	// Transcript is the flattened caption text. Empty when no transcript
	// is available.
	Transcript string `json:"transcript,omitempty"`

	// UploadDate is the upload date in YYYYMMDD form, or empty if unknown.
	UploadDate string `json:"upload_date,omitempty"`

	// Duration is the video length in whole seconds.
	Duration int64 `json:"duration,omitempty"`

	// ViewCount is the number of views at fetch time.
	ViewCount int64 `json:"view_count,omitempty"`

	// Channel is the display name of the uploading channel.
	Channel string `json:"channel,omitempty"`

	// ChannelID is the YouTube channel ID (e.g., "UCuAXFkgsw1L7xaCfnd5JJOw").
	ChannelID string `json:"channel_id,omitempty"`

	// FetchedAt is when this video was fetched.
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// VideoFetcher produces a complete Video for a video ID.
type VideoFetcher interface {
	// FetchVideo fetches metadata and transcript for the given video ID.
	FetchVideo(ctx context.Context, videoID string) (*Video, error)
}

// MetadataFetcher fetches video metadata without the transcript.
type MetadataFetcher interface {
	// FetchMetadata fetches the metadata for the given video ID. The
	// returned Video has an empty Transcript.
	FetchMetadata(ctx context.Context, videoID string) (*Video, error)
}

// TranscriptFetcher fetches the caption track for a video.
type TranscriptFetcher interface {
	// FetchTranscript returns the flattened transcript text for the given
	// video ID. Returns ErrNoTranscript when no captions exist.
	FetchTranscript(ctx context.Context, videoID string) (string, error)
}
