package storage

import (
	"fmt"
	"strconv"
)

// Header is the canonical CSV column list, in persisted order. A file whose
// header differs is rejected rather than silently reinterpreted.
var Header = []string{
	"video_id",
	"title",
	"url",
	"description",
	"transcript",
	"upload_date",
	"duration",
	"view_count",
	"channel",
	"channel_id",
}

// Record is one fetched video as persisted to CSV. Records are immutable
// once written; VideoID is the unique key.
type Record struct {
	// VideoID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	VideoID string
	// Title is the video title.
	Title string
	// URL is the canonical watch URL for the video.
	URL string
	// Description is the full video description.
	Description string
	// Transcript is the joined caption text. Empty when no transcript is available.
	Transcript string
	// UploadDate is the upload date in YYYYMMDD format.
	UploadDate string
	// Duration is the video length in seconds.
	Duration int64
	// ViewCount is the total number of views.
	ViewCount int64
	// Channel is the channel display name.
	Channel string
	// ChannelID is the YouTube channel ID.
	ChannelID string
}

// Validate checks required fields.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidInput)
	}
	if r.VideoID == "" {
		return fmt.Errorf("%w: video ID is required", ErrInvalidInput)
	}
	return nil
}

// row converts the record to a CSV row in Header order.
func (r *Record) row() []string {
	return []string{
		r.VideoID,
		r.Title,
		r.URL,
		r.Description,
		r.Transcript,
		r.UploadDate,
		strconv.FormatInt(r.Duration, 10),
		strconv.FormatInt(r.ViewCount, 10),
		r.Channel,
		r.ChannelID,
	}
}

// recordFromRow converts a CSV row in Header order back to a Record.
// Numeric cells that fail to parse are kept as zero; resume only depends on
// the video ID, so a damaged number must not make the whole file unreadable.
func recordFromRow(row []string) (*Record, error) {
	if len(row) != len(Header) {
		return nil, fmt.Errorf("%w: row has %d fields, want %d", ErrInvalidInput, len(row), len(Header))
	}

	duration, _ := strconv.ParseInt(row[6], 10, 64)
	viewCount, _ := strconv.ParseInt(row[7], 10, 64)

	return &Record{
		VideoID:     row[0],
		Title:       row[1],
		URL:         row[2],
		Description: row[3],
		Transcript:  row[4],
		UploadDate:  row[5],
		Duration:    duration,
		ViewCount:   viewCount,
		Channel:     row[8],
		ChannelID:   row[9],
	}, nil
}
