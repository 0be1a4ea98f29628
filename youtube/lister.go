// Package youtube provides YouTube URL classification, metadata and
// transcript fetching, and playlist/channel enumeration.
package youtube

import (
	"context"
	"errors"
)

// Sentinel errors for fetch and listing operations.
var (
	ErrVideoNotFound     = errors.New("youtube: video not found")
	ErrPlaylistNotFound  = errors.New("youtube: playlist not found")
	ErrChannelNotFound   = errors.New("youtube: channel not found")
	ErrRateLimited       = errors.New("youtube: rate limited")
	ErrNetworkTimeout    = errors.New("youtube: network timeout")
	ErrInvalidURL        = errors.New("youtube: invalid URL")
	ErrYtdlpNotInstalled = errors.New("youtube: yt-dlp not installed")
	ErrNoTranscript      = errors.New("youtube: no transcript available")
	ErrUnsupportedURL    = errors.New("youtube: unsupported URL")
)

// ChannelTab selects which tab of a channel to enumerate.
type ChannelTab string

const (
	// TabVideos enumerates the channel's uploads.
	TabVideos ChannelTab = "videos"
	// TabPlaylists enumerates the channel's public playlists.
	TabPlaylists ChannelTab = "playlists"
)

// Lister enumerates the videos behind playlist and channel URLs.
// Different implementations may use different strategies (yt-dlp, Data API).
type Lister interface {
	// ListPlaylist returns the videos in a playlist, in playlist order.
	// Accepts a playlist URL or a bare playlist ID.
	ListPlaylist(ctx context.Context, playlistURL string) ([]VideoRef, error)

	// ListChannel returns the videos on the given channel tab. The URL can
	// be a channel URL, handle (@username), or bare channel ID.
	ListChannel(ctx context.Context, channelURL string, tab ChannelTab) ([]VideoRef, error)

	// ListChannelPlaylists returns the channel's public playlists.
	ListChannelPlaylists(ctx context.Context, channelURL string) ([]PlaylistRef, error)
}

// VideoRef identifies a video discovered during enumeration. Only the ID is
// guaranteed; titles from flat listings may be empty or placeholders.
type VideoRef struct {
	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`

	// Title is the video title as reported by the listing source.
	Title string `json:"title,omitempty"`

	// URL is the canonical watch URL.
	URL string `json:"url,omitempty"`
}

// WatchURL returns the full YouTube URL for this video.
func (v VideoRef) WatchURL() string {
	if v.URL != "" {
		return v.URL
	}
	return "https://www.youtube.com/watch?v=" + v.ID
}

// PlaylistRef identifies a playlist discovered on a channel.
type PlaylistRef struct {
	// ID is the YouTube playlist ID (e.g., "PLxxxxxxxx").
	ID string `json:"id"`

	// Title is the playlist title.
	Title string `json:"title,omitempty"`

	// URL is the canonical playlist URL.
	URL string `json:"url,omitempty"`
}

// PlaylistURL returns the full YouTube URL for this playlist.
func (p PlaylistRef) PlaylistURL() string {
	if p.URL != "" {
		return p.URL
	}
	return "https://www.youtube.com/playlist?list=" + p.ID
}

// ListerError wraps enumeration errors with context about what failed.
// Use errors.As() to extract this error type and get operation details:
//
//	var listerErr *youtube.ListerError
//	if errors.As(err, &listerErr) {
//		fmt.Printf("Failed to list from %s: %v\n", listerErr.Target, listerErr.Err)
//	}
type ListerError struct {
	// Source indicates which lister produced the error ("ytdlp", "api").
	Source string
	// Target is the playlist or channel URL that was being listed.
	Target string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the listing error.
func (e *ListerError) Error() string {
	return "youtube: " + e.Source + " listing " + e.Target + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *ListerError) Unwrap() error { return e.Err }

// FetchError wraps per-video fetch errors with the video ID and the stage
// that failed ("metadata", "transcript").
type FetchError struct {
	// VideoID is the video being fetched.
	VideoID string
	// Op is the fetch stage that failed.
	Op string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the fetch error.
func (e *FetchError) Error() string {
	return "youtube: fetch " + e.Op + " for " + e.VideoID + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *FetchError) Unwrap() error { return e.Err }
