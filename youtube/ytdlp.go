package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/LinuxIsCool/yt-dlp-transcripts/internal/retry"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 10 * time.Minute
)

// channelIDRegex matches bare YouTube channel IDs (UC followed by 22 chars).
var channelIDRegex = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

// YtdlpClient fetches video metadata and enumerates playlists and channels
// by shelling out to yt-dlp. It implements MetadataFetcher and Lister.
type YtdlpClient struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// Timeout is the maximum time to wait per yt-dlp invocation.
	// Defaults to 10 minutes.
	Timeout time.Duration

	// ExtraArgs are additional arguments to pass to yt-dlp.
	ExtraArgs []string

	// Retry holds retry behavior configuration.
	Retry *retry.Config

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewYtdlpClient creates a yt-dlp client with default settings.
func NewYtdlpClient() *YtdlpClient {
	cfg := retry.DefaultConfig()
	return &YtdlpClient{
		Path:    defaultYtdlpPath,
		Timeout: defaultYtdlpTimeout,
		Retry:   &cfg,
	}
}

// ytdlpVideo is yt-dlp's -J output for a single video, reduced to the
// fields this tool persists.
type ytdlpVideo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"` // seconds, may be fractional
	ViewCount   int64   `json:"view_count"`
	Channel     string  `json:"channel"`
	Uploader    string  `json:"uploader"`
	ChannelID   string  `json:"channel_id"`
	UploadDate  string  `json:"upload_date"` // YYYYMMDD
	Timestamp   int64   `json:"timestamp"`   // Unix timestamp
	WebpageURL  string  `json:"webpage_url"`
}

// ytdlpList is yt-dlp's -J output for a flat playlist or channel tab.
type ytdlpList struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Entries []ytdlpEntry `json:"entries"`
}

// ytdlpEntry is a single entry in a flat listing. For channel tabs and
// playlists the entries are videos; for the playlists tab they are
// playlists.
type ytdlpEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// FetchMetadata runs yt-dlp against the video's watch URL and parses the
// JSON metadata. The returned Video has an empty Transcript.
func (y *YtdlpClient) FetchMetadata(ctx context.Context, videoID string) (*Video, error) {
	if videoID == "" {
		return nil, &FetchError{VideoID: videoID, Op: "metadata", Err: ErrInvalidURL}
	}

	args := []string{"-J", "--no-warnings"}
	args = append(args, y.ExtraArgs...)
	args = append(args, WatchURL(videoID))

	raw, err := y.runRetrying(ctx, ErrVideoNotFound, args)
	if err != nil {
		return nil, &FetchError{VideoID: videoID, Op: "metadata", Err: err}
	}

	var meta ytdlpVideo
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, &FetchError{VideoID: videoID, Op: "metadata",
			Err: fmt.Errorf("parse yt-dlp output: %w", err)}
	}
	if meta.ID == "" || meta.Title == "" {
		return nil, &FetchError{VideoID: videoID, Op: "metadata",
			Err: errors.New("incomplete metadata in yt-dlp output")}
	}

	return &Video{
		ID:          meta.ID,
		Title:       meta.Title,
		URL:         coalesce(meta.WebpageURL, WatchURL(meta.ID)),
		Description: meta.Description,
		UploadDate:  normalizeUploadDate(meta.UploadDate, meta.Timestamp),
		Duration:    int64(meta.Duration),
		ViewCount:   meta.ViewCount,
		Channel:     coalesce(meta.Channel, meta.Uploader),
		ChannelID:   meta.ChannelID,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// ListPlaylist enumerates a playlist with a flat listing. Accepts a full
// playlist URL or a bare playlist ID.
func (y *YtdlpClient) ListPlaylist(ctx context.Context, playlistURL string) ([]VideoRef, error) {
	list, err := y.listFlat(ctx, normalizePlaylistURL(playlistURL), ErrPlaylistNotFound)
	if err != nil {
		return nil, &ListerError{Source: "ytdlp", Target: playlistURL, Err: err}
	}

	refs := make([]VideoRef, 0, len(list.Entries))
	for _, e := range list.Entries {
		if e.ID == "" {
			continue
		}
		refs = append(refs, VideoRef{ID: e.ID, Title: e.Title, URL: e.URL})
	}
	return refs, nil
}

// ListChannel enumerates the videos on a channel tab. Only video-bearing
// tabs are valid here; TabPlaylists enumerates playlists and belongs to
// ListChannelPlaylists.
func (y *YtdlpClient) ListChannel(ctx context.Context, channelURL string, tab ChannelTab) ([]VideoRef, error) {
	if tab == TabPlaylists {
		return nil, &ListerError{Source: "ytdlp", Target: channelURL,
			Err: errors.New("playlists tab enumerates playlists, use ListChannelPlaylists")}
	}
	if tab == "" {
		tab = TabVideos
	}

	list, err := y.listFlat(ctx, normalizeChannelURL(channelURL, tab), ErrChannelNotFound)
	if err != nil {
		return nil, &ListerError{Source: "ytdlp", Target: channelURL, Err: err}
	}

	refs := make([]VideoRef, 0, len(list.Entries))
	for _, e := range list.Entries {
		if e.ID == "" {
			continue
		}
		refs = append(refs, VideoRef{ID: e.ID, Title: e.Title, URL: e.URL})
	}
	return refs, nil
}

// ListChannelPlaylists enumerates the channel's public playlists.
func (y *YtdlpClient) ListChannelPlaylists(ctx context.Context, channelURL string) ([]PlaylistRef, error) {
	list, err := y.listFlat(ctx, normalizeChannelURL(channelURL, TabPlaylists), ErrChannelNotFound)
	if err != nil {
		return nil, &ListerError{Source: "ytdlp", Target: channelURL, Err: err}
	}

	refs := make([]PlaylistRef, 0, len(list.Entries))
	for _, e := range list.Entries {
		if e.ID == "" {
			continue
		}
		refs = append(refs, PlaylistRef{ID: e.ID, Title: e.Title, URL: e.URL})
	}
	return refs, nil
}

// CheckInstalled verifies that yt-dlp is available.
func (y *YtdlpClient) CheckInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, y.path(), "--version")
	if err := cmd.Run(); err != nil {
		return ErrYtdlpNotInstalled
	}
	return nil
}

// listFlat runs a flat-playlist listing against the target URL and parses
// the result.
func (y *YtdlpClient) listFlat(ctx context.Context, target string, notFound error) (*ytdlpList, error) {
	args := []string{"--flat-playlist", "-J", "--no-warnings"}
	args = append(args, y.ExtraArgs...)
	args = append(args, target)

	raw, err := y.runRetrying(ctx, notFound, args)
	if err != nil {
		return nil, err
	}

	var list ytdlpList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return &list, nil
}

// runRetrying executes yt-dlp under the retry policy. Parsing happens in
// the callers so malformed output is never retried.
func (y *YtdlpClient) runRetrying(ctx context.Context, notFound error, args []string) ([]byte, error) {
	cfg := retry.DefaultConfig()
	if y.Retry != nil {
		cfg = *y.Retry
	}

	var raw []byte
	err := retry.Do(ctx, cfg, ytdlpRetryable, func(ctx context.Context) error {
		out, err := y.run(ctx, notFound, args)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// run executes a single yt-dlp invocation under the per-invocation timeout
// and returns stdout. Failures are classified from stderr; notFound is the
// sentinel returned for target-missing patterns so callers pick the right
// one for videos, playlists, or channels.
func (y *YtdlpClient) run(ctx context.Context, notFound error, args []string) ([]byte, error) {
	timeout := y.Timeout
	if timeout == 0 {
		timeout = defaultYtdlpTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, y.path(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	y.logger().Debug("running yt-dlp", "path", y.path(), "args", strings.Join(args, " "))

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cmdCtx.Err() == context.DeadlineExceeded {
		return nil, ErrNetworkTimeout
	}

	// A bare name not on PATH surfaces as exec.ErrNotFound; an explicit
	// path that does not exist surfaces as fs.ErrNotExist from fork/exec.
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return nil, ErrYtdlpNotInstalled
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrYtdlpNotInstalled
	}

	return nil, classifyStderr(stderr.String(), notFound, err)
}

func (y *YtdlpClient) path() string {
	if y.Path != "" {
		return y.Path
	}
	return defaultYtdlpPath
}

func (y *YtdlpClient) logger() *slog.Logger {
	if y.Logger != nil {
		return y.Logger
	}
	return slog.Default()
}

// classifyStderr maps common yt-dlp error patterns to sentinel errors.
func classifyStderr(stderr string, notFound error, runErr error) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "private video"):
		return notFound
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "rate limit"):
		return ErrRateLimited
	case strings.Contains(msg, "unsupported url"):
		return ErrUnsupportedURL
	}
	return fmt.Errorf("yt-dlp failed: %w: %s", runErr, firstLine(stderr))
}

// ytdlpRetryable reports whether a yt-dlp failure is worth another attempt.
// Missing targets and setup problems are permanent; rate limits, timeouts,
// and unclassified failures are transient.
func ytdlpRetryable(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	switch {
	case errors.Is(err, ErrVideoNotFound),
		errors.Is(err, ErrPlaylistNotFound),
		errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrUnsupportedURL),
		errors.Is(err, ErrYtdlpNotInstalled),
		errors.Is(err, ErrInvalidURL):
		return false
	}
	return true
}

// normalizeUploadDate prefers the YYYYMMDD upload_date field and falls back
// to deriving it from the Unix timestamp.
func normalizeUploadDate(uploadDate string, timestamp int64) string {
	if uploadDate != "" {
		if _, err := time.Parse("20060102", uploadDate); err == nil {
			return uploadDate
		}
	}
	if timestamp > 0 {
		return time.Unix(timestamp, 0).UTC().Format("20060102")
	}
	return ""
}

// normalizePlaylistURL expands a bare playlist ID into a full URL.
func normalizePlaylistURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "youtube.com") || strings.Contains(s, "youtu.be") || strings.Contains(s, "://") {
		return s
	}
	return "https://www.youtube.com/playlist?list=" + s
}

// normalizeChannelURL points a channel URL at the wanted tab. Bare channel
// IDs are expanded to full URLs first.
func normalizeChannelURL(channelURL string, tab ChannelTab) string {
	u := strings.TrimSpace(channelURL)
	if channelIDRegex.MatchString(u) {
		u = "https://www.youtube.com/channel/" + u
	}

	u = strings.TrimSuffix(u, "/")
	for _, t := range []string{"/videos", "/playlists", "/streams", "/shorts", "/featured"} {
		if strings.HasSuffix(u, t) {
			u = strings.TrimSuffix(u, t)
			break
		}
	}
	return u + "/" + string(tab)
}

// firstLine trims stderr down to its first non-empty line for error text.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
