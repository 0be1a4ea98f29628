package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

// URLKind classifies what a YouTube URL points at. The string values are
// user-visible: the CLI prints them as "Detected URL type: <kind>".
type URLKind string

const (
	// KindVideo is a URL addressing a single video.
	KindVideo URLKind = "video"
	// KindPlaylist is a URL addressing a playlist.
	KindPlaylist URLKind = "playlist"
	// KindChannelVideos is a channel URL targeting the uploads tab.
	KindChannelVideos URLKind = "channel_videos"
	// KindChannelPlaylists is a channel URL targeting the playlists tab.
	KindChannelPlaylists URLKind = "channel_playlists"
	// KindUnknown is anything the classifier does not recognize.
	KindUnknown URLKind = "unknown"
)

// videoIDRegex matches canonical 11-character YouTube video IDs.
var videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// youtubeHosts are the hostnames recognized as YouTube frontends.
var youtubeHosts = map[string]bool{
	"www.youtube.com":   true,
	"youtube.com":       true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

// videoPathPrefixes are the path forms that carry a video ID as their next
// segment.
var videoPathPrefixes = []string{"/embed/", "/v/", "/shorts/", "/live/"}

// IsValidVideoID reports whether s has the canonical video ID shape.
func IsValidVideoID(s string) bool {
	return videoIDRegex.MatchString(s)
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ExtractVideoID pulls the video ID out of a YouTube URL. It recognizes
// watch URLs (extra query parameters are ignored), youtu.be short links,
// and the /embed/, /v/, /shorts/ and /live/ path forms. Returns ("", false)
// for anything that does not address a single video: bare playlist URLs,
// channel URLs, non-YouTube hosts, malformed input.
func ExtractVideoID(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		if id := firstPathSegment(u.Path); id != "" {
			return id, true
		}
		return "", false
	}
	if !youtubeHosts[host] {
		return "", false
	}

	if id := u.Query().Get("v"); id != "" {
		return id, true
	}

	for _, prefix := range videoPathPrefixes {
		rest, ok := strings.CutPrefix(u.Path, prefix)
		if !ok {
			continue
		}
		if id := firstPathSegment(rest); id != "" {
			return id, true
		}
	}

	return "", false
}

// ExtractPlaylistID pulls the playlist ID (the "list" query parameter) out
// of a YouTube URL. Returns ("", false) when the URL does not address a
// playlist.
func ExtractPlaylistID(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host != "youtu.be" && !youtubeHosts[host] {
		return "", false
	}

	if id := u.Query().Get("list"); id != "" {
		return id, true
	}
	return "", false
}

// DetectURLKind classifies a raw URL string. Precedence: a URL with an
// extractable video ID is a video even when a list parameter is also
// present; otherwise a list parameter makes it a playlist; otherwise
// channel-shaped paths (@handle, /c/, /channel/, /user/) are split on the
// trailing tab segment, where /playlists selects the playlists tab and
// everything else falls back to uploads. Malformed or unrecognized input
// yields KindUnknown, never an error.
func DetectURLKind(rawURL string) URLKind {
	if _, ok := ExtractVideoID(rawURL); ok {
		return KindVideo
	}
	if _, ok := ExtractPlaylistID(rawURL); ok {
		return KindPlaylist
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !youtubeHosts[strings.ToLower(u.Hostname())] {
		return KindUnknown
	}

	tab, ok := channelTabSegment(u.Path)
	if !ok {
		return KindUnknown
	}
	if tab == "playlists" {
		return KindChannelPlaylists
	}
	return KindChannelVideos
}

// channelTabSegment reports whether the path is channel-shaped and, if so,
// which tab segment follows the channel identity ("" when none).
func channelTabSegment(path string) (string, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return "", false
	}

	var rest []string
	switch {
	case strings.HasPrefix(segs[0], "@"):
		rest = segs[1:]
	case segs[0] == "c" || segs[0] == "channel" || segs[0] == "user":
		if len(segs) < 2 {
			return "", false
		}
		rest = segs[2:]
	default:
		return "", false
	}

	if len(rest) == 0 {
		return "", true
	}
	return rest[0], true
}

// splitPath splits a URL path into its non-empty segments.
func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// firstPathSegment returns the first non-empty segment of a URL path.
func firstPathSegment(p string) string {
	segs := splitPath(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}
