package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/LinuxIsCool/yt-dlp-transcripts/internal/retry"
)

const (
	// dailyQuota is the default YouTube Data API daily quota in units.
	dailyQuota = 10000

	// apiPageSize is the PlaylistItems/Playlists page size (API maximum).
	apiPageSize = 50

	// Quota costs per call type.
	quotaCostSearch = 100
	quotaCostList   = 1
)

// APILister implements Lister on the YouTube Data API v3. Enumeration
// through the API is cheaper and far faster than yt-dlp's flat listings,
// but it burns daily quota; when the estimated quota runs out the lister
// delegates to a fallback (normally the yt-dlp client).
type APILister struct {
	service      *youtube.Service
	quotaReserve int

	mu             sync.Mutex
	estimatedQuota int
	lastQuotaReset time.Time
	quotaExhausted bool
	fallback       Lister

	// Retry holds retry behavior configuration.
	Retry *retry.Config

	// Logger receives quota accounting output. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewAPILister creates a Data API v3 lister. quotaReserve is the number of
// quota units to keep unspent before delegating to the fallback.
func NewAPILister(ctx context.Context, apiKey string, quotaReserve int) (*APILister, error) {
	if apiKey == "" {
		return nil, errors.New("youtube: api key required")
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	cfg := retry.DefaultConfig()
	return &APILister{
		service:        service,
		quotaReserve:   quotaReserve,
		estimatedQuota: dailyQuota,
		lastQuotaReset: time.Now(),
		Retry:          &cfg,
	}, nil
}

// SetFallback sets the lister used once quota is exhausted.
func (a *APILister) SetFallback(lister Lister) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fallback = lister
}

// ListPlaylist enumerates a playlist through PlaylistItems.List.
func (a *APILister) ListPlaylist(ctx context.Context, playlistURL string) ([]VideoRef, error) {
	if l := a.fallbackIfExhausted(); l != nil {
		return l.ListPlaylist(ctx, playlistURL)
	}

	playlistID, err := apiPlaylistID(playlistURL)
	if err != nil {
		return nil, &ListerError{Source: "api", Target: playlistURL, Err: err}
	}

	refs, err := a.listPlaylistItems(ctx, playlistID)
	if err != nil {
		if l := a.fallbackOnQuotaError(err); l != nil {
			return l.ListPlaylist(ctx, playlistURL)
		}
		return nil, &ListerError{Source: "api", Target: playlistURL, Err: err}
	}
	return refs, nil
}

// ListChannel enumerates a channel's uploads via its uploads playlist.
func (a *APILister) ListChannel(ctx context.Context, channelURL string, tab ChannelTab) ([]VideoRef, error) {
	if tab == TabPlaylists {
		return nil, &ListerError{Source: "api", Target: channelURL,
			Err: errors.New("playlists tab enumerates playlists, use ListChannelPlaylists")}
	}

	if l := a.fallbackIfExhausted(); l != nil {
		return l.ListChannel(ctx, channelURL, tab)
	}

	refs, err := a.listChannelUploads(ctx, channelURL)
	if err != nil {
		if l := a.fallbackOnQuotaError(err); l != nil {
			return l.ListChannel(ctx, channelURL, tab)
		}
		return nil, &ListerError{Source: "api", Target: channelURL, Err: err}
	}
	return refs, nil
}

// ListChannelPlaylists enumerates a channel's public playlists through
// Playlists.List.
func (a *APILister) ListChannelPlaylists(ctx context.Context, channelURL string) ([]PlaylistRef, error) {
	if l := a.fallbackIfExhausted(); l != nil {
		return l.ListChannelPlaylists(ctx, channelURL)
	}

	refs, err := a.listChannelPlaylists(ctx, channelURL)
	if err != nil {
		if l := a.fallbackOnQuotaError(err); l != nil {
			return l.ListChannelPlaylists(ctx, channelURL)
		}
		return nil, &ListerError{Source: "api", Target: channelURL, Err: err}
	}
	return refs, nil
}

func (a *APILister) listChannelUploads(ctx context.Context, channelURL string) ([]VideoRef, error) {
	channelID, err := a.resolveChannelID(ctx, channelURL)
	if err != nil {
		return nil, err
	}

	uploadsID, err := a.getUploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	return a.listPlaylistItems(ctx, uploadsID)
}

// listPlaylistItems pages through a playlist 50 items at a time.
func (a *APILister) listPlaylistItems(ctx context.Context, playlistID string) ([]VideoRef, error) {
	var refs []VideoRef

	pageToken := ""
	for {
		var resp *youtube.PlaylistItemListResponse
		err := retry.Do(ctx, a.retryConfig(), apiRetryable, func(ctx context.Context) error {
			r, err := a.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(apiPageSize).
				PageToken(pageToken).
				Context(ctx).
				Do()
			if err != nil {
				return mapAPIError(err, ErrPlaylistNotFound)
			}
			resp = r
			return nil
		})
		if err != nil {
			return nil, err
		}
		a.trackQuotaUsage(quotaCostList)

		for _, item := range resp.Items {
			if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
				continue
			}
			ref := VideoRef{ID: item.ContentDetails.VideoId}
			if item.Snippet != nil {
				ref.Title = item.Snippet.Title
			}
			refs = append(refs, ref)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return refs, nil
		}
	}
}

func (a *APILister) listChannelPlaylists(ctx context.Context, channelURL string) ([]PlaylistRef, error) {
	channelID, err := a.resolveChannelID(ctx, channelURL)
	if err != nil {
		return nil, err
	}

	var refs []PlaylistRef
	pageToken := ""
	for {
		var resp *youtube.PlaylistListResponse
		err := retry.Do(ctx, a.retryConfig(), apiRetryable, func(ctx context.Context) error {
			r, err := a.service.Playlists.List([]string{"snippet"}).
				ChannelId(channelID).
				MaxResults(apiPageSize).
				PageToken(pageToken).
				Context(ctx).
				Do()
			if err != nil {
				return mapAPIError(err, ErrChannelNotFound)
			}
			resp = r
			return nil
		})
		if err != nil {
			return nil, err
		}
		a.trackQuotaUsage(quotaCostList)

		for _, item := range resp.Items {
			if item.Id == "" {
				continue
			}
			ref := PlaylistRef{ID: item.Id}
			if item.Snippet != nil {
				ref.Title = item.Snippet.Title
			}
			refs = append(refs, ref)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return refs, nil
		}
	}
}

// resolveChannelID converts a channel URL, handle, or bare ID into a
// channel ID. Handles and custom URLs cost a search (100 quota units);
// /channel/ URLs and bare IDs are free.
func (a *APILister) resolveChannelID(ctx context.Context, input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if channelIDRegex.MatchString(trimmed) {
		return trimmed, nil
	}
	if h, ok := strings.CutPrefix(trimmed, "@"); ok {
		return a.searchChannel(ctx, h)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, input)
	}
	segs := splitPath(u.Path)
	if len(segs) == 0 {
		return "", fmt.Errorf("%w: cannot resolve channel from %q", ErrInvalidURL, input)
	}

	switch {
	case strings.HasPrefix(segs[0], "@"):
		return a.searchChannel(ctx, strings.TrimPrefix(segs[0], "@"))
	case segs[0] == "channel" && len(segs) > 1 && channelIDRegex.MatchString(segs[1]):
		return segs[1], nil
	case (segs[0] == "c" || segs[0] == "user") && len(segs) > 1:
		return a.searchChannel(ctx, segs[1])
	}

	return "", fmt.Errorf("%w: cannot resolve channel from %q", ErrInvalidURL, input)
}

// searchChannel resolves a handle or custom name with a channel search.
func (a *APILister) searchChannel(ctx context.Context, query string) (string, error) {
	var channelID string
	err := retry.Do(ctx, a.retryConfig(), apiRetryable, func(ctx context.Context) error {
		resp, err := a.service.Search.List([]string{"id"}).
			Q(query).
			Type("channel").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return mapAPIError(err, ErrChannelNotFound)
		}
		if len(resp.Items) == 0 || resp.Items[0].Id == nil {
			return ErrChannelNotFound
		}
		channelID = resp.Items[0].Id.ChannelId
		return nil
	})
	if err != nil {
		return "", err
	}
	a.trackQuotaUsage(quotaCostSearch)
	return channelID, nil
}

// getUploadsPlaylistID looks up the channel's uploads playlist.
func (a *APILister) getUploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	var playlistID string
	err := retry.Do(ctx, a.retryConfig(), apiRetryable, func(ctx context.Context) error {
		resp, err := a.service.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			return mapAPIError(err, ErrChannelNotFound)
		}
		if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil {
			return ErrChannelNotFound
		}
		playlistID = resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
		return nil
	})
	if err != nil {
		return "", err
	}
	a.trackQuotaUsage(quotaCostList)

	if playlistID == "" {
		return "", ErrChannelNotFound
	}
	return playlistID, nil
}

// trackQuotaUsage deducts units from the daily estimate and flips the
// exhausted flag once the reserve is reached. The estimate resets after a
// day, matching the API's rolling quota window.
func (a *APILister) trackQuotaUsage(units int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if time.Since(a.lastQuotaReset) > 24*time.Hour {
		a.estimatedQuota = dailyQuota
		a.lastQuotaReset = time.Now()
		a.quotaExhausted = false
		a.logger().Info("api quota estimate reset")
	}

	a.estimatedQuota -= units
	if a.estimatedQuota < a.quotaReserve && !a.quotaExhausted {
		a.quotaExhausted = true
		a.logger().Warn("api quota exhausted",
			"remaining", a.estimatedQuota, "reserve", a.quotaReserve)
	}
}

// EstimatedQuota returns the estimated remaining quota units.
func (a *APILister) EstimatedQuota() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.estimatedQuota
}

// QuotaExhausted reports whether the quota estimate has hit the reserve.
func (a *APILister) QuotaExhausted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quotaExhausted
}

// fallbackIfExhausted returns the fallback lister when quota is already
// exhausted and a fallback is configured, nil otherwise.
func (a *APILister) fallbackIfExhausted() Lister {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.quotaExhausted && a.fallback != nil {
		a.logger().Info("api quota exhausted, delegating to fallback lister")
		return a.fallback
	}
	return nil
}

// fallbackOnQuotaError marks the quota exhausted and returns the fallback
// lister when err is a quota rejection from the API.
func (a *APILister) fallbackOnQuotaError(err error) Lister {
	if !isQuotaError(err) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.quotaExhausted = true
	if a.fallback != nil {
		a.logger().Warn("api rejected call for quota, delegating to fallback lister", "error", err)
		return a.fallback
	}
	return nil
}

func (a *APILister) retryConfig() retry.Config {
	if a.Retry != nil {
		return *a.Retry
	}
	return retry.DefaultConfig()
}

func (a *APILister) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// apiPlaylistID accepts a playlist URL or a bare playlist ID.
func apiPlaylistID(input string) (string, error) {
	if id, ok := ExtractPlaylistID(input); ok {
		return id, nil
	}
	trimmed := strings.TrimSpace(input)
	if trimmed != "" && !strings.ContainsAny(trimmed, "/?:") {
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: no playlist ID in %q", ErrInvalidURL, input)
}

// mapAPIError converts Data API error responses to sentinels. notFound is
// the sentinel for a missing target.
func mapAPIError(err error, notFound error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNetworkTimeout
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 404:
			return notFound
		case 429:
			return ErrRateLimited
		}
	}
	return err
}

// isQuotaError reports whether the API rejected a call for quota reasons.
func isQuotaError(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == "quotaExceeded" || item.Reason == "dailyLimitExceeded" ||
			(item.Reason == "rateLimitExceeded" && gerr.Code == 403) {
			return true
		}
	}
	return false
}

// apiRetryable reports whether a Data API failure is worth another attempt.
func apiRetryable(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	switch {
	case errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrPlaylistNotFound),
		errors.Is(err, ErrInvalidURL):
		return false
	}
	if isQuotaError(err) {
		// Quota does not recover on retry timescales; let the caller
		// fall back instead.
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429 || gerr.Code >= 500
	}
	return true
}
