package youtube

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

const testChannelID = "UCdQw4w9WgXcQdQw4w9WgXcQ"

// stubLister counts calls so fallback delegation can be asserted.
type stubLister struct {
	refs      []VideoRef
	playlists []PlaylistRef
	err       error
	calls     int
}

func (s *stubLister) ListPlaylist(ctx context.Context, playlistURL string) ([]VideoRef, error) {
	s.calls++
	return s.refs, s.err
}

func (s *stubLister) ListChannel(ctx context.Context, channelURL string, tab ChannelTab) ([]VideoRef, error) {
	s.calls++
	return s.refs, s.err
}

func (s *stubLister) ListChannelPlaylists(ctx context.Context, channelURL string) ([]PlaylistRef, error) {
	s.calls++
	return s.playlists, s.err
}

func quotaError(code int, reason string) error {
	return &googleapi.Error{
		Code:   code,
		Errors: []googleapi.ErrorItem{{Reason: reason}},
	}
}

func TestNewAPILister(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{"empty key", "", true},
		{"valid key", "test-api-key-12345", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister, err := NewAPILister(context.Background(), tt.apiKey, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAPILister() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if lister.EstimatedQuota() != dailyQuota {
				t.Errorf("EstimatedQuota() = %d, want %d", lister.EstimatedQuota(), dailyQuota)
			}
			if lister.QuotaExhausted() {
				t.Error("new lister reports quota exhausted")
			}
		})
	}
}

func TestQuotaTracking(t *testing.T) {
	lister := &APILister{
		estimatedQuota: dailyQuota,
		lastQuotaReset: time.Now(),
		quotaReserve:   9000,
		Logger:         discardLogger(),
	}

	lister.trackQuotaUsage(quotaCostSearch)
	if got := lister.EstimatedQuota(); got != dailyQuota-quotaCostSearch {
		t.Fatalf("EstimatedQuota() = %d, want %d", got, dailyQuota-quotaCostSearch)
	}
	if lister.QuotaExhausted() {
		t.Fatal("quota exhausted before reaching reserve")
	}

	// Spend down to exactly the reserve. The flag trips only below it.
	lister.trackQuotaUsage(900)
	if lister.QuotaExhausted() {
		t.Fatal("quota exhausted at the reserve boundary")
	}

	lister.trackQuotaUsage(quotaCostList)
	if !lister.QuotaExhausted() {
		t.Fatal("quota not exhausted below the reserve")
	}
}

func TestQuotaResetAfterWindow(t *testing.T) {
	lister := &APILister{
		estimatedQuota: 10,
		lastQuotaReset: time.Now().Add(-25 * time.Hour),
		quotaExhausted: true,
		Logger:         discardLogger(),
	}

	lister.trackQuotaUsage(quotaCostList)

	if lister.QuotaExhausted() {
		t.Error("quota still exhausted after reset window")
	}
	if got := lister.EstimatedQuota(); got != dailyQuota-quotaCostList {
		t.Errorf("EstimatedQuota() = %d, want %d", got, dailyQuota-quotaCostList)
	}
}

func TestExhaustedQuotaDelegatesToFallback(t *testing.T) {
	stub := &stubLister{
		refs:      []VideoRef{{ID: "videoaaaaaa", Title: "From Fallback"}},
		playlists: []PlaylistRef{{ID: "PLfallback", Title: "Fallback List"}},
	}
	lister := &APILister{
		quotaExhausted: true,
		Logger:         discardLogger(),
	}
	lister.SetFallback(stub)

	ctx := context.Background()

	refs, err := lister.ListPlaylist(ctx, "https://www.youtube.com/playlist?list=PLabc")
	if err != nil {
		t.Fatalf("ListPlaylist() error = %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "videoaaaaaa" {
		t.Errorf("ListPlaylist() = %v, want fallback refs", refs)
	}

	if _, err := lister.ListChannel(ctx, "https://www.youtube.com/@chan", TabVideos); err != nil {
		t.Fatalf("ListChannel() error = %v", err)
	}

	pls, err := lister.ListChannelPlaylists(ctx, "https://www.youtube.com/@chan")
	if err != nil {
		t.Fatalf("ListChannelPlaylists() error = %v", err)
	}
	if len(pls) != 1 || pls[0].ID != "PLfallback" {
		t.Errorf("ListChannelPlaylists() = %v, want fallback playlists", pls)
	}

	if stub.calls != 3 {
		t.Errorf("fallback calls = %d, want 3", stub.calls)
	}
}

func TestListChannelRejectsPlaylistsTab(t *testing.T) {
	lister := &APILister{Logger: discardLogger()}

	_, err := lister.ListChannel(context.Background(), "https://www.youtube.com/@chan", TabPlaylists)
	if err == nil {
		t.Fatal("ListChannel(TabPlaylists) did not fail")
	}

	var lerr *ListerError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %v is not a *ListerError", err)
	}
	if lerr.Source != "api" {
		t.Errorf("ListerError.Source = %q, want %q", lerr.Source, "api")
	}
}

func TestFallbackOnQuotaError(t *testing.T) {
	stub := &stubLister{}
	lister := &APILister{fallback: stub, Logger: discardLogger()}

	if got := lister.fallbackOnQuotaError(errors.New("boom")); got != nil {
		t.Error("non-quota error triggered fallback")
	}
	if lister.QuotaExhausted() {
		t.Fatal("non-quota error marked quota exhausted")
	}

	if got := lister.fallbackOnQuotaError(quotaError(403, "quotaExceeded")); got != stub {
		t.Error("quota error did not return fallback")
	}
	if !lister.QuotaExhausted() {
		t.Error("quota error did not mark quota exhausted")
	}

	// Once exhausted, later calls short-circuit to the fallback.
	if got := lister.fallbackIfExhausted(); got != stub {
		t.Error("exhausted lister did not delegate")
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"quotaExceeded", quotaError(403, "quotaExceeded"), true},
		{"dailyLimitExceeded", quotaError(403, "dailyLimitExceeded"), true},
		{"rateLimitExceeded 403", quotaError(403, "rateLimitExceeded"), true},
		{"rateLimitExceeded 429", quotaError(429, "rateLimitExceeded"), false},
		{"other reason", quotaError(403, "forbidden"), false},
		{"wrapped", fmt.Errorf("list: %w", quotaError(403, "quotaExceeded")), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isQuotaError(tt.err); got != tt.want {
				t.Errorf("isQuotaError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"404 maps to notFound", &googleapi.Error{Code: 404}, ErrPlaylistNotFound},
		{"429 maps to rate limit", &googleapi.Error{Code: 429}, ErrRateLimited},
		{"deadline maps to timeout", context.DeadlineExceeded, ErrNetworkTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapAPIError(tt.err, ErrPlaylistNotFound)
			if !errors.Is(got, tt.want) {
				t.Errorf("mapAPIError() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("5xx passes through", func(t *testing.T) {
		in := &googleapi.Error{Code: 500}
		if got := mapAPIError(in, ErrPlaylistNotFound); got != error(in) {
			t.Errorf("mapAPIError() = %v, want original error", got)
		}
	})
}

func TestAPIRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"context canceled", context.Canceled, false},
		{"channel not found", ErrChannelNotFound, false},
		{"playlist not found", ErrPlaylistNotFound, false},
		{"invalid url", ErrInvalidURL, false},
		{"quota rejection", quotaError(403, "quotaExceeded"), false},
		{"api 429", &googleapi.Error{Code: 429}, true},
		{"api 500", &googleapi.Error{Code: 500}, true},
		{"api 503", &googleapi.Error{Code: 503}, true},
		{"api 400", &googleapi.Error{Code: 400}, false},
		{"api 404", &googleapi.Error{Code: 404}, false},
		{"network error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiRetryable(tt.err); got != tt.want {
				t.Errorf("apiRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestResolveChannelID(t *testing.T) {
	// Only forms resolvable without a search call.
	lister := &APILister{Logger: discardLogger()}
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare channel ID", testChannelID, testChannelID, false},
		{"channel URL", "https://www.youtube.com/channel/" + testChannelID, testChannelID, false},
		{"channel URL with tab", "https://www.youtube.com/channel/" + testChannelID + "/videos", testChannelID, false},
		{"root URL", "https://www.youtube.com/", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lister.resolveChannelID(ctx, tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveChannelID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("error %v is not ErrInvalidURL", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("resolveChannelID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAPIPlaylistID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"playlist URL", "https://www.youtube.com/playlist?list=PLabc123", "PLabc123", false},
		{"watch URL with list", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLxyz", "PLxyz", false},
		{"bare ID", "PLabc123", "PLabc123", false},
		{"watch URL without list", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := apiPlaylistID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("apiPlaylistID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("apiPlaylistID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
