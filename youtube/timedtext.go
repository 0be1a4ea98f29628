package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	httpclient "github.com/LinuxIsCool/yt-dlp-transcripts/http"
)

const (
	defaultTimedtextBaseURL = "https://www.youtube.com/api/timedtext"
	defaultTranscriptLang   = "en"
)

// TranscriptClient fetches caption tracks from YouTube's timedtext API in
// json3 format. It implements TranscriptFetcher.
type TranscriptClient struct {
	// HTTP is the client used for timedtext requests.
	HTTP *httpclient.Client

	// BaseURL overrides the timedtext endpoint. Defaults to the public
	// YouTube API; tests point it at a local server.
	BaseURL string

	// Lang is the caption language code to request. Defaults to "en".
	Lang string
}

// NewTranscriptClient creates a transcript client on top of the given HTTP
// client.
func NewTranscriptClient(client *httpclient.Client) *TranscriptClient {
	return &TranscriptClient{HTTP: client}
}

// timedtextResponse is the json3 timedtext payload, reduced to the caption
// text. Timing data is not persisted by this tool.
type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	Segs []timedtextSegment `json:"segs"`
}

type timedtextSegment struct {
	UTF8 string `json:"utf8"`
}

// FetchTranscript fetches the caption track and flattens it to a single
// string with fragments joined by single spaces. Returns ErrNoTranscript
// when the video has no captions in the configured language.
func (tc *TranscriptClient) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	fragments, err := tc.FetchFragments(ctx, videoID)
	if err != nil {
		return "", err
	}
	return JoinFragments(fragments), nil
}

// FetchFragments fetches the caption track and returns the raw text
// fragments in track order.
func (tc *TranscriptClient) FetchFragments(ctx context.Context, videoID string) ([]string, error) {
	if videoID == "" {
		return nil, &FetchError{VideoID: videoID, Op: "transcript", Err: ErrInvalidURL}
	}

	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", tc.lang())
	params.Set("fmt", "json3")

	resp, err := tc.HTTP.Get(ctx, tc.baseURL()+"?"+params.Encode())
	if err != nil {
		return nil, &FetchError{VideoID: videoID, Op: "transcript", Err: classifyTranscriptError(err)}
	}

	// YouTube answers 200 with an empty body when the video has no
	// caption track in the requested language.
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, &FetchError{VideoID: videoID, Op: "transcript", Err: ErrNoTranscript}
	}

	var parsed timedtextResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, &FetchError{VideoID: videoID, Op: "transcript",
			Err: fmt.Errorf("parse timedtext response: %w", err)}
	}

	var fragments []string
	for _, event := range parsed.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.UTF8)
		}
		if strings.TrimSpace(text.String()) == "" {
			continue
		}
		fragments = append(fragments, text.String())
	}

	if len(fragments) == 0 {
		return nil, &FetchError{VideoID: videoID, Op: "transcript", Err: ErrNoTranscript}
	}
	return fragments, nil
}

func (tc *TranscriptClient) baseURL() string {
	if tc.BaseURL != "" {
		return tc.BaseURL
	}
	return defaultTimedtextBaseURL
}

func (tc *TranscriptClient) lang() string {
	if tc.Lang != "" {
		return tc.Lang
	}
	return defaultTranscriptLang
}

// classifyTranscriptError maps HTTP failures to sentinel errors. Missing or
// restricted caption tracks answer 404/403; both mean no transcript.
func classifyTranscriptError(err error) error {
	var rateErr *httpclient.RateLimitError
	if errors.As(err, &rateErr) {
		return ErrRateLimited
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case 404, 403:
			return ErrNoTranscript
		}
	}
	return err
}

// JoinFragments flattens transcript fragments into one line: fragments are
// joined with single spaces and any internal runs of whitespace (including
// newlines from the caption track) collapse to one space. An empty fragment
// list joins to "".
func JoinFragments(fragments []string) string {
	return strings.Join(strings.Fields(strings.Join(fragments, " ")), " ")
}
