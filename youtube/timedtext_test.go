package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpclient "github.com/LinuxIsCool/yt-dlp-transcripts/http"
)

func newTranscriptTestClient(t *testing.T, handler http.HandlerFunc) *TranscriptClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := httpclient.New(&httpclient.Config{
		Timeout: 5 * time.Second,
		Retry:   *fastRetry(),
	})
	t.Cleanup(func() { client.Close() })

	return &TranscriptClient{HTTP: client, BaseURL: server.URL}
}

func TestFetchTranscript(t *testing.T) {
	tc := newTranscriptTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[{"segs":[{"utf8":"Hello"}]},{"segs":[{"utf8":"World"}]}]}`))
	})

	got, err := tc.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if got != "Hello World" {
		t.Errorf("FetchTranscript() = %q, want %q", got, "Hello World")
	}
}

func TestFetchTranscript_CollapsesWhitespace(t *testing.T) {
	tc := newTranscriptTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[
			{"segs":[{"utf8":"first"},{"utf8":" line\n"}]},
			{"segs":[{"utf8":"\n"}]},
			{"segs":[{"utf8":"  second   part  "}]}
		]}`))
	})

	got, err := tc.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if got != "first line second part" {
		t.Errorf("FetchTranscript() = %q, want %q", got, "first line second part")
	}
}

func TestFetchTranscript_QueryParams(t *testing.T) {
	var gotQuery map[string]string
	tc := newTranscriptTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"v":    r.URL.Query().Get("v"),
			"lang": r.URL.Query().Get("lang"),
			"fmt":  r.URL.Query().Get("fmt"),
		}
		w.Write([]byte(`{"events":[{"segs":[{"utf8":"hola"}]}]}`))
	})
	tc.Lang = "es"

	if _, err := tc.FetchTranscript(context.Background(), "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}

	if gotQuery["v"] != "dQw4w9WgXcQ" {
		t.Errorf("v = %q, want video ID", gotQuery["v"])
	}
	if gotQuery["lang"] != "es" {
		t.Errorf("lang = %q, want %q", gotQuery["lang"], "es")
	}
	if gotQuery["fmt"] != "json3" {
		t.Errorf("fmt = %q, want %q", gotQuery["fmt"], "json3")
	}
}

func TestFetchTranscript_NoCaptions(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "403 region restricted",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "200 with empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
		{
			name: "200 with no text events",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"events":[{"tStartMs":0}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTranscriptTestClient(t, tt.handler)

			_, err := tc.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
			if !errors.Is(err, ErrNoTranscript) {
				t.Errorf("FetchTranscript() error = %v, want ErrNoTranscript", err)
			}

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected FetchError, got %T", err)
			}
			if fetchErr.Op != "transcript" {
				t.Errorf("FetchError.Op = %q, want %q", fetchErr.Op, "transcript")
			}
		})
	}
}

func TestFetchTranscript_RateLimited(t *testing.T) {
	tc := newTranscriptTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := tc.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("FetchTranscript() error = %v, want ErrRateLimited", err)
	}
}

func TestFetchTranscript_MalformedJSON(t *testing.T) {
	tc := newTranscriptTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events": [`))
	})

	_, err := tc.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("FetchTranscript() error = nil, want parse error")
	}
	if errors.Is(err, ErrNoTranscript) {
		t.Error("malformed payload misreported as missing transcript")
	}
}

func TestFetchTranscript_EmptyVideoID(t *testing.T) {
	tc := NewTranscriptClient(nil)
	_, err := tc.FetchTranscript(context.Background(), "")
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("FetchTranscript(\"\") error = %v, want ErrInvalidURL", err)
	}
}

func TestJoinFragments(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{
			name:      "two words",
			fragments: []string{"Hello", "World"},
			want:      "Hello World",
		},
		{
			name:      "empty list",
			fragments: nil,
			want:      "",
		},
		{
			name:      "internal newlines collapse",
			fragments: []string{"line one\nline two", "next"},
			want:      "line one line two next",
		},
		{
			name:      "blank fragments vanish",
			fragments: []string{"a", "", "   ", "b"},
			want:      "a b",
		},
		{
			name:      "surrounding whitespace trimmed",
			fragments: []string{"  padded  "},
			want:      "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinFragments(tt.fragments); got != tt.want {
				t.Errorf("JoinFragments(%q) = %q, want %q", tt.fragments, got, tt.want)
			}
		})
	}
}
