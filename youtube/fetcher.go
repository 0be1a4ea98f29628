package youtube

import (
	"context"
	"errors"
	"log/slog"
)

// Fetcher combines metadata and transcript fetching into the VideoFetcher
// used by the processor. Metadata failure is the video's failure; a
// transcript failure downgrades to an empty Transcript field so one missing
// caption track never aborts a batch.
type Fetcher struct {
	// Metadata fetches video metadata. Required.
	Metadata MetadataFetcher

	// Transcripts fetches caption tracks. Nil disables transcript
	// fetching and leaves every Transcript empty.
	Transcripts TranscriptFetcher

	// Logger receives transcript downgrade warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// FetchVideo fetches metadata first, then the transcript.
func (f *Fetcher) FetchVideo(ctx context.Context, videoID string) (*Video, error) {
	video, err := f.Metadata.FetchMetadata(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if f.Transcripts == nil {
		return video, nil
	}

	transcript, err := f.Transcripts.FetchTranscript(ctx, videoID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrNoTranscript) {
			f.logger().Debug("no transcript available", "video_id", videoID)
		} else {
			f.logger().Warn("transcript fetch failed, storing empty transcript",
				"video_id", videoID, "error", err)
		}
		return video, nil
	}

	video.Transcript = transcript
	return video, nil
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
