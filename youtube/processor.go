package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/LinuxIsCool/yt-dlp-transcripts/storage"
)

// Processor turns a classified URL into stored records: it enumerates the
// videos behind the URL, fetches each one, and appends it to the store.
// Processing is strictly sequential; one video is fully fetched and written
// before the next starts, so an interrupted run leaves a resumable file.
type Processor struct {
	// Fetcher produces complete videos from IDs. Required.
	Fetcher VideoFetcher

	// Lister enumerates playlists and channels. Required for the playlist
	// and channel operations.
	Lister Lister

	// Store receives one record per processed video. Required.
	Store storage.RecordStore

	// Logger receives per-video progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Report summarizes one processing run.
type Report struct {
	// RunID correlates log lines belonging to one run.
	RunID string

	// Kind is the URL kind the run was dispatched as.
	Kind URLKind

	// Processed counts videos fetched and appended this run.
	Processed int

	// Skipped counts videos already present in the store.
	Skipped int

	// Failed lists the videos (or playlists) that could not be processed.
	Failed []VideoFailure

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// VideoFailure records one failed item within a batch.
type VideoFailure struct {
	// VideoID is empty when a whole playlist failed to enumerate.
	VideoID string
	URL     string
	Err     error
}

// ProcessVideo handles a single-video URL. An already stored video is
// skipped without invoking the fetcher; a fetch or append failure is the
// operation's failure.
func (p *Processor) ProcessVideo(ctx context.Context, rawURL string) (*Report, error) {
	rep := newReport(KindVideo)
	defer rep.start()()

	videoID, ok := ExtractVideoID(rawURL)
	if !ok {
		return rep, fmt.Errorf("%w: no video ID in %q", ErrInvalidURL, rawURL)
	}

	if err := p.processOne(ctx, rep, videoID); err != nil {
		rep.Failed = append(rep.Failed, VideoFailure{VideoID: videoID, URL: rawURL, Err: err})
		return rep, err
	}
	return rep, nil
}

// ProcessPlaylist enumerates a playlist and processes every member. A
// failing video is recorded in the report and the batch continues;
// enumeration failure fails the whole operation.
func (p *Processor) ProcessPlaylist(ctx context.Context, playlistURL string) (*Report, error) {
	rep := newReport(KindPlaylist)
	defer rep.start()()

	refs, err := p.Lister.ListPlaylist(ctx, playlistURL)
	if err != nil {
		return rep, err
	}
	p.logger().Info("playlist enumerated", "run_id", rep.RunID, "url", playlistURL, "videos", len(refs))

	if err := p.processRefs(ctx, rep, refs); err != nil {
		return rep, err
	}
	return rep, nil
}

// ProcessChannel handles a channel URL. TabVideos walks the channel's
// uploads; TabPlaylists walks every video of every public playlist,
// aggregated into one report. A playlist that fails to enumerate is
// recorded as failed and the remaining playlists continue.
func (p *Processor) ProcessChannel(ctx context.Context, channelURL string, tab ChannelTab) (*Report, error) {
	if tab == TabPlaylists {
		return p.processChannelPlaylists(ctx, channelURL)
	}

	rep := newReport(KindChannelVideos)
	defer rep.start()()

	refs, err := p.Lister.ListChannel(ctx, channelURL, TabVideos)
	if err != nil {
		return rep, err
	}
	p.logger().Info("channel enumerated", "run_id", rep.RunID, "url", channelURL, "videos", len(refs))

	if err := p.processRefs(ctx, rep, refs); err != nil {
		return rep, err
	}
	return rep, nil
}

func (p *Processor) processChannelPlaylists(ctx context.Context, channelURL string) (*Report, error) {
	rep := newReport(KindChannelPlaylists)
	defer rep.start()()

	playlists, err := p.Lister.ListChannelPlaylists(ctx, channelURL)
	if err != nil {
		return rep, err
	}
	p.logger().Info("channel playlists enumerated",
		"run_id", rep.RunID, "url", channelURL, "playlists", len(playlists))

	for _, pl := range playlists {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		refs, err := p.Lister.ListPlaylist(ctx, pl.PlaylistURL())
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			p.logger().Warn("playlist enumeration failed",
				"run_id", rep.RunID, "playlist", pl.PlaylistURL(), "error", err)
			rep.Failed = append(rep.Failed, VideoFailure{URL: pl.PlaylistURL(), Err: err})
			continue
		}
		p.logger().Info("playlist enumerated",
			"run_id", rep.RunID, "url", pl.PlaylistURL(), "videos", len(refs))

		if err := p.processRefs(ctx, rep, refs); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// processRefs runs the per-video path over a batch with partial-failure
// semantics. Only context cancellation aborts the batch.
func (p *Processor) processRefs(ctx context.Context, rep *Report, refs []VideoRef) error {
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.processOne(ctx, rep, ref.ID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger().Warn("video failed",
				"run_id", rep.RunID, "video_id", ref.ID, "error", err)
			rep.Failed = append(rep.Failed, VideoFailure{VideoID: ref.ID, URL: ref.WatchURL(), Err: err})
		}
	}
	return nil
}

// processOne fetches and stores a single video. Videos already in the
// store are skipped before the fetcher is ever invoked, which is what makes
// reruns against the same output file cheap.
func (p *Processor) processOne(ctx context.Context, rep *Report, videoID string) error {
	log := p.logger().With("run_id", rep.RunID, "video_id", videoID)

	exists, err := p.Store.Has(ctx, videoID)
	if err != nil {
		return err
	}
	if exists {
		rep.Skipped++
		log.Info("already stored, skipping")
		return nil
	}

	video, err := p.Fetcher.FetchVideo(ctx, videoID)
	if err != nil {
		return err
	}

	if err := p.Store.Append(ctx, recordFromVideo(video)); err != nil {
		// The fetcher may canonicalize the ID to one already stored.
		if errors.Is(err, storage.ErrAlreadyExists) {
			rep.Skipped++
			return nil
		}
		return err
	}

	rep.Processed++
	log.Info("stored video", "title", video.Title)
	return nil
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// recordFromVideo converts a fetched video into its stored form.
func recordFromVideo(v *Video) *storage.Record {
	return &storage.Record{
		VideoID:     v.ID,
		Title:       v.Title,
		URL:         v.URL,
		Description: v.Description,
		Transcript:  v.Transcript,
		UploadDate:  v.UploadDate,
		Duration:    v.Duration,
		ViewCount:   v.ViewCount,
		Channel:     v.Channel,
		ChannelID:   v.ChannelID,
	}
}

func newReport(kind URLKind) *Report {
	return &Report{RunID: uuid.NewString(), Kind: kind}
}

// start begins timing the run; the returned func stamps Elapsed.
func (r *Report) start() func() {
	began := time.Now()
	return func() { r.Elapsed = time.Since(began) }
}
