// Package transcripts archives YouTube video metadata and transcripts as CSV.
//
// It classifies YouTube URLs (video, playlist, channel videos, channel
// playlists), fetches metadata through yt-dlp and transcripts through
// YouTube's timedtext endpoint, and appends one row per video to a CSV
// file. Videos already present in the CSV are skipped, so interrupted runs
// can be resumed.
//
// Quick Start
//
// Process a playlist into a CSV file:
//
//	ctx := context.Background()
//
//	store, err := storage.OpenCSVStore("videos.csv")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	ytdlp := youtube.NewYtdlpClient()
//	transcripts := youtube.NewTranscriptClient(httpclient.New(nil))
//
//	proc := &youtube.Processor{
//		Fetcher: &youtube.Fetcher{Metadata: ytdlp, Transcripts: transcripts},
//		Lister:  ytdlp,
//		Store:   store,
//	}
//
//	rep, err := proc.ProcessPlaylist(ctx, "https://www.youtube.com/playlist?list=PLxxxx")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("processed %d, skipped %d\n", rep.Processed, rep.Skipped)
//
// Classify a URL first when the input kind is not known:
//
//	switch youtube.DetectURLKind(rawURL) {
//	case youtube.KindVideo:
//		rep, err = proc.ProcessVideo(ctx, rawURL)
//	case youtube.KindPlaylist:
//		rep, err = proc.ProcessPlaylist(ctx, rawURL)
//	}
//
// Configuration
//
// The command line tool loads settings from multiple sources:
//
//   1. Environment variables (highest priority)
//   2. Config file (yt-dlp-transcripts.json or ~/.config/yt-dlp-transcripts/yt-dlp-transcripts.json)
//   3. Default values (lowest priority)
//
// Environment variables:
//
//   - YTT_OUTPUT_PATH: Output CSV file path
//   - YTT_YTDLP_PATH: Path to yt-dlp executable
//   - YTT_YTDLP_TIMEOUT: Timeout for a single yt-dlp invocation
//   - YTT_TRANSCRIPT_LANG: Caption language code
//   - YTT_TRANSCRIPT_BASE_URL: Timedtext endpoint override
//   - YTT_API_KEY: YouTube Data API key for channel and playlist listing
//   - YTT_API_QUOTA_RESERVE: Data API quota units to leave unspent
//   - YTT_REQUEST_TIMEOUT: Timeout for a single HTTP request
//   - YTT_REQUESTS_PER_SECOND: Transcript request rate limit
//   - YTT_USER_AGENT: HTTP User-Agent override
//   - YTT_MAX_RETRIES: Maximum retry attempts
//   - YTT_INITIAL_BACKOFF: Initial retry backoff duration
//   - YTT_MAX_BACKOFF: Maximum retry backoff duration
//   - YTT_LOG_LEVEL: One of debug, info, warn, error
//
// Error Handling
//
// All operations return errors that support the standard patterns.
//
// Checking for sentinel errors:
//
//	if errors.Is(err, transcripts.ErrVideoNotFound) {
//		fmt.Println("video not found")
//	}
//
// Extracting wrapped error details:
//
//	var fetchErr *transcripts.FetchError
//	if errors.As(err, &fetchErr) {
//		fmt.Printf("fetching %s failed during %s: %v\n", fetchErr.VideoID, fetchErr.Op, fetchErr.Err)
//	}
//
// Sub-packages
//
// For more control, use the sub-packages directly:
//
//   - youtube: URL classification, metadata, transcripts, and enumeration
//   - storage: CSV persistence with resume support
//   - config: Configuration management
//   - http: Rate limited HTTP client with retries
//
// Dependencies
//
// Metadata fetching requires yt-dlp to be installed and available in PATH
// or specified via YTT_YTDLP_PATH.
//
// Install yt-dlp: https://github.com/yt-dlp/yt-dlp
//
package transcripts
