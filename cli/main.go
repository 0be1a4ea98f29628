// Command yt-dlp-transcripts downloads YouTube video metadata and
// transcripts into a CSV archive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/LinuxIsCool/yt-dlp-transcripts/config"
	httpclient "github.com/LinuxIsCool/yt-dlp-transcripts/http"
	"github.com/LinuxIsCool/yt-dlp-transcripts/internal/retry"
	"github.com/LinuxIsCool/yt-dlp-transcripts/storage"
	"github.com/LinuxIsCool/yt-dlp-transcripts/youtube"
)

const supportedFormats = `Supported URL formats:
  - Video: https://www.youtube.com/watch?v=VIDEO_ID
  - Video: https://youtu.be/VIDEO_ID
  - Playlist: https://www.youtube.com/playlist?list=PLAYLIST_ID
  - Channel videos: https://www.youtube.com/@channel/videos
  - Channel playlists: https://www.youtube.com/@channel/playlists
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	url        string
	output     string
	configPath string
	lang       string
	ytdlpPath  string
	apiKey     string
	timeout    time.Duration
	verbose    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("yt-dlp-transcripts", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.url, "u", "", "YouTube video, playlist, or channel URL (required)")
	fs.StringVar(&opts.url, "url", "", "YouTube video, playlist, or channel URL (required)")
	fs.StringVar(&opts.output, "o", "", "output CSV file (default \"videos.csv\")")
	fs.StringVar(&opts.output, "output", "", "output CSV file (default \"videos.csv\")")
	fs.StringVar(&opts.configPath, "config", "", "config file path")
	fs.StringVar(&opts.lang, "lang", "", "transcript language code (default \"en\")")
	fs.StringVar(&opts.ytdlpPath, "ytdlp-path", "", "path to the yt-dlp executable")
	fs.StringVar(&opts.apiKey, "api-key", "", "YouTube Data API key for faster channel and playlist listing")
	fs.DurationVar(&opts.timeout, "timeout", 0, "yt-dlp operation timeout (default 10m)")
	fs.BoolVar(&opts.verbose, "v", false, "enable debug logging")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.url == "" {
		fmt.Fprintf(stderr, "Error: missing required option -u/--url\n\n")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(&opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	kind := youtube.DetectURLKind(opts.url)
	if kind == youtube.KindUnknown {
		fmt.Fprintf(stderr, "Error: Could not determine URL type for: %s\n\n%s", opts.url, supportedFormats)
		return 1
	}
	fmt.Fprintf(stdout, "Detected URL type: %s\n", kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code, err := process(ctx, cfg, logger, kind, opts.url, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, youtube.ErrYtdlpNotInstalled) {
			fmt.Fprintf(stderr, "Install yt-dlp and make sure it is on PATH, or point --ytdlp-path at it.\n")
		}
	}
	return code
}

// loadConfig loads the configuration and applies command line overrides.
func loadConfig(opts *options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.output != "" {
		cfg.OutputPath = opts.output
	}
	if opts.lang != "" {
		cfg.TranscriptLang = opts.lang
	}
	if opts.ytdlpPath != "" {
		cfg.YtdlpPath = opts.ytdlpPath
	}
	if opts.apiKey != "" {
		cfg.APIKey = opts.apiKey
	}
	if opts.timeout > 0 {
		cfg.YtdlpTimeout = opts.timeout
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// process wires the pipeline together and dispatches on the URL kind.
func process(ctx context.Context, cfg *config.Config, logger *slog.Logger, kind youtube.URLKind, rawURL string, stdout io.Writer) (int, error) {
	store, err := storage.OpenCSVStore(cfg.OutputPath)
	if err != nil {
		return 1, fmt.Errorf("open %s: %w", cfg.OutputPath, err)
	}
	defer store.Close()

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries
	retryCfg.InitialBackoff = cfg.InitialBackoff
	retryCfg.MaxBackoff = cfg.MaxBackoff
	retryCfg.Multiplier = cfg.BackoffMultiplier

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.RequestTimeout
	httpCfg.Retry = retryCfg
	httpCfg.RequestsPerSecond = cfg.RequestsPerSecond
	if cfg.UserAgent != "" {
		httpCfg.UserAgent = cfg.UserAgent
	}
	client := httpclient.New(httpCfg)
	defer client.Close()

	transcripts := youtube.NewTranscriptClient(client)
	transcripts.Lang = cfg.TranscriptLang
	transcripts.BaseURL = cfg.TranscriptBaseURL

	ytdlp := youtube.NewYtdlpClient()
	ytdlp.Path = cfg.YtdlpPath
	ytdlp.Timeout = cfg.YtdlpTimeout
	ytdlp.Retry = &retryCfg
	ytdlp.Logger = logger

	if err := ytdlp.CheckInstalled(ctx); err != nil {
		return 1, err
	}

	var lister youtube.Lister = ytdlp
	if cfg.APIKey != "" {
		api, err := youtube.NewAPILister(ctx, cfg.APIKey, cfg.APIQuotaReserve)
		if err != nil {
			return 1, fmt.Errorf("create api lister: %w", err)
		}
		api.Retry = &retryCfg
		api.Logger = logger
		api.SetFallback(ytdlp)
		lister = api
	}

	proc := &youtube.Processor{
		Fetcher: &youtube.Fetcher{
			Metadata:    ytdlp,
			Transcripts: transcripts,
			Logger:      logger,
		},
		Lister: lister,
		Store:  store,
		Logger: logger,
	}

	var rep *youtube.Report
	switch kind {
	case youtube.KindVideo:
		rep, err = proc.ProcessVideo(ctx, rawURL)
	case youtube.KindPlaylist:
		rep, err = proc.ProcessPlaylist(ctx, rawURL)
	case youtube.KindChannelVideos:
		rep, err = proc.ProcessChannel(ctx, rawURL, youtube.TabVideos)
	case youtube.KindChannelPlaylists:
		rep, err = proc.ProcessChannel(ctx, rawURL, youtube.TabPlaylists)
	default:
		return 1, fmt.Errorf("%w: %s", youtube.ErrInvalidURL, rawURL)
	}

	if rep != nil {
		printReport(stdout, rep, cfg.OutputPath)
	}
	if err != nil {
		return 1, err
	}
	if err := store.Close(); err != nil {
		return 1, fmt.Errorf("close %s: %w", cfg.OutputPath, err)
	}
	return 0, nil
}

func printReport(w io.Writer, rep *youtube.Report, outputPath string) {
	fmt.Fprintf(w, "Done in %s: %d processed, %d skipped, %d failed (output: %s)\n",
		rep.Elapsed.Round(time.Millisecond), rep.Processed, rep.Skipped, len(rep.Failed), outputPath)
	for _, f := range rep.Failed {
		fmt.Fprintf(w, "  failed: %s: %v\n", f.URL, f.Err)
	}
}

func printUsage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, `yt-dlp-transcripts - Download YouTube content information and save it to CSV

Fetches video metadata with yt-dlp and transcripts from YouTube's timedtext
endpoint, then appends one row per video to the output CSV. Videos already in
the CSV are skipped, so interrupted runs can be resumed.

Usage:
  yt-dlp-transcripts -u <youtube-url> [flags]

Flags:
`)
	fs.PrintDefaults()
	fmt.Fprintf(w, "\n%s", supportedFormats)
}
