// Package config manages application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration for transcript downloads.
type Config struct {
	// OutputPath is the CSV file videos are appended to.
	OutputPath string `json:"output_path"`

	// YtdlpPath is the path to the yt-dlp executable (default: "yt-dlp")
	YtdlpPath string `json:"ytdlp_path"`
	// YtdlpTimeout is the maximum time to wait for a single yt-dlp invocation
	YtdlpTimeout time.Duration `json:"ytdlp_timeout"`

	// TranscriptLang is the caption language requested from the timedtext endpoint
	TranscriptLang string `json:"transcript_lang"`
	// TranscriptBaseURL overrides the timedtext endpoint (empty = YouTube's)
	TranscriptBaseURL string `json:"transcript_base_url"`

	// APIKey enables Data API enumeration when set; yt-dlp remains the fallback
	APIKey string `json:"api_key"`
	// APIQuotaReserve is the number of quota units to leave unspent
	APIQuotaReserve int `json:"api_quota_reserve"`

	// RequestTimeout bounds a single HTTP request
	RequestTimeout time.Duration `json:"request_timeout"`
	// RequestsPerSecond throttles transcript fetches (0 = unlimited)
	RequestsPerSecond float64 `json:"requests_per_second"`
	// UserAgent overrides the HTTP User-Agent header (empty = client default)
	UserAgent string `json:"user_agent"`

	// MaxRetries is the maximum number of retries for failed operations
	MaxRetries int `json:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `json:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `json:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `json:"backoff_multiplier"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputPath:        "videos.csv",
		YtdlpPath:         "yt-dlp",
		YtdlpTimeout:      10 * time.Minute,
		TranscriptLang:    "en",
		RequestTimeout:    30 * time.Second,
		RequestsPerSecond: 2.0,
		MaxRetries:        5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		LogLevel:          "info",
	}
}

// Load loads configuration from environment variables, config file, and
// applies defaults. Priority: env vars > config file > defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// the default locations; a missing explicit file is an error.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from yt-dlp-transcripts.json in the
// current directory or the user config directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"yt-dlp-transcripts.json",
		filepath.Join(os.Getenv("HOME"), ".config", "yt-dlp-transcripts", "yt-dlp-transcripts.json"),
	}

	for _, path := range paths {
		err := c.mergeFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		return nil
	}

	return os.ErrNotExist
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("YTT_OUTPUT_PATH"); v != "" {
		c.OutputPath = v
	}
	if v := os.Getenv("YTT_YTDLP_PATH"); v != "" {
		c.YtdlpPath = v
	}
	if v := os.Getenv("YTT_YTDLP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.YtdlpTimeout = d
		}
	}
	if v := os.Getenv("YTT_TRANSCRIPT_LANG"); v != "" {
		c.TranscriptLang = v
	}
	if v := os.Getenv("YTT_TRANSCRIPT_BASE_URL"); v != "" {
		c.TranscriptBaseURL = v
	}
	if v := os.Getenv("YTT_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("YTT_API_QUOTA_RESERVE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.APIQuotaReserve = n
		}
	}
	if v := os.Getenv("YTT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("YTT_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("YTT_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("YTT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("YTT_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := os.Getenv("YTT_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
	if v := os.Getenv("YTT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.OutputPath == "" {
		return fmt.Errorf("output_path must not be empty")
	}
	if c.YtdlpPath == "" {
		return fmt.Errorf("ytdlp_path must not be empty")
	}
	if c.YtdlpTimeout <= 0 {
		return fmt.Errorf("ytdlp_timeout must be positive")
	}
	if c.TranscriptLang == "" {
		return fmt.Errorf("transcript_lang must not be empty")
	}
	if c.APIQuotaReserve < 0 {
		return fmt.Errorf("api_quota_reserve must be non-negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff <= 0 {
		return fmt.Errorf("max_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level. Validate catches unknown
// values; here they fall back to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
}
