package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Validate checks the semantic correctness of a parsed Config. Configuration
// errors are fatal: a bad playlist reference or an unwritable archive root
// must abort before any playlist is processed.
func Validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Playlists))

	for i := range cfg.Playlists {
		pl := &cfg.Playlists[i]

		if pl.Name == "" {
			return fmt.Errorf("playlist %d: name is required", i)
		}

		if seen[pl.Name] {
			return fmt.Errorf("playlist %q: duplicate name", pl.Name)
		}

		seen[pl.Name] = true

		if err := validatePlaylistURL(pl.URL); err != nil {
			return fmt.Errorf("playlist %q: %w", pl.Name, err)
		}

		if pl.ArchiveDir == "" {
			return fmt.Errorf("playlist %q: archive_dir is required", pl.Name)
		}

		if err := ensureArchiveDir(pl.ArchiveDir); err != nil {
			return fmt.Errorf("playlist %q: %w", pl.Name, err)
		}
	}

	if cfg.Downloader.MaxRetries < 0 {
		return fmt.Errorf("downloader.max_retries must be >= 0, got %d", cfg.Downloader.MaxRetries)
	}

	if cfg.Downloader.MaxHeight <= 0 {
		return fmt.Errorf("downloader.max_height must be > 0, got %d", cfg.Downloader.MaxHeight)
	}

	if cfg.Downloader.SocketTimeoutSec <= 0 {
		return fmt.Errorf("downloader.socket_timeout_sec must be > 0, got %d", cfg.Downloader.SocketTimeoutSec)
	}

	if _, err := ParseWatchInterval(cfg.Watch.Interval); err != nil {
		return err
	}

	switch cfg.Logging.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.log_level must be debug, info, warn, or error, got %q", cfg.Logging.LogLevel)
	}

	return nil
}

// ParseWatchInterval parses the watch.interval duration and enforces the
// one-second floor. Sub-second polling would hammer the remote API.
func ParseWatchInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("watch.interval %q: %w", s, err)
	}

	if d < time.Second {
		return 0, fmt.Errorf("watch.interval must be at least 1s, got %s", d)
	}

	return d, nil
}

// validatePlaylistURL accepts only canonical YouTube playlist URLs carrying
// a "list" query parameter.
func validatePlaylistURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing url %q: %w", raw, err)
	}

	if u.Host != "www.youtube.com" && u.Host != "youtube.com" {
		return fmt.Errorf("url %q: host must be youtube.com", raw)
	}

	if u.Path != "/playlist" {
		return fmt.Errorf("url %q: path must be /playlist", raw)
	}

	if u.Query().Get("list") == "" {
		return fmt.Errorf("url %q: missing list parameter", raw)
	}

	return nil
}

// ensureArchiveDir creates the archive root (with parents) and verifies it is
// a writable directory. Creation at validation time keeps the invariant that
// the root exists before any item is processed.
func ensureArchiveDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating archive dir %s: %w", dir, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat archive dir %s: %w", dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("archive dir %s is not a directory", dir)
	}

	return nil
}
