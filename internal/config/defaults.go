package config

import (
	"os"
	"path/filepath"
)

// Default values for configuration options. These are "layer 0" of the
// override chain and match what yt-dlp itself considers safe: a 4K format
// ceiling, English and Chinese subtitle families, and bounded retries.
const (
	defaultBinary           = "yt-dlp"
	defaultMaxRetries       = 3
	defaultMaxHeight        = 2160
	defaultSubtitleLangs    = "en.*,zh.*"
	defaultSocketTimeoutSec = 30
	defaultFragmentRetries  = 3
	defaultWatchInterval    = "1h"
	defaultLogLevel         = "info"
)

// DefaultConfig returns a Config populated with all default values. Used both
// as the starting point for TOML decoding (so unset fields keep defaults) and
// as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			TokenFile: DefaultTokenPath(),
		},
		Downloader: DownloaderConfig{
			Binary:           defaultBinary,
			MaxRetries:       defaultMaxRetries,
			MaxHeight:        defaultMaxHeight,
			SubtitleLangs:    defaultSubtitleLangs,
			SocketTimeoutSec: defaultSocketTimeoutSec,
			FragmentRetries:  defaultFragmentRetries,
		},
		Watch: WatchConfig{
			Interval:     defaultWatchInterval,
			ReloadConfig: true,
		},
		History: HistoryConfig{
			Path: DefaultHistoryPath(),
		},
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
	}
}

// DefaultConfigPath returns the platform default config file location,
// following the XDG convention the same way the rest of the tool does.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.toml")
}

// DefaultTokenPath returns the default OAuth token file location.
func DefaultTokenPath() string {
	return filepath.Join(configDir(), "token.json")
}

// DefaultHistoryPath returns the default cycle ledger database location.
func DefaultHistoryPath() string {
	return filepath.Join(configDir(), "history.db")
}

// configDir resolves the ytarchiver configuration directory. Honors
// XDG_CONFIG_HOME, falling back to ~/.config.
func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ytarchiver")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// Last resort: relative to the working directory.
		return ".ytarchiver"
	}

	return filepath.Join(home, ".config", "ytarchiver")
}
