// Package config implements TOML configuration loading, validation, and the
// override chain (defaults -> config file -> environment -> CLI flags) for
// ytarchiver. Playlists are declared as an array of [[playlist]] tables; the
// remaining sections tune the downloader, watch mode, history ledger, and
// logging.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Playlists  []Playlist       `toml:"playlist"`
	Auth       AuthConfig       `toml:"auth"`
	Downloader DownloaderConfig `toml:"downloader"`
	Watch      WatchConfig      `toml:"watch"`
	History    HistoryConfig    `toml:"history"`
	Logging    LoggingConfig    `toml:"logging"`
}

// Playlist describes one remote playlist to mirror and where its archived
// items land locally. The archive directory is created during validation so
// a cycle never starts against a missing root.
type Playlist struct {
	Name       string `toml:"name"`
	URL        string `toml:"url"`
	ArchiveDir string `toml:"archive_dir"`
}

// AuthConfig holds OAuth2 client credentials and the token file location.
// ClientID/ClientSecret come from a Google Cloud "Desktop app" OAuth client;
// the token file stores the refreshable token with owner-only permissions.
type AuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenFile    string `toml:"token_file"`
}

// DownloaderConfig tunes the yt-dlp invocation and the retry policy around it.
// MaxRetries counts additional attempts after the first; the per-attempt
// network behavior (socket timeout, fragment retries) is delegated to yt-dlp.
type DownloaderConfig struct {
	Binary           string `toml:"binary"`
	MaxRetries       int    `toml:"max_retries"`
	MaxHeight        int    `toml:"max_height"`
	SubtitleLangs    string `toml:"subtitle_langs"`
	SocketTimeoutSec int    `toml:"socket_timeout_sec"`
	FragmentRetries  int    `toml:"fragment_retries"`
}

// WatchConfig controls continuous mode: how long to sleep between cycles and
// whether the config file is watched for playlist changes.
type WatchConfig struct {
	Interval     string `toml:"interval"`
	ReloadConfig bool   `toml:"reload_config"`
}

// HistoryConfig locates the SQLite cycle ledger. An empty path disables
// history recording entirely.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	TokenFile  string // --token-file flag
	MaxRetries *int   // --max-retries flag
}
