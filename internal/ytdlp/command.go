package ytdlp

import (
	"path/filepath"
	"strconv"
)

// Options carries the tunable parts of the yt-dlp invocation and the retry
// policy around it. Zero values are not valid; fill every field from the
// resolved downloader config.
type Options struct {
	MaxRetries       int    // additional attempts after the first
	MaxHeight        int    // format resolution ceiling
	SubtitleLangs    string // language-pattern allow-list, e.g. "en.*,zh.*"
	SocketTimeoutSec int
	FragmentRetries  int
}

// BuildArgs assembles the fixed argument contract for one download. The
// flag set is a contract the executable must honor: highest resolution up to
// the ceiling, matching subtitle tracks plus auto captions, thumbnail, the
// machine-readable info JSON sidecar, resume/no-overwrite, newline-delimited
// progress, and bounded per-attempt network behavior.
func BuildArgs(videoURL, dir string, opt Options) []string {
	return []string{
		videoURL,

		// Output layout.
		"--output", filepath.Join(dir, "%(title)s.%(ext)s"),

		// Quality ceiling.
		"--format", "best[height<=?" + strconv.Itoa(opt.MaxHeight) + "]",

		// Subtitles, captions, thumbnail.
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", opt.SubtitleLangs,
		"--write-thumbnail",

		// Metadata sidecars.
		"--write-info-json",
		"--write-description",

		// Resumability.
		"--continue",
		"--no-overwrites",
		"--part",

		// Progress stream: one update per line.
		"--newline",
		"--progress",

		// Internal retries and network bounds, delegated to the executable.
		"--retries", strconv.Itoa(opt.FragmentRetries),
		"--fragment-retries", strconv.Itoa(opt.FragmentRetries),
		"--socket-timeout", strconv.Itoa(opt.SocketTimeoutSec),
	}
}
