package ytdlp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/avirta/ytarchiver/internal/archive"
)

// ErrNoSidecar is returned when no info JSON is found after a successful
// invocation. An unverifiable item must not be marked archived, so this is a
// terminal failure for the item.
var ErrNoSidecar = errors.New("ytdlp: no .info.json sidecar found")

// sidecarSuffix identifies the machine-readable metadata file yt-dlp writes
// next to the media when invoked with --write-info-json.
const sidecarSuffix = ".info.json"

// Sidecar is the parsed form of yt-dlp's info JSON: the authoritative item
// metadata plus the structured per-file download manifest.
type Sidecar struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Uploader     string   `json:"uploader"`
	UploaderID   string   `json:"uploader_id"`
	UploadDate   string   `json:"upload_date"`
	Duration     float64  `json:"duration"`
	ViewCount    int64    `json:"view_count"`
	LikeCount    int64    `json:"like_count"`
	OriginalURL  string   `json:"original_url"`
	WebpageURL   string   `json:"webpage_url"`
	Thumbnail    string   `json:"thumbnail"`
	Tags         []string `json:"tags"`
	Categories   []string `json:"categories"`
	Language     string   `json:"language"`
	AgeLimit     int      `json:"age_limit"`
	Availability string   `json:"availability"`

	RequestedDownloads []requestedDownload       `json:"requested_downloads"`
	RequestedSubtitles map[string]subtitleFile   `json:"requested_subtitles"`
	AutomaticCaptions  map[string][]subtitleFile `json:"automatic_captions"`
}

// requestedDownload is one entry of the structured download manifest.
type requestedDownload struct {
	Filepath string  `json:"filepath"`
	Ext      string  `json:"ext"`
	VCodec   string  `json:"vcodec"`
	ACodec   string  `json:"acodec"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	ABR      float64 `json:"abr"`
	Language string  `json:"language"`
}

// subtitleFile is a subtitle or caption manifest entry.
type subtitleFile struct {
	Filepath string `json:"filepath"`
	Ext      string `json:"ext"`
}

// FindSidecar locates the single info JSON in dir. Absence is surfaced as
// ErrNoSidecar, never silently tolerated.
func FindSidecar(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("ytdlp: reading %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), sidecarSuffix) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w in %s", ErrNoSidecar, dir)
}

// ParseSidecar reads and decodes an info JSON file.
func ParseSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ytdlp: reading sidecar %s: %w", path, err)
	}

	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("ytdlp: parsing sidecar %s: %w", path, err)
	}

	return &sc, nil
}

// YoutubeInfo converts the sidecar metadata into the persisted record form.
// The original_url falls back to webpage_url the way yt-dlp itself does.
func (sc *Sidecar) YoutubeInfo() archive.YoutubeInfo {
	originalURL := sc.OriginalURL
	if originalURL == "" {
		originalURL = sc.WebpageURL
	}

	return archive.YoutubeInfo{
		VideoID:      sc.ID,
		Title:        sc.Title,
		Description:  sc.Description,
		Uploader:     sc.Uploader,
		UploaderID:   sc.UploaderID,
		UploadDate:   sc.UploadDate,
		Duration:     sc.Duration,
		ViewCount:    sc.ViewCount,
		LikeCount:    sc.LikeCount,
		OriginalURL:  originalURL,
		WebpageURL:   sc.WebpageURL,
		Thumbnail:    sc.Thumbnail,
		Tags:         sc.Tags,
		Categories:   sc.Categories,
		Language:     sc.Language,
		AgeLimit:     sc.AgeLimit,
		Availability: sc.Availability,
	}
}

// BuildManifest derives the downloaded-file manifest for dir. The sidecar's
// structured manifest is authoritative; the extension-based directory scan is
// a strictly lower-fidelity fallback used only when the structured data is
// absent.
func BuildManifest(dir string, sc *Sidecar, logger *slog.Logger) archive.DownloadedFiles {
	if sc == nil || len(sc.RequestedDownloads) == 0 {
		logger.Warn("structured download manifest absent, falling back to directory scan",
			slog.String("dir", dir))
		return legacyScan(dir, logger)
	}

	var manifest archive.DownloadedFiles

	for _, dl := range sc.RequestedDownloads {
		if dl.Filepath == "" {
			continue
		}

		size, ok := statSize(dir, dl.Filepath)
		if !ok {
			continue
		}

		ext := dl.Ext
		if ext == "" {
			ext = strings.TrimPrefix(filepath.Ext(dl.Filepath), ".")
		}

		switch {
		case dl.VCodec != "" && dl.VCodec != "none":
			manifest.Video = &archive.VideoFile{
				Path:          filepath.Base(dl.Filepath),
				Format:        ext,
				FileSizeBytes: size,
				Resolution:    fmt.Sprintf("%dx%d", dl.Width, dl.Height),
				FPS:           dl.FPS,
				VCodec:        dl.VCodec,
				ACodec:        dl.ACodec,
			}
		case dl.ACodec != "" && dl.ACodec != "none":
			lang := dl.Language
			if lang == "" {
				lang = "unknown"
			}

			manifest.AudioTracks = append(manifest.AudioTracks, archive.AudioTrack{
				Language:      lang,
				Path:          filepath.Base(dl.Filepath),
				Format:        ext,
				FileSizeBytes: size,
				ACodec:        dl.ACodec,
				ABR:           dl.ABR,
			})
		}
	}

	for lang, sub := range sc.RequestedSubtitles {
		if sub.Filepath == "" {
			continue
		}

		size, ok := statSize(dir, sub.Filepath)
		if !ok {
			continue
		}

		manifest.SubtitleTracks = append(manifest.SubtitleTracks, archive.SubtitleTrack{
			Language:      lang,
			Path:          filepath.Base(sub.Filepath),
			Format:        subExt(sub),
			AutoGenerated: false,
			FileSizeBytes: size,
		})
	}

	for lang, captions := range sc.AutomaticCaptions {
		// One downloaded caption file per language at most.
		for _, c := range captions {
			if c.Filepath == "" {
				continue
			}

			size, ok := statSize(dir, c.Filepath)
			if !ok {
				continue
			}

			manifest.SubtitleTracks = append(manifest.SubtitleTracks, archive.SubtitleTrack{
				Language:      lang,
				Path:          filepath.Base(c.Filepath),
				Format:        subExt(c),
				AutoGenerated: true,
				FileSizeBytes: size,
			})

			break
		}
	}

	manifest.Thumbnail = scanThumbnail(dir)

	return manifest
}

// subExt returns a subtitle entry's format, derived from the path when the
// manifest omits it.
func subExt(sub subtitleFile) string {
	if sub.Ext != "" {
		return sub.Ext
	}

	return strings.TrimPrefix(filepath.Ext(sub.Filepath), ".")
}

// statSize resolves a manifest filepath (absolute from yt-dlp, or relative
// to dir) and returns its size. Missing files are skipped, not fatal.
func statSize(dir, path string) (int64, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}

	return info.Size(), true
}

var (
	videoExts = map[string]bool{".mp4": true, ".mkv": true, ".webm": true}
	audioExts = map[string]bool{".m4a": true, ".mp3": true, ".wav": true, ".opus": true}
	subExts   = map[string]bool{".srt": true, ".vtt": true, ".ass": true}
	imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
)

// legacyScan classifies files by extension and infers language and
// auto-generation from filename substrings. Lower fidelity than the
// structured manifest; used only as a fallback.
func legacyScan(dir string, logger *slog.Logger) archive.DownloadedFiles {
	var manifest archive.DownloadedFiles

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("cannot scan download folder", slog.String("dir", dir), slog.String("error", err.Error()))
		return manifest
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".part") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		format := strings.TrimPrefix(ext, ".")

		switch {
		case videoExts[ext]:
			manifest.Video = &archive.VideoFile{
				Path:          name,
				Format:        format,
				FileSizeBytes: info.Size(),
			}
		case audioExts[ext]:
			manifest.AudioTracks = append(manifest.AudioTracks, archive.AudioTrack{
				Language:      langFromName(name),
				Path:          name,
				Format:        format,
				FileSizeBytes: info.Size(),
			})
		case subExts[ext]:
			manifest.SubtitleTracks = append(manifest.SubtitleTracks, archive.SubtitleTrack{
				Language:      langFromName(name),
				Path:          name,
				Format:        format,
				AutoGenerated: strings.Contains(strings.ToLower(name), "auto"),
				FileSizeBytes: info.Size(),
			})
		case imageExts[ext]:
			if manifest.Thumbnail == nil {
				manifest.Thumbnail = &archive.MediaFile{
					Path:          name,
					Format:        format,
					FileSizeBytes: info.Size(),
				}
			}
		}
	}

	return manifest
}

// langFromName guesses a track language from filename substrings.
func langFromName(name string) string {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, ".en."), strings.HasSuffix(lower, ".en.m4a"):
		return "en"
	case strings.Contains(lower, ".zh."):
		return "zh"
	default:
		return "unknown"
	}
}

// scanThumbnail finds the first image file in dir. The sidecar manifest does
// not list the thumbnail, so this scan runs on both paths.
func scanThumbnail(dir string) *archive.MediaFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !imageExts[ext] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		return &archive.MediaFile{
			Path:          entry.Name(),
			Format:        strings.TrimPrefix(ext, "."),
			FileSizeBytes: info.Size(),
		}
	}

	return nil
}
