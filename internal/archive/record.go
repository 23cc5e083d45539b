// Package archive owns the durable on-disk state: one folder per archived
// item, each holding the downloaded media and a single video_info.json
// record. The record is the commit marker — its presence is the sole proof
// that an item is archived.
package archive

// SchemaVersion is written into every new record. Version 1.1 nests the
// catalog metadata under youtube_info; 1.0 records carried video_id at the
// top level and are still readable.
const SchemaVersion = "1.1"

// RecordFileName is the per-folder metadata record file.
const RecordFileName = "video_info.json"

// VideoInfo is the persisted metadata record for one archived item.
type VideoInfo struct {
	SchemaVersion    string           `json:"schema_version"`
	YoutubeInfo      YoutubeInfo      `json:"youtube_info"`
	DownloadedFiles  DownloadedFiles  `json:"downloaded_files"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`

	// LegacyVideoID is only populated when reading 1.0 records that stored
	// the video id at the top level. Never written by this version.
	LegacyVideoID string `json:"video_id,omitempty"`
}

// VideoID returns the item identifier, preferring the nested 1.1 location
// and falling back to the legacy top-level field.
func (v *VideoInfo) VideoID() string {
	if v.YoutubeInfo.VideoID != "" {
		return v.YoutubeInfo.VideoID
	}

	return v.LegacyVideoID
}

// YoutubeInfo is the item metadata derived from the retrieval executable's
// sidecar info file, which is authoritative over anything the catalog
// listing reported.
type YoutubeInfo struct {
	VideoID      string   `json:"video_id"`
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
}

// DownloadedFiles is the manifest of everything the retrieval executable
// left in the folder.
type DownloadedFiles struct {
	Video          *VideoFile      `json:"video"`
	AudioTracks    []AudioTrack    `json:"audio_tracks"`
	SubtitleTracks []SubtitleTrack `json:"subtitle_tracks"`
	Thumbnail      *MediaFile      `json:"thumbnail"`
}

// TotalBytes sums the sizes of all files in the manifest.
func (d *DownloadedFiles) TotalBytes() int64 {
	var total int64

	if d.Video != nil {
		total += d.Video.FileSizeBytes
	}

	for _, a := range d.AudioTracks {
		total += a.FileSizeBytes
	}

	for _, s := range d.SubtitleTracks {
		total += s.FileSizeBytes
	}

	if d.Thumbnail != nil {
		total += d.Thumbnail.FileSizeBytes
	}

	return total
}

// VideoFile describes the primary media file.
type VideoFile struct {
	Path          string  `json:"path"`
	Format        string  `json:"format"`
	FileSizeBytes int64   `json:"file_size_bytes"`
	Resolution    string  `json:"resolution,omitempty"`
	FPS           float64 `json:"fps,omitempty"`
	VCodec        string  `json:"vcodec,omitempty"`
	ACodec        string  `json:"acodec,omitempty"`
}

// AudioTrack describes an audio-only file.
type AudioTrack struct {
	Language      string  `json:"language"`
	Path          string  `json:"path"`
	Format        string  `json:"format"`
	FileSizeBytes int64   `json:"file_size_bytes"`
	ACodec        string  `json:"acodec,omitempty"`
	ABR           float64 `json:"abr,omitempty"`
}

// SubtitleTrack describes a subtitle or caption file.
type SubtitleTrack struct {
	Language      string `json:"language"`
	Path          string `json:"path"`
	Format        string `json:"format"`
	AutoGenerated bool   `json:"auto_generated"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// MediaFile describes an auxiliary file (thumbnail).
type MediaFile struct {
	Path          string `json:"path"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// ProcessingStatus carries the download performance stats and the
// removal-acknowledged flag. Timestamps are RFC 3339; nil means "never".
type ProcessingStatus struct {
	DownloadStartTime       *string `json:"download_start_time"`
	DownloadEndTime         *string `json:"download_end_time"`
	DownloadDurationSeconds float64 `json:"download_duration_seconds"`
	DownloadStatus          string  `json:"download_status"`
	RetryCount              int     `json:"retry_count"`
	TotalSizeBytes          int64   `json:"total_size_bytes"`
	DownloadedBytes         int64   `json:"downloaded_bytes"`
	AverageSpeedMbps        float64 `json:"average_speed_mbps"`
	ProgressPercentage      float64 `json:"progress_percentage"`
	DownloadTimestamp       string  `json:"download_timestamp"`
	VideoID                 string  `json:"video_id"`
	VideoURL                string  `json:"video_url"`
	RemovedFromPlaylist     bool    `json:"removed_from_playlist"`
}
