package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(videoID string) *VideoInfo {
	return &VideoInfo{
		SchemaVersion: SchemaVersion,
		YoutubeInfo: YoutubeInfo{
			VideoID:  videoID,
			Title:    "Sample Video",
			Uploader: "Channel",
			Duration: 123.4,
		},
		DownloadedFiles: DownloadedFiles{
			Video: &VideoFile{
				Path:          "Sample Video.mp4",
				FileSizeBytes: 1024,
			},
		},
		ProcessingStatus: ProcessingStatus{
			DownloadStatus: "completed",
			VideoID:        videoID,
		},
	}
}

func TestWriteReadVideoInfo_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteVideoInfo(dir, sampleRecord("vid1")))

	info, err := ReadVideoInfo(dir)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, SchemaVersion, info.SchemaVersion)
	assert.Equal(t, "vid1", info.VideoID())
	assert.Equal(t, "Sample Video", info.YoutubeInfo.Title)
	require.NotNil(t, info.DownloadedFiles.Video)
	assert.Equal(t, int64(1024), info.DownloadedFiles.Video.FileSizeBytes)
}

func TestWriteVideoInfo_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteVideoInfo(dir, sampleRecord("vid1")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, RecordFileName, entries[0].Name())
}

func TestReadVideoInfo_MissingRecord(t *testing.T) {
	info, err := ReadVideoInfo(t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestReadVideoInfo_CorruptRecordNotArchived(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordFileName), []byte("{truncated"), 0o644))

	info, err := ReadVideoInfo(dir)
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestReadVideoInfo_LegacyTopLevelVideoID(t *testing.T) {
	dir := t.TempDir()

	legacy := `{"schema_version": "1.0", "video_id": "legacy123"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordFileName), []byte(legacy), 0o644))

	info, err := ReadVideoInfo(dir)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "legacy123", info.VideoID())
}

func TestVideoInfo_VideoIDPrefersNested(t *testing.T) {
	info := &VideoInfo{
		YoutubeInfo:   YoutubeInfo{VideoID: "nested"},
		LegacyVideoID: "legacy",
	}

	assert.Equal(t, "nested", info.VideoID())
}

func TestDownloadedFiles_TotalBytes(t *testing.T) {
	d := DownloadedFiles{
		Video:          &VideoFile{FileSizeBytes: 100},
		AudioTracks:    []AudioTrack{{FileSizeBytes: 10}, {FileSizeBytes: 20}},
		SubtitleTracks: []SubtitleTrack{{FileSizeBytes: 1}},
		Thumbnail:      &MediaFile{FileSizeBytes: 5},
	}

	assert.Equal(t, int64(136), d.TotalBytes())
}
