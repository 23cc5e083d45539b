package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avirta/ytarchiver/internal/archive"
)

// fakeRunner scripts exit codes per invocation and lets tests plant files in
// the download folder, simulating what the executable leaves behind.
type fakeRunner struct {
	exitCodes []int // consumed one per call; last value repeats
	runErr    error
	lines     []string
	onRun     func(dir string)

	calls int
}

func (f *fakeRunner) Run(_ context.Context, dir string, _ []string, onLine func(string)) (int, error) {
	idx := f.calls
	f.calls++

	if f.runErr != nil {
		return 0, f.runErr
	}

	for _, line := range f.lines {
		onLine(line)
	}

	if f.onRun != nil {
		f.onRun(dir)
	}

	if idx >= len(f.exitCodes) {
		idx = len(f.exitCodes) - 1
	}

	return f.exitCodes[idx], nil
}

func plantSidecar(t *testing.T, videoID string) func(dir string) {
	t.Helper()

	return func(dir string) {
		media := filepath.Join(dir, "Video.mp4")
		if err := os.WriteFile(media, make([]byte, 2048), 0o644); err != nil {
			t.Fatal(err)
		}

		sidecar := fmt.Sprintf(`{
			"id": %q,
			"title": "Video",
			"requested_downloads": [{"filepath": %q, "ext": "mp4", "vcodec": "avc1", "acodec": "mp4a", "width": 1280, "height": 720}]
		}`, videoID, media)

		if err := os.WriteFile(filepath.Join(dir, "Video.info.json"), []byte(sidecar), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestDownloader(runner Runner) (*Downloader, *[]time.Duration) {
	d := NewDownloader(runner, testOptions(), discard())

	var waits []time.Duration

	d.sleepFunc = func(_ context.Context, dur time.Duration) error {
		waits = append(waits, dur)
		return nil
	}

	return d, &waits
}

func TestDownload_SuccessCommitsRecord(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{exitCodes: []int{0}, onRun: plantSidecar(t, "vid1")}

	d, _ := newTestDownloader(runner)

	var committed *archive.VideoInfo

	res, err := d.Download(context.Background(), "vid1", "https://youtu.be/vid1", dir,
		func(info *archive.VideoInfo) error {
			committed = info
			return nil
		})
	require.NoError(t, err)
	require.NotNil(t, res)

	require.NotNil(t, committed)
	assert.Equal(t, archive.SchemaVersion, committed.SchemaVersion)
	assert.Equal(t, "vid1", committed.YoutubeInfo.VideoID)
	assert.Equal(t, StatusCompleted, committed.ProcessingStatus.DownloadStatus)
	assert.False(t, committed.ProcessingStatus.RemovedFromPlaylist)
	require.NotNil(t, committed.DownloadedFiles.Video)
	assert.Equal(t, int64(2048), committed.DownloadedFiles.Video.FileSizeBytes)

	assert.Equal(t, int64(2048), res.TotalBytes)
	assert.Equal(t, 1, runner.calls)
}

func TestDownload_RetriesWithLinearCappedWaits(t *testing.T) {
	dir := t.TempDir()

	// Fail the first nine attempts to push the wait past the cap.
	runner := &fakeRunner{exitCodes: []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 0}, onRun: plantSidecar(t, "vid1")}

	d, waits := newTestDownloader(runner)
	d.opt.MaxRetries = 9

	_, err := d.Download(context.Background(), "vid1", "url", dir, func(*archive.VideoInfo) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, 10, runner.calls)
	require.Len(t, *waits, 9)

	// 5s, 10s, 15s, 20s, 25s, then capped at 30s.
	expected := []time.Duration{
		5 * time.Second, 10 * time.Second, 15 * time.Second,
		20 * time.Second, 25 * time.Second, 30 * time.Second,
		30 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	assert.Equal(t, expected, *waits)
}

func TestDownload_ExhaustsRetries(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{exitCodes: []int{1}}

	d, _ := newTestDownloader(runner)

	committed := false

	_, err := d.Download(context.Background(), "vid1", "url", dir,
		func(*archive.VideoInfo) error {
			committed = true
			return nil
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")

	// MaxRetries=3 means exactly four invocations.
	assert.Equal(t, 4, runner.calls)
	assert.False(t, committed, "failed download must not commit")
}

func TestDownload_MissingSidecarIsTerminal(t *testing.T) {
	dir := t.TempDir()

	// Exit zero but leave no info JSON behind.
	runner := &fakeRunner{exitCodes: []int{0}}

	d, _ := newTestDownloader(runner)

	committed := false

	_, err := d.Download(context.Background(), "vid1", "url", dir,
		func(*archive.VideoInfo) error {
			committed = true
			return nil
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSidecar)
	assert.False(t, committed)
}

func TestDownload_CommitFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{exitCodes: []int{0}, onRun: plantSidecar(t, "vid1")}

	d, _ := newTestDownloader(runner)

	_, err := d.Download(context.Background(), "vid1", "url", dir,
		func(*archive.VideoInfo) error {
			return fmt.Errorf("disk full")
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestDownload_CancellationStopsRetrying(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	runner := &fakeRunner{exitCodes: []int{1}}

	d, _ := newTestDownloader(runner)
	d.sleepFunc = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := d.Download(ctx, "vid1", "url", dir, func(*archive.VideoInfo) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, runner.calls)
}

func TestDownload_ProgressFromRunnerOutput(t *testing.T) {
	dir := t.TempDir()

	runner := &fakeRunner{
		exitCodes: []int{0},
		lines: []string{
			"[youtube] vid1: Downloading webpage",
			"[download]  50.0% of  10.00MiB at  1.00MiB/s ETA 00:05",
		},
		onRun: plantSidecar(t, "vid1"),
	}

	d, _ := newTestDownloader(runner)

	var snapshots []Progress

	d.OnProgress = func(p Progress) {
		snapshots = append(snapshots, p)
	}

	res, err := d.Download(context.Background(), "vid1", "url", dir, func(*archive.VideoInfo) error { return nil })
	require.NoError(t, err)

	require.Len(t, snapshots, 1)
	assert.InDelta(t, 50.0, snapshots[0].Percentage, 0.01)
	assert.Equal(t, int64(10*1024*1024), snapshots[0].TotalBytes)

	// Completion overrides the last parsed percentage.
	assert.InDelta(t, 100.0, res.Progress.Percentage, 0.01)
	assert.Equal(t, StatusCompleted, res.Progress.Status)
}
