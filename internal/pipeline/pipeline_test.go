package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avirta/ytarchiver/internal/archive"
	"github.com/avirta/ytarchiver/internal/config"
	"github.com/avirta/ytarchiver/internal/youtube"
	"github.com/avirta/ytarchiver/internal/ytdlp"
)

// fakeCatalog serves scripted playlist entries and records deletions.
type fakeCatalog struct {
	entries map[string][]youtube.PlaylistItem
	listErr error

	deleteErr error
	deleted   []string
}

func (f *fakeCatalog) ListPlaylistItems(_ context.Context, playlistID string) ([]youtube.PlaylistItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	return f.entries[playlistID], nil
}

func (f *fakeCatalog) DeletePlaylistItem(_ context.Context, itemID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}

	f.deleted = append(f.deleted, itemID)

	return nil
}

// fakeDownloader commits a minimal record through the provided callback,
// exercising the real on-disk commit path.
type fakeDownloader struct {
	failIDs map[string]bool
	calls   []string
}

func (f *fakeDownloader) Download(_ context.Context, videoID, _, _ string,
	commit func(*archive.VideoInfo) error,
) (*ytdlp.Result, error) {
	f.calls = append(f.calls, videoID)

	if f.failIDs[videoID] {
		return nil, fmt.Errorf("download failed for %s", videoID)
	}

	record := &archive.VideoInfo{
		SchemaVersion: archive.SchemaVersion,
		YoutubeInfo:   archive.YoutubeInfo{VideoID: videoID, Title: "Title " + videoID},
		DownloadedFiles: archive.DownloadedFiles{
			Video: &archive.VideoFile{Path: "v.mp4", FileSizeBytes: 1000},
		},
		ProcessingStatus: archive.ProcessingStatus{DownloadStatus: ytdlp.StatusCompleted, VideoID: videoID},
	}

	if err := commit(record); err != nil {
		return nil, err
	}

	now := time.Now()
	progress := ytdlp.NewProgress()
	progress.Start(now)
	progress.Complete(now.Add(time.Second))

	return &ytdlp.Result{Record: record, Progress: progress, TotalBytes: 1000}, nil
}

func testPlaylist(name, id, dir string) config.Playlist {
	return config.Playlist{
		Name:       name,
		URL:        "https://www.youtube.com/playlist?list=" + id,
		ArchiveDir: dir,
	}
}

func newTestPipeline(catalog *fakeCatalog, dl ItemDownloader, out *bytes.Buffer) *Pipeline {
	return New(catalog, archive.NewScanner(nil), dl, out, nil)
}

func TestRunCycle_DownloadsCommitsAndRemoves(t *testing.T) {
	dir := t.TempDir()

	catalog := &fakeCatalog{entries: map[string][]youtube.PlaylistItem{
		"PLx": {entry("i1", "v1"), entry("i2", "v2")},
	}}
	dl := &fakeDownloader{}

	var out bytes.Buffer

	p := newTestPipeline(catalog, dl, &out)
	cycle := p.RunCycle(context.Background(), []config.Playlist{testPlaylist("main", "PLx", dir)})

	assert.Equal(t, 1, cycle.PlaylistsProcessed)
	assert.Equal(t, 1, cycle.SuccessfulPlaylists)
	assert.Equal(t, 2, cycle.Found)
	assert.Equal(t, 2, cycle.Downloaded)
	assert.Equal(t, 2, cycle.Removed)
	assert.Zero(t, cycle.Failed)
	assert.False(t, cycle.HasFailures())

	assert.Equal(t, []string{"v1", "v2"}, dl.calls)
	assert.Equal(t, []string{"i1", "i2"}, catalog.deleted)

	// One absolute folder path per archived item on stdout.
	paths := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "v1")
	assert.Contains(t, paths[1], "v2")

	// Both folders hold committed records.
	ids, err := archive.NewScanner(nil).Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"v1": true, "v2": true}, ids)
}

func TestRunCycle_SecondRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	catalog := &fakeCatalog{entries: map[string][]youtube.PlaylistItem{
		"PLx": {entry("i1", "v1")},
	}}
	playlists := []config.Playlist{testPlaylist("main", "PLx", dir)}

	var out bytes.Buffer

	first := &fakeDownloader{}
	newTestPipeline(catalog, first, &out).RunCycle(context.Background(), playlists)
	require.Equal(t, []string{"v1"}, first.calls)

	// Same catalog snapshot, same archive dir: nothing to do.
	second := &fakeDownloader{}
	cycle := newTestPipeline(catalog, second, &out).RunCycle(context.Background(), playlists)

	assert.Empty(t, second.calls)
	assert.Equal(t, 1, cycle.Found)
	assert.Zero(t, cycle.Downloaded)
	assert.Equal(t, 1, cycle.SuccessfulPlaylists)
}

func TestRunCycle_OnlyNewItemsProcessed(t *testing.T) {
	dir := t.TempDir()

	catalog := &fakeCatalog{entries: map[string][]youtube.PlaylistItem{
		"PLx": {entry("i1", "v1")},
	}}
	playlists := []config.Playlist{testPlaylist("main", "PLx", dir)}

	newTestPipeline(catalog, &fakeDownloader{}, &bytes.Buffer{}).
		RunCycle(context.Background(), playlists)

	// v2 appears in the catalog later; only v2 should be fetched.
	catalog.entries["PLx"] = append(catalog.entries["PLx"], entry("i2", "v2"))
	catalog.deleted = nil

	dl := &fakeDownloader{}

	var out bytes.Buffer

	cycle := newTestPipeline(catalog, dl, &out).RunCycle(context.Background(), playlists)

	assert.Equal(t, []string{"v2"}, dl.calls)
	assert.Equal(t, []string{"i2"}, catalog.deleted)
	assert.Equal(t, 1, cycle.Downloaded)
	assert.Equal(t, 1, cycle.Removed)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestRunCycle_ItemFailureIsContained(t *testing.T) {
	dir := t.TempDir()

	catalog := &fakeCatalog{entries: map[string][]youtube.PlaylistItem{
		"PLx": {entry("i1", "v1"), entry("i2", "v2"), entry("i3", "v3")},
	}}
	dl := &fakeDownloader{failIDs: map[string]bool{"v2": true}}

	var out bytes.Buffer

	cycle := newTestPipeline(catalog, dl, &out).
		RunCycle(context.Background(), []config.Playlist{testPlaylist("main", "PLx", dir)})

	// All three attempted; only the failing one is skipped.
	assert.Equal(t, []string{"v1", "v2", "v3"}, dl.calls)
	assert.Equal(t, 2, cycle.Downloaded)
	assert.Equal(t, 1, cycle.Failed)
	assert.True(t, cycle.HasFailures())

	// The failed item was never removed remotely.
	assert.Equal(t, []string{"i1", "i3"}, catalog.deleted)

	// And its folder holds no record, so the next cycle retries it.
	ids, err := archive.NewScanner(nil).Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"v1": true, "v3": true}, ids)
}

func TestRunCycle_RemovalFailureStillCountsDownloaded(t *testing.T) {
	dir := t.TempDir()

	catalog := &fakeCatalog{
		entries:   map[string][]youtube.PlaylistItem{"PLx": {entry("i1", "v1")}},
		deleteErr: fmt.Errorf("quota exceeded"),
	}
	dl := &fakeDownloader{}

	var out bytes.Buffer

	cycle := newTestPipeline(catalog, dl, &out).
		RunCycle(context.Background(), []config.Playlist{testPlaylist("main", "PLx", dir)})

	assert.Equal(t, 1, cycle.Downloaded)
	assert.Zero(t, cycle.Removed)
	assert.False(t, cycle.HasFailures(), "a removal failure is not an item failure")

	require.Len(t, cycle.Playlists, 1)
	require.Len(t, cycle.Playlists[0].Items, 1)
	assert.False(t, cycle.Playlists[0].Items[0].Removed)

	// Local record is durable regardless.
	ids, err := archive.NewScanner(nil).Scan(dir)
	require.NoError(t, err)
	assert.True(t, ids["v1"])
}

func TestRunCycle_ListingFailureDoesNotStopOtherPlaylists(t *testing.T) {
	okDir := t.TempDir()

	// First playlist has an unusable URL; second is fine.
	bad := config.Playlist{Name: "bad", URL: "https://www.youtube.com/playlist", ArchiveDir: t.TempDir()}

	catalog := &fakeCatalog{entries: map[string][]youtube.PlaylistItem{
		"PLok": {entry("i1", "v1")},
	}}
	dl := &fakeDownloader{}

	var out bytes.Buffer

	cycle := newTestPipeline(catalog, dl, &out).
		RunCycle(context.Background(), []config.Playlist{bad, testPlaylist("ok", "PLok", okDir)})

	assert.Equal(t, 2, cycle.PlaylistsProcessed)
	assert.Equal(t, 1, cycle.SuccessfulPlaylists)
	assert.Equal(t, 1, cycle.FailedPlaylists)
	assert.True(t, cycle.HasFailures())

	assert.Equal(t, []string{"v1"}, dl.calls)

	require.Len(t, cycle.Playlists, 2)
	assert.NotEmpty(t, cycle.Playlists[0].Err)
	assert.Empty(t, cycle.Playlists[1].Err)
}

func TestRunCycle_EmptyPlaylist(t *testing.T) {
	catalog := &fakeCatalog{entries: map[string][]youtube.PlaylistItem{}}
	dl := &fakeDownloader{}

	cycle := newTestPipeline(catalog, dl, &bytes.Buffer{}).
		RunCycle(context.Background(), []config.Playlist{testPlaylist("main", "PLx", t.TempDir())})

	assert.Equal(t, 1, cycle.SuccessfulPlaylists)
	assert.Zero(t, cycle.Found)
	assert.Empty(t, dl.calls)
}

func TestRunCycle_CancellationLeavesRemainingItems(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	catalog := &fakeCatalog{entries: map[string][]youtube.PlaylistItem{
		"PLx": {entry("i1", "v1"), entry("i2", "v2")},
	}}

	// Cancel after the first item completes.
	dl := &cancelingDownloader{inner: &fakeDownloader{}, cancel: cancel}

	var out bytes.Buffer

	cycle := newTestPipeline(catalog, dl, &out).
		RunCycle(ctx, []config.Playlist{testPlaylist("main", "PLx", dir)})

	assert.Equal(t, 1, cycle.Downloaded)
	assert.Equal(t, []string{"v1"}, dl.inner.calls)
}

// cancelingDownloader cancels the context after its first successful
// download, simulating a shutdown signal mid-cycle.
type cancelingDownloader struct {
	inner  *fakeDownloader
	cancel context.CancelFunc
}

func (c *cancelingDownloader) Download(ctx context.Context, videoID, videoURL, dir string,
	commit func(*archive.VideoInfo) error,
) (*ytdlp.Result, error) {
	res, err := c.inner.Download(ctx, videoID, videoURL, dir, commit)
	c.cancel()

	return res, err
}
