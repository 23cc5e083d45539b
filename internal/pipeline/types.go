// Package pipeline wires the per-cycle synchronization flow: list the remote
// playlist, scan the local archive, diff the two, download each new item,
// commit it locally, and only then remove it from the remote playlist.
// Processing is intentionally sequential — playlists one at a time, items
// within a playlist one at a time — so ordering is deterministic end to end.
package pipeline

import (
	"context"
	"time"

	"github.com/avirta/ytarchiver/internal/archive"
	"github.com/avirta/ytarchiver/internal/youtube"
	"github.com/avirta/ytarchiver/internal/ytdlp"
)

// Catalog is the remote playlist capability the pipeline consumes. The
// youtube.Client satisfies it; tests substitute a fake.
type Catalog interface {
	ListPlaylistItems(ctx context.Context, playlistID string) ([]youtube.PlaylistItem, error)
	DeletePlaylistItem(ctx context.Context, itemID string) error
}

// ArchiveScanner enumerates already-archived video ids under a root.
type ArchiveScanner interface {
	Scan(root string) (map[string]bool, error)
}

// ItemDownloader runs the complete download-and-derive flow for one item.
type ItemDownloader interface {
	Download(ctx context.Context, videoID, videoURL, dir string,
		commit func(*archive.VideoInfo) error) (*ytdlp.Result, error)
}

// ArchivedItem summarizes one successfully archived item within a cycle.
type ArchivedItem struct {
	VideoID    string
	Title      string
	FolderPath string // absolute; printed on stdout for downstream automation
	Bytes      int64
	Duration   time.Duration
	Retries    int
	Removed    bool // remote removal succeeded
}

// PlaylistResult is the outcome of processing one playlist in one cycle.
type PlaylistResult struct {
	Name       string
	URL        string
	StartTime  time.Time
	EndTime    time.Time
	Success    bool // listing/scan level; item failures are counted separately
	Found      int
	Downloaded int
	Removed    int
	Failed     int
	Items      []ArchivedItem
	Err        string
}

// CycleResult aggregates one full pass over all configured playlists.
type CycleResult struct {
	StartTime time.Time
	EndTime   time.Time

	PlaylistsProcessed  int
	SuccessfulPlaylists int
	FailedPlaylists     int
	Found               int
	Downloaded          int
	Removed             int
	Failed              int

	Playlists []PlaylistResult
}

// Duration returns the wall time of the cycle.
func (c *CycleResult) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}

// HasFailures reports whether any playlist or item failed. Drives the
// process exit status.
func (c *CycleResult) HasFailures() bool {
	return c.FailedPlaylists > 0 || c.Failed > 0
}
