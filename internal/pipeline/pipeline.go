package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/avirta/ytarchiver/internal/archive"
	"github.com/avirta/ytarchiver/internal/config"
	"github.com/avirta/ytarchiver/internal/youtube"
)

// Pipeline runs synchronization cycles. All collaborators are injected as
// narrow capabilities; Out receives the absolute folder path of each
// archived item, one per line, in catalog order — the machine-readable
// success signal for downstream automation.
type Pipeline struct {
	catalog    Catalog
	scanner    ArchiveScanner
	downloader ItemDownloader
	out        io.Writer
	logger     *slog.Logger

	now func() time.Time
}

// New creates a Pipeline.
func New(catalog Catalog, scanner ArchiveScanner, downloader ItemDownloader, out io.Writer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Pipeline{
		catalog:    catalog,
		scanner:    scanner,
		downloader: downloader,
		out:        out,
		logger:     logger,
		now:        time.Now,
	}
}

// RunCycle executes one full pass over the configured playlists. A playlist
// failure (listing, scanning) is recorded and does not stop iteration over
// the remaining playlists; RunCycle itself never fails.
func (p *Pipeline) RunCycle(ctx context.Context, playlists []config.Playlist) *CycleResult {
	cycle := &CycleResult{StartTime: p.now()}

	p.logger.Info("cycle starting", slog.Int("playlists", len(playlists)))

	for _, pl := range playlists {
		cycle.PlaylistsProcessed++

		result := p.processPlaylist(ctx, pl)
		cycle.Playlists = append(cycle.Playlists, result)

		cycle.Found += result.Found
		cycle.Downloaded += result.Downloaded
		cycle.Removed += result.Removed
		cycle.Failed += result.Failed

		if result.Success {
			cycle.SuccessfulPlaylists++
		} else {
			cycle.FailedPlaylists++
		}
	}

	cycle.EndTime = p.now()

	p.logger.Info("cycle complete",
		slog.Duration("duration", cycle.Duration()),
		slog.Int("found", cycle.Found),
		slog.Int("downloaded", cycle.Downloaded),
		slog.Int("removed", cycle.Removed),
		slog.Int("failed", cycle.Failed),
	)

	return cycle
}

// processPlaylist runs the list -> scan -> diff -> download/remove flow for
// one playlist. Errors at this level (listing, scanning) mark the playlist
// failed; per-item errors are contained inside processItem.
func (p *Pipeline) processPlaylist(ctx context.Context, pl config.Playlist) PlaylistResult {
	result := PlaylistResult{
		Name:      pl.Name,
		URL:       pl.URL,
		StartTime: p.now(),
	}

	logger := p.logger.With(slog.String("playlist", pl.Name))
	logger.Info("processing playlist")

	playlistID, err := youtube.PlaylistIDFromURL(pl.URL)
	if err != nil {
		return p.failPlaylist(result, err, logger)
	}

	entries, err := p.catalog.ListPlaylistItems(ctx, playlistID)
	if err != nil {
		return p.failPlaylist(result, fmt.Errorf("listing playlist: %w", err), logger)
	}

	result.Found = len(entries)

	if len(entries) == 0 {
		logger.Info("playlist is empty")
		result.Success = true
		result.EndTime = p.now()

		return result
	}

	archived, err := p.scanner.Scan(pl.ArchiveDir)
	if err != nil {
		return p.failPlaylist(result, fmt.Errorf("scanning archive: %w", err), logger)
	}

	newItems, entryIDs := Diff(entries, archived)

	if len(newItems) == 0 {
		logger.Info("no new items", slog.Int("found", result.Found), slog.Int("archived", len(archived)))
		result.Success = true
		result.EndTime = p.now()

		return result
	}

	logger.Info("new items to download", slog.Int("count", len(newItems)))

	for i, item := range newItems {
		if ctx.Err() != nil {
			logger.Warn("cycle interrupted, remaining items left for next run",
				slog.Int("remaining", len(newItems)-i))

			break
		}

		logger.Info("processing item",
			slog.Int("index", i+1),
			slog.Int("total", len(newItems)),
			slog.String("video_id", item.VideoID),
			slog.String("title", item.Title),
		)

		archivedItem, err := p.processItem(ctx, pl, item, entryIDs)
		if err != nil {
			result.Failed++

			logger.Error("item failed",
				slog.String("video_id", item.VideoID),
				slog.String("error", err.Error()),
			)

			continue
		}

		result.Downloaded++
		if archivedItem.Removed {
			result.Removed++
		}

		result.Items = append(result.Items, archivedItem)

		// Integration contract: one absolute path per archived item on stdout.
		fmt.Fprintln(p.out, archivedItem.FolderPath)
	}

	result.Success = true
	result.EndTime = p.now()

	logger.Info("playlist complete",
		slog.Int("downloaded", result.Downloaded),
		slog.Int("removed", result.Removed),
		slog.Int("failed", result.Failed),
	)

	return result
}

// processItem runs the download-commit-remove sequence for a single new
// item. Any error before commit leaves the folder without a record, so the
// next cycle retries the item.
func (p *Pipeline) processItem(
	ctx context.Context,
	pl config.Playlist,
	item youtube.PlaylistItem,
	entryIDs map[string]string,
) (ArchivedItem, error) {
	dir, err := archive.CreateItemFolder(pl.ArchiveDir, item.Title, item.VideoID, p.now())
	if err != nil {
		return ArchivedItem{}, err
	}

	videoURL := youtube.WatchURL(item.VideoID)

	result, err := p.downloader.Download(ctx, item.VideoID, videoURL, dir, func(info *archive.VideoInfo) error {
		return archive.WriteVideoInfo(dir, info)
	})
	if err != nil {
		return ArchivedItem{}, err
	}

	archivedItem := ArchivedItem{
		VideoID:    item.VideoID,
		Title:      item.Title,
		FolderPath: dir,
		Bytes:      result.TotalBytes,
		Duration:   result.Progress.Duration(p.now()),
		Retries:    result.Progress.RetryCount,
	}

	// Removal commits only after the local record is durable. A removal
	// failure is non-fatal: the item stays listed remotely and the flag in
	// the record stays false.
	entryID, ok := entryIDs[item.VideoID]
	if !ok {
		p.logger.Warn("no playlist entry id for archived item, skipping removal",
			slog.String("video_id", item.VideoID))

		return archivedItem, nil
	}

	if err := p.catalog.DeletePlaylistItem(ctx, entryID); err != nil {
		p.logger.Warn("could not remove entry from playlist",
			slog.String("video_id", item.VideoID),
			slog.String("entry_id", entryID),
			slog.String("error", err.Error()),
		)

		return archivedItem, nil
	}

	archivedItem.Removed = true

	return archivedItem, nil
}

// failPlaylist records a playlist-level failure and closes the result.
func (p *Pipeline) failPlaylist(result PlaylistResult, err error, logger *slog.Logger) PlaylistResult {
	logger.Error("playlist failed", slog.String("error", err.Error()))

	result.Err = err.Error()
	result.EndTime = p.now()

	return result
}
