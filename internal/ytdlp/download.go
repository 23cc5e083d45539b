package ytdlp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/avirta/ytarchiver/internal/archive"
)

// Retry backoff bounds: wait min(5*attempt, 30) seconds before each retry.
const (
	retryBackoffStep = 5 * time.Second
	retryBackoffCap  = 30 * time.Second
)

// Downloader drives the complete per-item download flow: invoke the
// executable, consume progress, retry per policy, derive metadata from the
// sidecar, and commit the record through the caller-supplied callback.
type Downloader struct {
	runner Runner
	opt    Options
	logger *slog.Logger

	// OnProgress, when set, is called after each parsed progress update.
	// The CLI uses it to echo live progress on a terminal.
	OnProgress func(p Progress)

	// Seams for tests.
	now       func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewDownloader creates a Downloader.
func NewDownloader(runner Runner, opt Options, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Downloader{
		runner:    runner,
		opt:       opt,
		logger:    logger,
		now:       time.Now,
		sleepFunc: sleepCtx,
	}
}

// Result carries the outcome of one complete download flow.
type Result struct {
	Record     *archive.VideoInfo
	Progress   *Progress
	TotalBytes int64
}

// Download runs the complete flow for one item and commits the metadata
// record via commit on success. Any failure — executable, sidecar, commit —
// is returned as an error and stays contained to this item.
func (d *Downloader) Download(
	ctx context.Context,
	videoID, videoURL, dir string,
	commit func(*archive.VideoInfo) error,
) (*Result, error) {
	progress, err := d.downloadWithRetry(ctx, videoURL, dir)
	if err != nil {
		return nil, err
	}

	// The sidecar info file is the single source of truth for metadata.
	// Its absence after a reported-successful invocation is a hard failure:
	// an unverifiable item must not be marked archived.
	sidecarPath, err := FindSidecar(dir)
	if err != nil {
		return nil, err
	}

	sc, err := ParseSidecar(sidecarPath)
	if err != nil {
		return nil, err
	}

	manifest := BuildManifest(dir, sc, d.logger)

	record := &archive.VideoInfo{
		SchemaVersion:   archive.SchemaVersion,
		YoutubeInfo:     sc.YoutubeInfo(),
		DownloadedFiles: manifest,
		ProcessingStatus: d.processingStatus(progress, videoID, videoURL,
			manifest.TotalBytes()),
	}

	if err := commit(record); err != nil {
		return nil, fmt.Errorf("committing record for %s: %w", videoID, err)
	}

	d.logger.Info("item archived",
		slog.String("video_id", videoID),
		slog.String("title", record.YoutubeInfo.Title),
		slog.Int64("bytes", manifest.TotalBytes()),
		slog.Int("retries", progress.RetryCount),
	)

	return &Result{
		Record:     record,
		Progress:   progress,
		TotalBytes: manifest.TotalBytes(),
	}, nil
}

// downloadWithRetry attempts the download up to 1+MaxRetries times with a
// linearly increasing, capped wait between attempts. Exhausting all attempts
// is a terminal failure for this item only.
func (d *Downloader) downloadWithRetry(ctx context.Context, videoURL, dir string) (*Progress, error) {
	progress := NewProgress()

	for attempt := 0; attempt <= d.opt.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * retryBackoffStep
			if wait > retryBackoffCap {
				wait = retryBackoffCap
			}

			d.logger.Info("retrying download",
				slog.String("url", videoURL),
				slog.Int("attempt", attempt),
				slog.Int("max_retries", d.opt.MaxRetries),
				slog.Duration("wait", wait),
			)

			if err := d.sleepFunc(ctx, wait); err != nil {
				return progress, fmt.Errorf("ytdlp: retry wait canceled: %w", err)
			}
		}

		if d.downloadOnce(ctx, videoURL, dir, progress) {
			return progress, nil
		}

		if ctx.Err() != nil {
			return progress, fmt.Errorf("ytdlp: download canceled: %w", ctx.Err())
		}
	}

	return progress, fmt.Errorf("ytdlp: download failed after %d attempts: %s",
		d.opt.MaxRetries+1, videoURL)
}

// downloadOnce runs a single invocation, streaming progress. Success is
// solely the executable's zero exit status.
func (d *Downloader) downloadOnce(ctx context.Context, videoURL, dir string, progress *Progress) bool {
	progress.Start(d.now())

	args := BuildArgs(videoURL, dir, d.opt)

	d.logger.Debug("invoking downloader", slog.String("url", videoURL), slog.String("dir", dir))

	exitCode, err := d.runner.Run(ctx, dir, args, func(line string) {
		if progress.ConsumeLine(line, d.logger) && d.OnProgress != nil {
			d.OnProgress(*progress)
		}
	})
	if err != nil {
		progress.Fail(d.now())
		d.logger.Error("downloader invocation failed", slog.String("url", videoURL), slog.String("error", err.Error()))

		return false
	}

	if exitCode != 0 {
		progress.Fail(d.now())
		d.logger.Error("downloader exited non-zero", slog.String("url", videoURL), slog.Int("exit_code", exitCode))

		return false
	}

	progress.Complete(d.now())
	d.logger.Info("download attempt succeeded",
		slog.String("url", videoURL),
		slog.Float64("duration_sec", progress.Duration(d.now()).Seconds()),
		slog.Float64("avg_mbps", progress.SpeedMbps),
	)

	return true
}

// processingStatus assembles the persisted performance stats. The removal
// flag always starts false; removal happens after commit.
func (d *Downloader) processingStatus(p *Progress, videoID, videoURL string, totalBytes int64) archive.ProcessingStatus {
	status := archive.ProcessingStatus{
		DownloadDurationSeconds: p.Duration(d.now()).Seconds(),
		DownloadStatus:          p.Status,
		RetryCount:              p.RetryCount,
		TotalSizeBytes:          totalBytes,
		DownloadedBytes:         p.DownloadedBytes,
		AverageSpeedMbps:        p.SpeedMbps,
		ProgressPercentage:      p.Percentage,
		DownloadTimestamp:       d.now().Format(time.RFC3339),
		VideoID:                 videoID,
		VideoURL:                videoURL,
		RemovedFromPlaylist:     false,
	}

	if p.StartTime != nil {
		s := p.StartTime.Format(time.RFC3339)
		status.DownloadStartTime = &s
	}

	if p.EndTime != nil {
		e := p.EndTime.Format(time.RFC3339)
		status.DownloadEndTime = &e
	}

	return status
}

// sleepCtx waits for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
