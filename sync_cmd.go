package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/avirta/ytarchiver/internal/archive"
	"github.com/avirta/ytarchiver/internal/config"
	"github.com/avirta/ytarchiver/internal/history"
	"github.com/avirta/ytarchiver/internal/pipeline"
	"github.com/avirta/ytarchiver/internal/youtube"
	"github.com/avirta/ytarchiver/internal/ytdlp"
)

// errItemsFailed signals a completed cycle with per-item or per-playlist
// failures. main() maps it to a non-zero exit without the error banner.
var errItemsFailed = errors.New("one or more items failed")

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization cycle",
		Long: `Run a single cycle over all configured playlists.

Each new playlist entry is downloaded into its own archive folder, its
metadata record committed, and the entry removed from the remote playlist.
Folders that already hold a committed record are skipped, so interrupted
runs resume cleanly. Absolute folder paths of newly archived items are
printed on stdout, one per line.`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	cycle, err := runSyncCycle(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}

	printCycleSummary(cycle)

	if cycle.HasFailures() {
		return errItemsFailed
	}

	return nil
}

// runSyncCycle assembles the pipeline from config and runs one full cycle.
// Shared between the sync and watch commands.
func runSyncCycle(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.CycleResult, error) {
	if len(cfg.Playlists) == 0 {
		return nil, fmt.Errorf("no playlists configured; add a [[playlist]] section to %s", resolvedCfgPath)
	}

	ver, err := ytdlp.CheckBinary(ctx, cfg.Downloader.Binary)
	if err != nil {
		return nil, fmt.Errorf("checking downloader binary: %w", err)
	}

	logger.Debug("downloader binary found",
		slog.String("binary", cfg.Downloader.Binary),
		slog.String("version", ver),
	)

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	cycle := p.RunCycle(ctx, cfg.Playlists)

	recordHistory(ctx, cfg, cycle, logger)

	return cycle, nil
}

// buildPipeline wires the API client, archive scanner, and downloader into a
// pipeline. Fails fast when no saved token exists.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	oauthCfg := youtube.OAuthConfig(cfg.Auth.ClientID, cfg.Auth.ClientSecret)

	ts, err := youtube.TokenSourceFromFile(ctx, oauthCfg, cfg.Auth.TokenFile, logger)
	if err != nil {
		return nil, fmt.Errorf("loading credentials (run 'ytarchiver login' first): %w", err)
	}

	client := youtube.NewClient(youtube.DefaultBaseURL, defaultHTTPClient(), ts, logger)
	scanner := archive.NewScanner(logger)

	runner := ytdlp.NewExecRunner(cfg.Downloader.Binary, logger)
	dl := ytdlp.NewDownloader(runner, ytdlp.Options{
		MaxRetries:       cfg.Downloader.MaxRetries,
		MaxHeight:        cfg.Downloader.MaxHeight,
		SubtitleLangs:    cfg.Downloader.SubtitleLangs,
		SocketTimeoutSec: cfg.Downloader.SocketTimeoutSec,
		FragmentRetries:  cfg.Downloader.FragmentRetries,
	}, logger)

	if stderrIsTerminal() && !flagQuiet {
		dl.OnProgress = echoProgress
	}

	return pipeline.New(client, scanner, dl, os.Stdout, logger), nil
}

// echoProgress redraws a single progress line on the terminal.
func echoProgress(p ytdlp.Progress) {
	fmt.Fprintf(os.Stderr, "\r  %5.1f%%  of %s  %.1f Mbps  ETA %02d:%02d ",
		p.Percentage,
		humanize.IBytes(uint64(p.TotalBytes)),
		p.SpeedMbps,
		p.ETASeconds/60, p.ETASeconds%60,
	)
}

// recordHistory appends the cycle to the ledger. Ledger failures are logged
// and swallowed — the archive folders are the source of truth, not the
// database.
func recordHistory(ctx context.Context, cfg *config.Config, cycle *pipeline.CycleResult, logger *slog.Logger) {
	if cfg.History.Path == "" {
		return
	}

	h, err := history.Open(ctx, cfg.History.Path, logger)
	if err != nil {
		logger.Warn("opening history ledger failed", slog.String("error", err.Error()))
		return
	}
	defer h.Close()

	cycleID, err := h.RecordCycle(ctx, cycle)
	if err != nil {
		logger.Warn("recording cycle failed", slog.String("error", err.Error()))
		return
	}

	logger.Debug("cycle recorded to ledger", slog.String("cycle_id", cycleID))
}

// printCycleSummary writes the human-readable cycle outcome to stderr.
func printCycleSummary(cycle *pipeline.CycleResult) {
	var bytes int64

	for _, pl := range cycle.Playlists {
		for _, item := range pl.Items {
			bytes += item.Bytes
		}
	}

	statusf("\nCycle complete in %s: %d playlists, %d found, %d downloaded (%s), %d removed, %d failed\n",
		cycle.Duration().Round(time.Second),
		cycle.PlaylistsProcessed,
		cycle.Found,
		cycle.Downloaded,
		humanize.IBytes(uint64(bytes)),
		cycle.Removed,
		cycle.Failed,
	)
}
