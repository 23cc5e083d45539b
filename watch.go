package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/avirta/ytarchiver/internal/config"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run synchronization cycles continuously",
		Long: `Run sync cycles in a loop, sleeping the configured interval between them.

With reload_config enabled in the [watch] section, edits to the config file
take effect at the start of the next cycle without a restart. Stop with
Ctrl-C; the in-flight item finishes its commit before shutdown.`,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	cfg := resolvedCfg

	interval, err := config.ParseWatchInterval(cfg.Watch.Interval)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	var reloadCh <-chan struct{}

	if cfg.Watch.ReloadConfig {
		ch, closer, err := watchConfigFile(resolvedCfgPath, logger)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		defer closer()

		reloadCh = ch
	}

	logger.Info("watch mode started",
		slog.Duration("interval", interval),
		slog.Bool("reload_config", cfg.Watch.ReloadConfig),
	)

	for {
		cycle, err := runSyncCycle(ctx, cfg, logger)
		if err != nil {
			// A broken cycle setup (missing binary, missing token) is not
			// transient; bail out rather than spin.
			return err
		}

		printCycleSummary(cycle)

		if ctx.Err() != nil {
			return nil
		}

		logger.Info("cycle finished, sleeping", slog.Duration("interval", interval))

		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		case <-reloadCh:
			timer.Stop()

			if next := reloadConfig(logger); next != nil {
				cfg = next

				if interval, err = config.ParseWatchInterval(cfg.Watch.Interval); err != nil {
					return fmt.Errorf("watch: reloaded config: %w", err)
				}
			}
		}
	}
}

// watchConfigFile watches the directory containing path and signals on the
// returned channel whenever the config file is written or replaced. Watching
// the directory rather than the file survives editors that rename-over.
func watchConfigFile(path string, logger *slog.Logger) (<-chan struct{}, func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("creating config watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Name != path {
					continue
				}

				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				logger.Debug("config file changed", slog.String("op", event.Op.String()))

				// Coalesce bursts; one pending signal is enough.
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				logger.Warn("config watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	return ch, func() { watcher.Close() }, nil
}

// reloadConfig re-reads the config file. On failure the previous config
// stays in effect.
func reloadConfig(logger *slog.Logger) *config.Config {
	cfg, err := config.Load(resolvedCfgPath)
	if err != nil {
		logger.Warn("config reload failed, keeping previous config",
			slog.String("path", resolvedCfgPath),
			slog.String("error", err.Error()),
		)

		return nil
	}

	logger.Info("config reloaded",
		slog.String("path", resolvedCfgPath),
		slog.Int("playlists", len(cfg.Playlists)),
	)

	return cfg
}
