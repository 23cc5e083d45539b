// Package history is the cycle ledger: a small SQLite database recording
// every cycle and every archived item, backing the status command. It is
// purely observational — the archive folders remain the durable source of
// truth, and a ledger write failure never fails a cycle.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/avirta/ytarchiver/internal/pipeline"
)

// History wraps the ledger database. Single-writer: the connection pool is
// capped at one connection, matching SQLite's locking model.
type History struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the ledger database at path and applies
// pending migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*History, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &History{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// RecordCycle persists one cycle result and its archived items in a single
// transaction. Returns the generated cycle id.
func (h *History) RecordCycle(ctx context.Context, cycle *pipeline.CycleResult) (string, error) {
	cycleID := uuid.NewString()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("history: begin record: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cycles
			(id, started_at, finished_at, playlists_processed,
			 successful_playlists, failed_playlists, found, downloaded, removed, failed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cycleID,
		cycle.StartTime.UTC().Format(time.RFC3339),
		cycle.EndTime.UTC().Format(time.RFC3339),
		cycle.PlaylistsProcessed,
		cycle.SuccessfulPlaylists,
		cycle.FailedPlaylists,
		cycle.Found,
		cycle.Downloaded,
		cycle.Removed,
		cycle.Failed,
	)
	if err != nil {
		return "", fmt.Errorf("history: inserting cycle: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items
			(cycle_id, playlist, video_id, title, folder_path,
			 bytes, duration_seconds, retries, removed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("history: preparing item insert: %w", err)
	}
	defer stmt.Close()

	for _, pl := range cycle.Playlists {
		for _, item := range pl.Items {
			_, err := stmt.ExecContext(ctx,
				cycleID, pl.Name, item.VideoID, item.Title, item.FolderPath,
				item.Bytes, item.Duration.Seconds(), item.Retries, boolToInt(item.Removed))
			if err != nil {
				return "", fmt.Errorf("history: inserting item %s: %w", item.VideoID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("history: committing record: %w", err)
	}

	h.logger.Debug("cycle recorded", slog.String("cycle_id", cycleID))

	return cycleID, nil
}

// CycleSummary is one row of the recent-cycles listing.
type CycleSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Playlists  int
	Found      int
	Downloaded int
	Removed    int
	Failed     int
}

// RecentCycles returns up to limit most recent cycles, newest first.
func (h *History) RecentCycles(ctx context.Context, limit int) ([]CycleSummary, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, playlists_processed,
			found, downloaded, removed, failed
			FROM cycles ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing cycles: %w", err)
	}
	defer rows.Close()

	var summaries []CycleSummary

	for rows.Next() {
		var (
			s                 CycleSummary
			started, finished string
		)

		if err := rows.Scan(&s.ID, &started, &finished, &s.Playlists,
			&s.Found, &s.Downloaded, &s.Removed, &s.Failed); err != nil {
			return nil, fmt.Errorf("history: scanning cycle row: %w", err)
		}

		s.StartedAt, _ = time.Parse(time.RFC3339, started)
		s.FinishedAt, _ = time.Parse(time.RFC3339, finished)

		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating cycles: %w", err)
	}

	return summaries, nil
}

// Totals aggregates across all recorded cycles.
type Totals struct {
	Cycles     int
	Downloaded int
	Removed    int
	Failed     int
	Bytes      int64
}

// Totals returns the all-time aggregate counters.
func (h *History) Totals(ctx context.Context) (Totals, error) {
	var t Totals

	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(downloaded), 0), COALESCE(SUM(removed), 0), COALESCE(SUM(failed), 0)
			FROM cycles`).
		Scan(&t.Cycles, &t.Downloaded, &t.Removed, &t.Failed)
	if err != nil {
		return Totals{}, fmt.Errorf("history: aggregating cycles: %w", err)
	}

	err = h.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(bytes), 0) FROM items`).Scan(&t.Bytes)
	if err != nil {
		return Totals{}, fmt.Errorf("history: aggregating items: %w", err)
	}

	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
