package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/avirta/ytarchiver/internal/history"
)

// recentCycleLimit caps the table in the default status view.
const recentCycleLimit = 10

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show archive totals and recent cycles",
		Long: `Display all-time totals and the most recent sync cycles from the ledger.

Reads the local history database only — makes no network requests.`,
		RunE: runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Totals statusTotals  `json:"totals"`
	Cycles []statusCycle `json:"recent_cycles"`
}

type statusTotals struct {
	Cycles     int    `json:"cycles"`
	Downloaded int    `json:"downloaded"`
	Removed    int    `json:"removed"`
	Failed     int    `json:"failed"`
	Bytes      int64  `json:"bytes"`
	BytesHuman string `json:"bytes_human"`
}

type statusCycle struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Playlists  int       `json:"playlists"`
	Found      int       `json:"found"`
	Downloaded int       `json:"downloaded"`
	Removed    int       `json:"removed"`
	Failed     int       `json:"failed"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	if resolvedCfg.History.Path == "" {
		return fmt.Errorf("status: history is disabled (no [history] path configured)")
	}

	h, err := history.Open(ctx, resolvedCfg.History.Path, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	totals, err := h.Totals(ctx)
	if err != nil {
		return err
	}

	cycles, err := h.RecentCycles(ctx, recentCycleLimit)
	if err != nil {
		return err
	}

	if flagJSON {
		return printStatusJSON(totals, cycles)
	}

	printStatusTable(totals, cycles)

	return nil
}

func printStatusJSON(totals history.Totals, cycles []history.CycleSummary) error {
	out := statusOutput{
		Totals: statusTotals{
			Cycles:     totals.Cycles,
			Downloaded: totals.Downloaded,
			Removed:    totals.Removed,
			Failed:     totals.Failed,
			Bytes:      totals.Bytes,
			BytesHuman: humanize.IBytes(uint64(totals.Bytes)),
		},
		Cycles: make([]statusCycle, 0, len(cycles)),
	}

	for _, c := range cycles {
		out.Cycles = append(out.Cycles, statusCycle{
			ID:         c.ID,
			StartedAt:  c.StartedAt,
			FinishedAt: c.FinishedAt,
			Playlists:  c.Playlists,
			Found:      c.Found,
			Downloaded: c.Downloaded,
			Removed:    c.Removed,
			Failed:     c.Failed,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printStatusTable(totals history.Totals, cycles []history.CycleSummary) {
	fmt.Printf("Archived: %d items, %s across %d cycles (%d removals, %d failures)\n",
		totals.Downloaded,
		humanize.IBytes(uint64(totals.Bytes)),
		totals.Cycles,
		totals.Removed,
		totals.Failed,
	)

	if len(cycles) == 0 {
		fmt.Println("No cycles recorded yet. Run 'ytarchiver sync' to start.")
		return
	}

	fmt.Println()

	headers := []string{"STARTED", "DURATION", "PLAYLISTS", "FOUND", "DOWNLOADED", "REMOVED", "FAILED"}
	rows := make([][]string, 0, len(cycles))

	for _, c := range cycles {
		rows = append(rows, []string{
			formatTime(c.StartedAt),
			c.FinishedAt.Sub(c.StartedAt).Round(time.Second).String(),
			strconv.Itoa(c.Playlists),
			strconv.Itoa(c.Found),
			strconv.Itoa(c.Downloaded),
			strconv.Itoa(c.Removed),
			strconv.Itoa(c.Failed),
		})
	}

	printTable(os.Stdout, headers, rows)
}
