package ytdlp

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Download status values carried into the persisted record.
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Progress accumulates per-attempt download state parsed from yt-dlp's
// progress stream, plus timing and the retry counter. Sizes are normalized
// to bytes and rates to Mbps.
type Progress struct {
	StartTime       *time.Time
	EndTime         *time.Time
	TotalBytes      int64
	DownloadedBytes int64
	SpeedMbps       float64
	ETASeconds      int
	Percentage      float64
	RetryCount      int
	Status          string
}

// NewProgress returns a Progress in the pending state.
func NewProgress() *Progress {
	return &Progress{Status: StatusPending}
}

// Start marks the download as running.
func (p *Progress) Start(now time.Time) {
	p.StartTime = &now
	p.Status = StatusDownloading
}

// Complete marks the download finished at 100%.
func (p *Progress) Complete(now time.Time) {
	p.EndTime = &now
	p.Status = StatusCompleted
	p.Percentage = 100.0
}

// Fail marks the attempt failed and bumps the retry counter.
func (p *Progress) Fail(now time.Time) {
	p.EndTime = &now
	p.Status = StatusFailed
	p.RetryCount++
}

// Duration returns the elapsed download time. While still running, it is
// measured against now.
func (p *Progress) Duration(now time.Time) time.Duration {
	if p.StartTime == nil {
		return 0
	}

	end := now
	if p.EndTime != nil {
		end = *p.EndTime
	}

	return end.Sub(*p.StartTime)
}

// Progress line shape:
//
//	[download]  45.2% of  123.45MiB at  1.23MiB/s ETA 00:42
var (
	percentRe = regexp.MustCompile(`(\d+\.?\d*)%`)
	sizeRe    = regexp.MustCompile(`of\s+~?\s*([\d.]+)(KiB|MiB|GiB|B)`)
	speedRe   = regexp.MustCompile(`at\s+([\d.]+)(KiB|MiB|GiB|B)/s`)
	etaRe     = regexp.MustCompile(`ETA\s+(\d+):(\d+)`)
)

// errorMarkers elevate a line to warning severity. They do not by themselves
// abort the attempt — only the exit status does.
var errorMarkers = []string{"error", "warning", "failed"}

// bytesForUnit maps yt-dlp size suffixes to byte multipliers.
func bytesForUnit(unit string) float64 {
	switch unit {
	case "KiB":
		return 1024
	case "MiB":
		return 1024 * 1024
	case "GiB":
		return 1024 * 1024 * 1024
	default: // "B"
		return 1
	}
}

// ConsumeLine parses one output line, best effort. Unparsable lines are
// logged and ignored; progress lines update the running totals. Reports
// whether the line updated progress.
func (p *Progress) ConsumeLine(line string, logger *slog.Logger) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	parsed := false
	if strings.Contains(line, "[download]") && strings.Contains(line, "%") {
		p.parseProgressLine(line)
		parsed = true
	}

	lower := strings.ToLower(line)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			logger.Warn("downloader output", slog.String("line", line))
			return parsed
		}
	}

	logger.Debug("downloader output", slog.String("line", line))

	return parsed
}

// parseProgressLine extracts percentage, total size, rate, and ETA from a
// progress line. Each token is optional; whatever parses is applied.
func (p *Progress) parseProgressLine(line string) {
	if m := percentRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.Percentage = v
		}
	}

	if m := sizeRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.TotalBytes = int64(v * bytesForUnit(m[2]))
		}
	}

	if m := speedRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			// Bytes/s to megabits/s.
			p.SpeedMbps = v * bytesForUnit(m[2]) * 8 / (1024 * 1024)
		}
	}

	if m := etaRe.FindStringSubmatch(line); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		p.ETASeconds = minutes*60 + seconds
	}

	if p.TotalBytes > 0 {
		p.DownloadedBytes = int64(float64(p.TotalBytes) * p.Percentage / 100)
	}
}
