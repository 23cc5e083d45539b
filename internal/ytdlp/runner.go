// Package ytdlp wraps the external yt-dlp executable: it builds the fixed
// invocation contract, consumes the progress stream, applies the bounded
// retry policy, and derives the authoritative metadata record from the
// sidecar info file yt-dlp leaves behind.
package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner starts the retrieval executable and streams its output one line at
// a time. Narrow interface so the orchestrator can be tested without a real
// yt-dlp binary.
type Runner interface {
	// Run executes the binary with args in dir, invoking onLine for every
	// output line. Returns the process exit code. A non-nil error means the
	// process could not be run at all; a non-zero exit code with nil error
	// means it ran and failed.
	Run(ctx context.Context, dir string, args []string, onLine func(string)) (int, error)
}

// ExecRunner runs the real binary via os/exec, merging stderr into stdout so
// the progress parser sees every line, matching yt-dlp's own interleaving.
type ExecRunner struct {
	Binary string
	logger *slog.Logger
}

// NewExecRunner creates an ExecRunner for the given binary name or path.
func NewExecRunner(binary string, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecRunner{Binary: binary, logger: logger}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir string, args []string, onLine func(string)) (int, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("ytdlp: creating stdout pipe: %w", err)
	}

	cmd.Stderr = cmd.Stdout // merge, yt-dlp writes progress to stdout and noise to stderr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("ytdlp: starting %s: %w", r.Binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	// Progress lines are short, but description echoes can be long.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		onLine(scanner.Text())
	}

	if scanErr := scanner.Err(); scanErr != nil {
		r.logger.Warn("output stream read error", slog.String("error", scanErr.Error()))
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}

		return 0, fmt.Errorf("ytdlp: waiting for %s: %w", r.Binary, err)
	}

	return 0, nil
}

// CheckBinary probes the binary with --version. Called once at startup so a
// missing executable is a configuration error, not N item failures.
func CheckBinary(ctx context.Context, binary string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("ytdlp: %s not available: %w", binary, err)
	}

	return strings.TrimSpace(string(out)), nil
}
