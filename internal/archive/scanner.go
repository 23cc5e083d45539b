package archive

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Scanner enumerates previously committed items under an archive root by
// reading each subfolder's metadata record.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner creates a Scanner.
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Scanner{logger: logger}
}

// Scan returns the set of video ids already archived under root. A folder
// without a readable record is skipped (in-progress or foreign). A missing
// root yields an empty set, not a failure — the first cycle against a fresh
// directory simply downloads everything.
func (s *Scanner) Scan(root string) (map[string]bool, error) {
	ids := make(map[string]bool)

	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("archive root does not exist yet", slog.String("root", root))
		return ids, nil
	}

	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(root, entry.Name())

		info, err := ReadVideoInfo(dir)
		if err != nil {
			s.logger.Warn("cannot read metadata record, skipping folder",
				slog.String("folder", entry.Name()),
				slog.String("error", err.Error()),
			)

			continue
		}

		if info == nil {
			s.logger.Debug("folder has no metadata record, skipping", slog.String("folder", entry.Name()))
			continue
		}

		id := info.VideoID()
		if id == "" {
			s.logger.Warn("metadata record missing video id, skipping folder", slog.String("folder", entry.Name()))
			continue
		}

		ids[id] = true
	}

	s.logger.Info("archive scan complete", slog.String("root", root), slog.Int("archived", len(ids)))

	return ids, nil
}
