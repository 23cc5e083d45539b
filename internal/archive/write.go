package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteVideoInfo commits the metadata record to dir atomically: temp file in
// the same directory, fsync, rename. A reader can never observe a truncated
// record, so a crash mid-write leaves the folder looking incomplete and the
// next cycle retries the item.
func WriteVideoInfo(dir string, info *VideoInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encoding %s: %w", RecordFileName, err)
	}

	tmp, err := os.CreateTemp(dir, ".video_info-*.tmp")
	if err != nil {
		return fmt.Errorf("archive: creating temp record: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("archive: writing record: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("archive: syncing record: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archive: closing record: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, RecordFileName)); err != nil {
		return fmt.Errorf("archive: committing record: %w", err)
	}

	success = true

	return nil
}

// ReadVideoInfo reads the metadata record from dir. Returns (nil, nil) when
// no record exists — the folder is in-progress or foreign, not an error.
// A present but corrupt record is also reported as (nil, nil): the scanner
// must not count it as archived.
func ReadVideoInfo(dir string) (*VideoInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, RecordFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "no record"
	}

	if err != nil {
		return nil, fmt.Errorf("archive: reading record in %s: %w", dir, err)
	}

	var info VideoInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, nil //nolint:nilnil // corrupt record = not archived
	}

	return &info, nil
}
