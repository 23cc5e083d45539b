package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// maxTitleRunes bounds the sanitized-title portion of a folder name so the
// full name stays well under filesystem limits even with long video ids.
const maxTitleRunes = 50

// untitledFallback is used when sanitization leaves nothing of the title.
const untitledFallback = "untitled"

var (
	unsafeChars = regexp.MustCompile(`[/\\:*?"<>|[:space:]]`)
	repeatedSep = regexp.MustCompile(`_+`)
)

// SanitizeTitle converts a video title into a filesystem-safe name fragment:
// NFC-normalized, path-unsafe and whitespace characters replaced with "_",
// repeats collapsed, edges trimmed, truncated to maxTitleRunes.
func SanitizeTitle(title string) string {
	s := norm.NFC.String(strings.TrimSpace(title))
	s = unsafeChars.ReplaceAllString(s, "_")

	if runes := []rune(s); len(runes) > maxTitleRunes {
		s = string(runes[:maxTitleRunes])
	}

	s = repeatedSep.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if s == "" {
		return untitledFallback
	}

	return s
}

// FolderName builds the deterministic per-item folder name:
// {YYYY-MM-DD}_{sanitized-title}_{video-id}. Folder identity is derivable
// without reading folder contents.
func FolderName(title, videoID string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s", date.Format("2006-01-02"), SanitizeTitle(title), videoID)
}

// CreateItemFolder creates (idempotently) the folder for one item under the
// archive root and returns its absolute path.
func CreateItemFolder(root, title, videoID string, date time.Time) (string, error) {
	dir := filepath.Join(root, FolderName(title, videoID, date))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("archive: creating item folder %s: %w", dir, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("archive: resolving item folder %s: %w", dir, err)
	}

	return abs, nil
}
