package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "MyVideo", "MyVideo"},
		{"spaces become underscores", "My Cool Video", "My_Cool_Video"},
		{"path separators", `a/b\c:d`, "a_b_c_d"},
		{"reserved chars", `a*b?c"d<e>f|g`, "a_b_c_d_e_f_g"},
		{"repeats collapsed", "a   b///c", "a_b_c"},
		{"edges trimmed", "  ?video?  ", "video"},
		{"empty", "", "untitled"},
		{"only unsafe chars", `///:::***`, "untitled"},
		{"unicode kept", "日本語タイトル", "日本語タイトル"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTitle(tt.title))
		})
	}
}

func TestSanitizeTitle_TruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("x", 200)

	got := SanitizeTitle(long)
	assert.Len(t, []rune(got), 50)
}

func TestSanitizeTitle_TruncatesByRunesNotBytes(t *testing.T) {
	long := strings.Repeat("語", 80)

	got := SanitizeTitle(long)
	assert.Equal(t, strings.Repeat("語", 50), got)
}

func TestFolderName(t *testing.T) {
	date := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	got := FolderName("My Video: Part 2", "dQw4w9WgXcQ", date)
	assert.Equal(t, "2026-03-14_My_Video_Part_2_dQw4w9WgXcQ", got)
}

func TestCreateItemFolder_CreatesAndReturnsAbsolutePath(t *testing.T) {
	root := t.TempDir()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	path, err := CreateItemFolder(root, "Video", "vid1", date)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "2026-03-14_Video_vid1", filepath.Base(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateItemFolder_Idempotent(t *testing.T) {
	root := t.TempDir()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	first, err := CreateItemFolder(root, "Video", "vid1", date)
	require.NoError(t, err)

	second, err := CreateItemFolder(root, "Video", "vid1", date)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
