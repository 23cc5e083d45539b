package ytdlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		MaxRetries:       3,
		MaxHeight:        2160,
		SubtitleLangs:    "en.*,zh.*",
		SocketTimeoutSec: 30,
		FragmentRetries:  3,
	}
}

func TestBuildArgs_FlagContract(t *testing.T) {
	args := BuildArgs("https://www.youtube.com/watch?v=abc", "/archive/folder", testOptions())

	require.NotEmpty(t, args)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", args[0])

	// Flags with values.
	assertFlagValue(t, args, "--output", "/archive/folder/%(title)s.%(ext)s")
	assertFlagValue(t, args, "--format", "best[height<=?2160]")
	assertFlagValue(t, args, "--sub-langs", "en.*,zh.*")
	assertFlagValue(t, args, "--retries", "3")
	assertFlagValue(t, args, "--fragment-retries", "3")
	assertFlagValue(t, args, "--socket-timeout", "30")

	// Bare flags.
	for _, flag := range []string{
		"--write-subs", "--write-auto-subs", "--write-thumbnail",
		"--write-info-json", "--write-description",
		"--continue", "--no-overwrites", "--part",
		"--newline", "--progress",
	} {
		assert.Contains(t, args, flag)
	}
}

func TestBuildArgs_HeightCeilingFromOptions(t *testing.T) {
	opt := testOptions()
	opt.MaxHeight = 1080

	args := BuildArgs("url", "/dir", opt)
	assertFlagValue(t, args, "--format", "best[height<=?1080]")
}

func assertFlagValue(t *testing.T, args []string, flag, want string) {
	t.Helper()

	for i, a := range args {
		if a == flag {
			require.Less(t, i+1, len(args), "flag %s has no value", flag)
			assert.Equal(t, want, args[i+1], "flag %s", flag)
			return
		}
	}

	t.Errorf("flag %s not found in %v", flag, args)
}
