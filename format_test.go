package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrintTable_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf,
		[]string{"NAME", "COUNT"},
		[][]string{
			{"short", "1"},
			{"a-much-longer-name", "42"},
		})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 3)

	// Every data cell starts at the same column as its header.
	assert.Equal(t, "NAME                COUNT", string(bytes.TrimRight(lines[0], " ")))
	assert.Equal(t, "short               1", string(bytes.TrimRight(lines[1], " ")))
	assert.Equal(t, "a-much-longer-name  42", string(bytes.TrimRight(lines[2], " ")))
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	sameYear := time.Date(now.Year(), 3, 5, 14, 30, 0, 0, time.Local)
	assert.Equal(t, sameYear.Format("Jan _2 15:04"), formatTime(sameYear))

	otherYear := time.Date(now.Year()-2, 3, 5, 14, 30, 0, 0, time.Local)
	assert.Equal(t, otherYear.Format("Jan _2  2006"), formatTime(otherYear))
}
