package shared

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// StartMarker is the message logged first by every run; [CopyLastExecution] falls back to it.
const StartMarker = "process started"

var timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}[+-]\d{2}:?\d{2}`)

// OpenHistoryLog opens the append-only history log, creating it and its directory if needed.
func OpenHistoryLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create log directory: %v", ErrStateFile, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open history log: %v", ErrStateFile, err)
	}
	return f, nil
}

// CopyLastExecution writes the tail of the history log belonging to the latest run into lastExePath.
//
// The section starts at the first line tagged with runID. When no line carries the tag, the
// section starts at the last [StartMarker] line.
func CopyLastExecution(historyPath, lastExePath, runID string) error {
	history, err := os.ReadFile(historyPath)
	if err != nil {
		return fmt.Errorf("%w: failed to read history log: %v", ErrStateFile, err)
	}

	start := -1
	if runID != "" {
		start = lineStart(history, bytes.Index(history, []byte("run="+runID)))
	}
	if start < 0 {
		start = lineStart(history, bytes.LastIndex(history, []byte(StartMarker)))
	}
	if start < 0 {
		return fmt.Errorf("%w: no run found in %s", ErrStateFile, historyPath)
	}

	if err := os.WriteFile(lastExePath, history[start:], 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", ErrStateFile, lastExePath, err)
	}
	return nil
}

// LastExecution parses the timestamp of the first line of the last-execution log.
func LastExecution(lastExePath string) (time.Time, error) {
	data, err := os.ReadFile(lastExePath)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: failed to read %s: %v", ErrStateFile, lastExePath, err)
	}

	first, _, _ := strings.Cut(string(data), "\n")
	match := timestampPattern.FindString(first)
	if match == "" {
		return time.Time{}, fmt.Errorf("%w: no timestamp in first line of %s", ErrStateFile, lastExePath)
	}

	// Offsets may be written as +01:00 or +0100.
	if match[len(match)-3] == ':' {
		match = match[:len(match)-3] + match[len(match)-2:]
	}

	t, err := time.Parse(TimeFormat, match)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrStateFile, err)
	}
	return t, nil
}

func lineStart(data []byte, idx int) int {
	if idx < 0 {
		return -1
	}
	return bytes.LastIndexByte(data[:idx], '\n') + 1
}
