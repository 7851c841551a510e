// Package copylog appends executed copy commands and their captured output
// to a log file for later audit of a clone run.
package copylog

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer appends to a single log file. The zero value (empty path) is a
// no-op writer, used when the caller did not request a log file.
type Writer struct {
	path string
}

// New creates a writer for the given path. An empty path disables logging.
func New(path string) *Writer {
	return &Writer{path: path}
}

// Enabled reports whether the writer has a destination.
func (w *Writer) Enabled() bool {
	return w != nil && w.path != ""
}

// Command appends the invoked command line, prefixed with "$ ".
func (w *Writer) Command(line string) error {
	return w.append(fmt.Sprintf("$ %s\n", line))
}

// Output appends captured stdout/stderr text verbatim. Empty text is
// skipped so the log stays readable.
func (w *Writer) Output(text string) error {
	if text == "" {
		return nil
	}
	return w.append(text)
}

func (w *Writer) append(text string) error {
	if !w.Enabled() {
		return nil
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", w.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("write log file %s: %w", w.path, err)
	}
	return nil
}
