package diff

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// ReportWriter writes the diff report: one absolute POSIX-style path
// per line, newline-terminated, in traversal order. Output goes to a
// temp file in the target directory and only reaches the final path on
// Commit, so an aborted run leaves no partial report behind.
type ReportWriter struct {
	f     *os.File
	w     *bufio.Writer
	final string
	done  bool
}

// NewReportWriter creates the temp file next to path.
func NewReportWriter(path string) (*ReportWriter, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create report %s: %w", path, err)
	}
	return &ReportWriter{f: f, w: bufio.NewWriter(f), final: path}, nil
}

// WritePath appends one absolute path line to the report.
func (r *ReportWriter) WritePath(abs string) error {
	if _, err := r.w.WriteString(filepath.ToSlash(abs) + "\n"); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Commit flushes and atomically moves the report into place.
func (r *ReportWriter) Commit() error {
	if err := r.w.Flush(); err != nil {
		r.Discard()
		return fmt.Errorf("flush report: %w", err)
	}
	if err := r.f.Close(); err != nil {
		os.Remove(r.f.Name())
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(r.f.Name(), r.final); err != nil {
		os.Remove(r.f.Name())
		return fmt.Errorf("finalize report %s: %w", r.final, err)
	}
	r.done = true
	return nil
}

// Discard drops the temp file. Safe to call after Commit.
func (r *ReportWriter) Discard() {
	if r.done {
		return
	}
	r.f.Close()
	os.Remove(r.f.Name())
	r.done = true
}
