// Package watch provides a live change monitor: fsnotify events on a
// directory tree are debounced and each touched file is re-scanned and
// compared against a stored snapshot.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dirsnap/dirsnap/internal/diff"
	"github.com/dirsnap/dirsnap/internal/scan"
)

// DefaultDebounce is the interval over which rapid events on the same
// path collapse into one re-scan.
const DefaultDebounce = 200 * time.Millisecond

// Event describes one file found new or changed relative to the
// snapshot.
type Event struct {
	Name string // path relative to the watched root, slash-separated
	Path string // absolute path
}

// Monitor watches a tree and classifies touched files against a
// snapshot. Deletions are not reported, matching the diff workflow.
type Monitor struct {
	root     string
	ignore   []string
	engine   *diff.Engine
	debounce time.Duration
	logger   *zap.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a monitor for the tree rooted at root. The engine holds
// the snapshot the live scan is compared against.
func New(root string, ignore []string, engine *diff.Engine) (*Monitor, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Monitor{
		root:     root,
		ignore:   append([]string(nil), ignore...),
		engine:   engine,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		fsw:      fsw,
		pending:  make(map[string]struct{}),
	}, nil
}

// SetLogger sets the logger for watch diagnostics.
func (m *Monitor) SetLogger(l *zap.Logger) {
	m.logger = l
}

// SetDebounce overrides the event coalescing interval.
func (m *Monitor) SetDebounce(d time.Duration) {
	if d > 0 {
		m.debounce = d
	}
}

// Run watches until ctx is cancelled, invoking handler for every
// new-or-changed file. Per-file scan failures are skipped, keeping the
// monitor best-effort like the traversal; only watcher setup errors are
// returned.
func (m *Monitor) Run(ctx context.Context, handler func(Event)) error {
	defer m.fsw.Close()

	if err := m.addDirs(m.root); err != nil {
		return err
	}

	ticker := time.NewTicker(m.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.flush(ctx, handler)
			return nil

		case ev, ok := <-m.fsw.Events:
			if !ok {
				return nil
			}
			m.handleEvent(ev)

		case err, ok := <-m.fsw.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			m.flush(ctx, handler)
		}
	}
}

// addDirs recursively registers every non-ignored directory.
func (m *Monitor) addDirs(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := m.relName(p); ok && rel != "." && m.isIgnored(p, rel) {
			return filepath.SkipDir
		}
		if err := m.fsw.Add(p); err != nil {
			m.logger.Warn("cannot watch directory", zap.String("path", p), zap.Error(err))
		}
		return nil
	})
}

func (m *Monitor) handleEvent(ev fsnotify.Event) {
	rel, ok := m.relName(ev.Name)
	if !ok || m.isIgnored(ev.Name, rel) {
		return
	}

	// New directories need an explicit watch.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := m.fsw.Add(ev.Name); err != nil {
				m.logger.Warn("cannot watch directory", zap.String("path", ev.Name), zap.Error(err))
			}
			return
		}
	}

	if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Rename) {
		m.mu.Lock()
		m.pending[ev.Name] = struct{}{}
		m.mu.Unlock()
	}
}

// flush re-scans every coalesced path and reports the changed ones.
func (m *Monitor) flush(ctx context.Context, handler func(Event)) {
	m.mu.Lock()
	batch := m.pending
	m.pending = make(map[string]struct{})
	m.mu.Unlock()

	for abs := range batch {
		rel, ok := m.relName(abs)
		if !ok {
			continue
		}

		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			// gone again or a directory; deletions are out of scope
			continue
		}

		rec, err := scan.ScanFile(abs, rel)
		if err != nil {
			m.logger.Debug("skipping unreadable file", zap.String("path", abs), zap.Error(err))
			continue
		}

		changed, err := m.engine.Classify(ctx, rec)
		if err != nil {
			m.logger.Warn("classify failed", zap.String("path", abs), zap.Error(err))
			continue
		}
		if changed {
			handler(Event{Name: rel, Path: abs})
		}
	}
}

// relName converts an absolute event path to the slash-separated
// snapshot key. ok=false when the path falls outside the root.
func (m *Monitor) relName(abs string) (string, bool) {
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (m *Monitor) isIgnored(abs, rel string) bool {
	return scan.MatchAny(m.ignore, filepath.Base(abs), rel)
}
