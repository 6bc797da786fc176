package scan

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Walker lazily walks a directory tree depth-first, yielding one
// FileRecord per eligible regular file. The sequence is single-pass and
// non-restartable: create a fresh Walker for every run.
//
// Depth counts enumerated directory levels starting at 0 for the root,
// and a directory is only enumerated while its level is below maxDepth.
// maxDepth=1 therefore yields the root's immediate files only, and
// maxDepth=0 yields nothing.
type Walker struct {
	root     string
	maxDepth int
	ignore   []string

	pool   *Pool
	logger *zap.Logger

	started bool
	stack   []*frame
}

type frame struct {
	abs     string
	rel     string // slash-separated, "" for the root itself
	depth   int
	entries []os.DirEntry
	next    int
}

// NewWalker creates a walker rooted at root. The ignore slice is copied
// so later mutation by the caller cannot leak into the walk.
func NewWalker(root string, maxDepth int, ignore []string) *Walker {
	return &Walker{
		root:     root,
		maxDepth: maxDepth,
		ignore:   append([]string(nil), ignore...),
		logger:   zap.NewNop(),
	}
}

// SetPool dispatches hash computation to p instead of hashing inline.
// A nil pool keeps hashing synchronous.
func (w *Walker) SetPool(p *Pool) {
	w.pool = p
}

// SetLogger sets the logger used for skipped-entry debug messages.
func (w *Walker) SetLogger(l *zap.Logger) {
	w.logger = l
}

// Next returns the next FileRecord in traversal order, or (nil, nil)
// once the walk is exhausted. Per-entry failures below the root (stat
// errors, unreadable subdirectories, entries disappearing mid-scan)
// skip the entry and continue with its siblings. A root that cannot be
// enumerated is fatal: yielding an empty sequence there would let a
// failed scan masquerade as an empty tree. Inline hash read failures
// also surface as errors.
func (w *Walker) Next() (*FileRecord, error) {
	if !w.started {
		w.started = true
		if w.maxDepth > 0 {
			entries, err := os.ReadDir(w.root)
			if err != nil {
				return nil, fmt.Errorf("read root %s: %w", w.root, err)
			}
			w.stack = append(w.stack, &frame{abs: w.root, entries: entries})
		}
	}

	for len(w.stack) > 0 {
		f := w.stack[len(w.stack)-1]
		if f.next >= len(f.entries) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		e := f.entries[f.next]
		f.next++

		rel := e.Name()
		if f.rel != "" {
			rel = path.Join(f.rel, e.Name())
		}
		if w.ignored(e.Name(), rel) {
			continue
		}

		abs := filepath.Join(f.abs, e.Name())
		switch {
		case e.Type().IsRegular():
			rec, err := w.record(abs, rel, e)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				continue
			}
			return rec, nil
		case e.IsDir():
			if f.depth+1 < w.maxDepth {
				w.push(abs, rel, f.depth+1)
			}
		default:
			// symlinks, devices, sockets
		}
	}

	return nil, nil
}

// record builds the FileRecord for a regular file. A stat failure skips
// the entry (nil, nil); an inline hash failure propagates.
func (w *Walker) record(abs, rel string, e os.DirEntry) (*FileRecord, error) {
	info, err := e.Info()
	if err != nil {
		w.logger.Debug("skipping entry", zap.String("path", abs), zap.Error(err))
		return nil, nil
	}

	rec := &FileRecord{
		Name:  rel,
		Size:  info.Size(),
		Mtime: info.ModTime().UnixNano(),
	}

	blockSize := blockSizeFor(info)
	if w.pool != nil {
		rec.pending = w.pool.Submit(abs, blockSize)
		return rec, nil
	}

	digest, err := HashFile(abs, blockSize)
	if err != nil {
		return nil, err
	}
	rec.digest = digest
	return rec, nil
}

// push enumerates a subdirectory; failures here are masked, unlike the
// root read in Next.
func (w *Walker) push(abs, rel string, depth int) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		w.logger.Debug("skipping unreadable directory", zap.String("path", abs), zap.Error(err))
		return
	}
	w.stack = append(w.stack, &frame{abs: abs, rel: rel, depth: depth, entries: entries})
}

func (w *Walker) ignored(name, rel string) bool {
	return MatchAny(w.ignore, name, rel)
}

// MatchAny reports whether any ignore pattern matches the entry. A bare
// pattern matches the entry's base name at any level, a slashed pattern
// matches the trailing components of the relative path (so "a/*.py"
// matches "a/x.py" and "sub/a/x.py").
func MatchAny(patterns []string, name, rel string) bool {
	for _, pat := range patterns {
		if matchPattern(pat, name, rel) {
			return true
		}
	}
	return false
}

func matchPattern(pat, name, rel string) bool {
	if !strings.Contains(pat, "/") {
		ok, _ := path.Match(pat, name)
		return ok
	}

	n := strings.Count(pat, "/") + 1
	parts := strings.Split(rel, "/")
	if len(parts) < n {
		return false
	}
	tail := strings.Join(parts[len(parts)-n:], "/")
	ok, _ := path.Match(pat, tail)
	return ok
}
