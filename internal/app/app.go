// Package app wires the traversal, hashing, store, and diff components
// into the generate and diff workflows.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/dirsnap/dirsnap/internal/diff"
	"github.com/dirsnap/dirsnap/internal/scan"
	"github.com/dirsnap/dirsnap/internal/store"
)

// Options holds the traversal and hashing configuration shared by both
// workflows. The same options applied to the same tree produce the same
// record sequence whether hashing runs inline or on a pool.
type Options struct {
	Root     string
	MaxDepth int
	Ignore   []string
	Workers  int // 0 = hash inline, no pool
	Logger   *zap.Logger
}

func (o *Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// validate checks the configuration before any traversal begins;
// failures here are fatal at startup.
func (o *Options) validate() (string, error) {
	info, err := os.Stat(o.Root)
	if err != nil {
		return "", fmt.Errorf("source path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source path %s is not a directory", o.Root)
	}
	absRoot, err := filepath.Abs(o.Root)
	if err != nil {
		return "", fmt.Errorf("source path: %w", err)
	}

	// The root must be enumerable before any output artifact is
	// touched: an unreadable root would otherwise scan as empty and
	// replace a good snapshot with nothing.
	d, err := os.Open(absRoot)
	if err != nil {
		return "", fmt.Errorf("source path: %w", err)
	}
	defer d.Close()
	if _, err := d.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("source path %s: %w", o.Root, err)
	}
	return absRoot, nil
}

func (o *Options) newWalker(absRoot string, pool *scan.Pool) *scan.Walker {
	w := scan.NewWalker(absRoot, o.MaxDepth, o.Ignore)
	w.SetPool(pool)
	w.SetLogger(o.logger())
	return w
}

// Generate scans the tree and persists the snapshot to outPath,
// replacing any file already there. On failure no snapshot file is left
// behind.
func Generate(ctx context.Context, opts Options, outPath string) error {
	log := opts.logger()

	absRoot, err := opts.validate()
	if err != nil {
		return err
	}

	pool := scan.NewPool(opts.Workers)
	defer pool.Close()
	walker := opts.newWalker(absRoot, pool)

	st, err := store.Create(outPath)
	if err != nil {
		return err
	}
	defer st.Close()

	start := time.Now()
	count, err := st.Save(ctx, func() (*store.Record, error) {
		rec, err := walker.Next()
		if err != nil || rec == nil {
			return nil, err
		}
		digest, err := rec.MD5()
		if err != nil {
			return nil, err
		}
		log.Debug("scanned", zap.String("name", rec.Name), zap.Int64("size", rec.Size))
		return &store.Record{Name: rec.Name, Size: rec.Size, Mtime: rec.Mtime, MD5: digest}, nil
	})
	if err != nil {
		st.Close()
		os.Remove(outPath)
		return err
	}

	log.Info("snapshot written",
		zap.String("root", absRoot),
		zap.String("snapshot", outPath),
		zap.Int("files", count),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Diff re-scans the tree, compares each record against the snapshot at
// dbPath, and writes the absolute path of every new-or-changed file to
// outPath, one per line in traversal order. An aborted run leaves no
// partial report.
func Diff(ctx context.Context, opts Options, dbPath, outPath string, policy diff.Policy) error {
	log := opts.logger()

	absRoot, err := opts.validate()
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	pool := scan.NewPool(opts.Workers)
	defer pool.Close()
	walker := opts.newWalker(absRoot, pool)

	engine := diff.New(st, policy)
	engine.SetLogger(log)

	report, err := diff.NewReportWriter(outPath)
	if err != nil {
		return err
	}
	defer report.Discard()

	start := time.Now()
	scanned, changed := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := walker.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
		scanned++

		hit, err := engine.Classify(ctx, rec)
		if err != nil {
			return err
		}
		if !hit {
			continue
		}
		changed++
		if err := report.WritePath(filepath.Join(absRoot, filepath.FromSlash(rec.Name))); err != nil {
			return err
		}
	}

	if err := report.Commit(); err != nil {
		return err
	}

	log.Info("diff report written",
		zap.String("root", absRoot),
		zap.String("snapshot", dbPath),
		zap.String("report", outPath),
		zap.Int("scanned", scanned),
		zap.Int("changed", changed),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
