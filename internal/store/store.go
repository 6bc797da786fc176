// Package store persists directory snapshots in a single-file embedded
// SQLite database keyed by relative path.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// Record is one persisted snapshot entry.
type Record struct {
	Name  string // path relative to the scan root, primary key
	Size  int64
	Mtime int64 // Unix nanoseconds
	MD5   string
}

// Store is a handle to one snapshot file. It is scoped to a single
// generate or diff run and is not safe for concurrent use by multiple
// processes; callers serialize access externally.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshot (
        name TEXT PRIMARY KEY,
        size INTEGER NOT NULL,
        mtime INTEGER NOT NULL,
        md5 TEXT NOT NULL
);
`

// Create opens a fresh snapshot store at path, unconditionally replacing
// any pre-existing file there (a missing file is not an error). The
// -wal and -shm sidecars go too: a WAL left by a crashed run would be
// replayed into the new database, resurrecting old records.
func Create(path string) (*Store, error) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("replace snapshot %s: %w", path, err)
		}
	}
	return open(path)
}

// Open opens an existing snapshot store for reading. A missing or
// unreadable store is a fatal error for the run.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return open(path)
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize snapshot %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string {
	return s.path
}

// Save consumes the record sequence inside one transaction. next
// returns (nil, nil) at end of sequence. Either the whole snapshot
// commits or the transaction rolls back; a crash or error mid-save
// never leaves a partially visible snapshot. Returns the number of
// records written.
func (s *Store) Save(ctx context.Context, next func() (*Record, error)) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot save: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO snapshot(name, size, mtime, md5) VALUES(?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
        size=excluded.size,
        mtime=excluded.mtime,
        md5=excluded.md5
`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			tx.Rollback()
			return 0, err
		}

		rec, err := next()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if rec == nil {
			break
		}

		if _, err := stmt.ExecContext(ctx, rec.Name, rec.Size, rec.Mtime, rec.MD5); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("store record %s: %w", rec.Name, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return count, nil
}

// Lookup returns the stored record for a relative path, with ok=false
// when the path is absent from the snapshot.
func (s *Store) Lookup(ctx context.Context, name string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, size, mtime, md5 FROM snapshot WHERE name = ?`, name)

	var rec Record
	err := row.Scan(&rec.Name, &rec.Size, &rec.Mtime, &rec.MD5)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup %s: %w", name, err)
	}
	return rec, true, nil
}

// Count returns the number of records in the snapshot.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
