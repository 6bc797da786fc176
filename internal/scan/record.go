// Package scan provides directory traversal and content hashing for
// building file snapshots.
package scan

import (
	"fmt"
	"os"
)

// FileRecord holds the metadata and content fingerprint captured for one
// file during a traversal. Name is the slash-separated path relative to
// the scan root and uniquely identifies the record within a snapshot.
type FileRecord struct {
	Name  string
	Size  int64
	Mtime int64 // modification time, Unix nanoseconds

	digest  string
	pending *Future
}

// ScanFile stats and hashes a single file outside a walk, producing a
// fully resolved record. Used by the live monitor, where files arrive
// one at a time from filesystem events rather than a traversal.
func ScanFile(abs, name string) (*FileRecord, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	digest, err := HashFile(abs, blockSizeFor(info))
	if err != nil {
		return nil, err
	}
	return &FileRecord{
		Name:   name,
		Size:   info.Size(),
		Mtime:  info.ModTime().UnixNano(),
		digest: digest,
	}, nil
}

// MD5 returns the hex-encoded MD5 digest of the file's content. When the
// hash was dispatched to a worker pool, MD5 blocks until the worker has
// finished. A hash read failure is returned as-is and aborts the run;
// it is never masked the way per-entry traversal errors are.
func (r *FileRecord) MD5() (string, error) {
	if r.pending != nil {
		digest, err := r.pending.Wait()
		if err != nil {
			return "", err
		}
		r.digest = digest
		r.pending = nil
	}
	return r.digest, nil
}
