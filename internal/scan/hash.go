package scan

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DefaultBlockSize is used when the filesystem does not report a
// preferred I/O block size for a file.
const DefaultBlockSize = 32 * 1024

// HashFile streams the file through an MD5 digest in blockSize chunks
// and returns the hex-encoded digest. The whole file is never held in
// memory. blockSize <= 0 falls back to DefaultBlockSize.
func HashFile(path string, blockSize int) (string, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
