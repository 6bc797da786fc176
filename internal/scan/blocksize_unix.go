//go:build unix

package scan

import (
	"os"
	"syscall"
)

// blockSizeFor returns the stat-reported preferred I/O block size for
// the file, or 0 when the information is unavailable.
func blockSizeFor(info os.FileInfo) int {
	if st, ok := info.Sys().(*syscall.Stat_t); ok && st.Blksize > 0 {
		return int(st.Blksize)
	}
	return 0
}
