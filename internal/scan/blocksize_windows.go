//go:build !unix

package scan

import "os"

// blockSizeFor returns 0 on platforms without a stat-reported block
// size; HashFile falls back to DefaultBlockSize.
func blockSizeFor(info os.FileInfo) int {
	return 0
}
