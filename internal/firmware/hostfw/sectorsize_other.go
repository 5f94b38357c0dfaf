//go:build !linux

package hostfw

import "os"

func logicalBlockSize(*os.File) uint32 {
	return defaultBlockSize
}
