//go:build linux

package hostfw

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// logicalBlockSize returns the logical sector size of a block device.
func logicalBlockSize(file *os.File) uint32 {
	size, err := unix.IoctlGetInt(int(file.Fd()), unix.BLKSSZGET)
	if err == nil && size > 0 {
		return uint32(size)
	}

	// e.g. /dev/nvme0n1 -> nvme0n1
	sysfs := "/sys/class/block/" + filepath.Base(file.Name()) + "/queue/logical_block_size"
	if data, err := os.ReadFile(sysfs); err == nil {
		if sz, convErr := strconv.Atoi(strings.TrimSpace(string(data))); convErr == nil && sz > 0 {
			return uint32(sz)
		}
	}

	return defaultBlockSize
}
