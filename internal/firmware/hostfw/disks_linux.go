//go:build linux

package hostfw

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const sysBlock = "/sys/class/block"

var excludedDevicePrefixes = []string{"loop", "zram", "ram"}

// HostDisks lists the whole-disk block devices of this machine as /dev
// paths, for use as ImageBlockIO paths. Partitions and virtual devices are
// left out.
func HostDisks() ([]string, error) {
	return hostDisks(sysBlock, "/dev")
}

func hostDisks(sysRoot, devRoot string) ([]string, error) {
	entries, err := os.ReadDir(sysRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list block devices: %w", err)
	}

	var disks []string
	for _, e := range entries {
		name := e.Name()
		if slices.ContainsFunc(excludedDevicePrefixes, func(p string) bool { return strings.HasPrefix(name, p) }) {
			continue
		}
		if _, err := os.Stat(filepath.Join(sysRoot, name, "partition")); err == nil {
			continue
		}
		disks = append(disks, filepath.Join(devRoot, name))
	}
	return disks, nil
}
