//go:build !linux

package hostfw

import (
	"errors"
	"runtime"
)

// HostDisks lists the whole-disk block devices of this machine. It is only
// implemented on Linux.
func HostDisks() ([]string, error) {
	return nil, errors.New("host disk listing is not supported on " + runtime.GOOS)
}
