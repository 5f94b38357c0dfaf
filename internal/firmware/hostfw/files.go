package hostfw

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"neoboot/internal/firmware"
)

// DirFiles is a firmware.FileIO rooted at a directory that stands in for
// the boot volume. Paths may use '\' separators and may not leave the root.
type DirFiles struct {
	Root string
}

var _ firmware.FileIO = DirFiles{}

// ReadFile implements firmware.FileIO.
func (d DirFiles) ReadFile(path string) ([]byte, error) {
	rel := strings.TrimLeft(strings.ReplaceAll(path, `\`, "/"), "/")
	if rel == "" {
		return nil, fmt.Errorf("%s: not a file: %w", path, firmware.ErrNotFound)
	}

	root, err := os.OpenRoot(d.Root)
	if err != nil {
		return nil, fmt.Errorf("open volume %s: %w: %w", d.Root, firmware.ErrDeviceError, err)
	}
	defer func() {
		_ = root.Close()
	}()

	data, err := root.ReadFile(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, firmware.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, firmware.ErrDeviceError, err)
	}
	return data, nil
}
