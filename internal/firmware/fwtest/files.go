package fwtest

import (
	"fmt"

	"neoboot/internal/firmware"
)

// Files is an in-memory firmware.FileIO.
type Files struct {
	Contents map[string][]byte
	// Err, when set, is returned by every read.
	Err error
}

var _ firmware.FileIO = (*Files)(nil)

// ReadFile implements firmware.FileIO.
func (f *Files) ReadFile(path string) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	data, ok := f.Contents[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, firmware.ErrNotFound)
	}
	return data, nil
}
