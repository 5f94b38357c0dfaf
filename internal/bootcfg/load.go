package bootcfg

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"neoboot/internal/firmware"
)

// DefaultPath is where the configuration lives on the boot volume.
const DefaultPath = `\neoboot\config`

var (
	// ErrNotFound means the configuration file does not exist.
	ErrNotFound = errors.New("config file not found")
	// ErrRead means the configuration file exists but could not be read.
	ErrRead = errors.New("config file read failed")
)

// Load reads and parses the configuration at path. On error the returned
// table is empty, never nil. Malformed tokens do not fail the load; they are
// logged and left on the table.
func Load(files firmware.FileIO, path string, log *zap.Logger) (*Table, error) {
	if log == nil {
		log = zap.NewNop()
	}

	data, err := files.ReadFile(path)
	if err != nil {
		if errors.Is(err, firmware.ErrNotFound) {
			log.Warn("config file not found", zap.String("path", path))
			return &Table{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		log.Warn("config file read failed", zap.String("path", path), zap.Error(err))
		return &Table{}, fmt.Errorf("%s: %w: %w", path, ErrRead, err)
	}

	tbl := Parse(data)
	for _, e := range tbl.Malformed() {
		log.Warn("malformed config token", zap.String("path", path), zap.String("token", e.Key))
	}
	log.Info("config loaded", zap.String("path", path), zap.Int("entries", tbl.Len()))
	return tbl, nil
}
