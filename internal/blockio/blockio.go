// Package blockio enumerates the block devices exposed by the firmware.
package blockio

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"neoboot/internal/firmware"
)

var (
	// ErrDeviceEnumeration means the firmware could not list block devices at all.
	ErrDeviceEnumeration = errors.New("block device enumeration failed")
	// ErrProtocolOpen means the block protocol could not be opened on one device.
	ErrProtocolOpen = errors.New("block protocol open failed")
)

// Device is one block device found during enumeration.
type Device struct {
	// Index is the position of the device in enumeration order.
	Index  int
	Handle firmware.Handle
	Media  firmware.Media
	// OpenErr records a protocol open failure; Media is zero when set.
	OpenErr error
}

// Opened reports whether the block protocol was opened on the device.
func (d Device) Opened() bool {
	return d.OpenErr == nil
}

// Readable reports whether the device can be read: opened and with media.
func (d Device) Readable() bool {
	return d.Opened() && d.Media.Present
}

func (d Device) String() string {
	return fmt.Sprintf("disk%d", d.Index)
}

// Enumerator lists block devices through the firmware block service.
type Enumerator struct {
	io  firmware.BlockIO
	log *zap.Logger
}

// NewEnumerator returns an Enumerator reading through bio.
func NewEnumerator(bio firmware.BlockIO, log *zap.Logger) *Enumerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enumerator{io: bio, log: log}
}

// Enumerate returns every device the firmware lists, in its order. Devices
// whose protocol cannot be opened are kept with OpenErr set and enumeration
// continues. Only a failure to list devices at all is returned as an error.
func (e *Enumerator) Enumerate() ([]Device, error) {
	handles, err := e.io.LocateHandles()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceEnumeration, err)
	}

	devices := make([]Device, 0, len(handles))
	for i, h := range handles {
		dev := Device{Index: i, Handle: h}

		media, err := e.io.OpenMedia(h)
		if err != nil {
			dev.OpenErr = fmt.Errorf("%s: %w: %w", dev, ErrProtocolOpen, err)
			e.log.Warn("skipping device", zap.Int("device", i), zap.Error(err))
			devices = append(devices, dev)
			continue
		}
		dev.Media = media

		e.log.Debug("found device",
			zap.Int("device", i),
			zap.Uint32("media_id", media.MediaID),
			zap.Bool("present", media.Present),
			zap.Bool("removable", media.Removable),
			zap.Uint64("last_block", media.LastBlock),
			zap.Uint32("block_size", media.BlockSize),
			zap.Bool("read_only", media.ReadOnly),
		)
		devices = append(devices, dev)
	}

	return devices, nil
}

// ReaderAt returns an io.ReaderAt over the device's current media.
func (e *Enumerator) ReaderAt(dev Device) io.ReaderAt {
	return &deviceReader{io: e.io, dev: dev}
}

type deviceReader struct {
	io  firmware.BlockIO
	dev Device
}

func (r *deviceReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%s: negative offset %d", r.dev, off)
	}
	if !r.dev.Readable() {
		return 0, fmt.Errorf("%s: %w", r.dev, firmware.ErrNoMedia)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := r.io.ReadDisk(r.dev.Handle, r.dev.Media.MediaID, uint64(off), p); err != nil {
		return 0, err
	}
	return len(p), nil
}
