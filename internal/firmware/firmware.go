// Package firmware describes the services the boot agent borrows from the
// platform firmware: block access, file access on the boot volume and the
// text console. Components receive these through a Services value instead of
// reaching for global firmware tables, so every service can be replaced by a
// fake in tests or by a host implementation outside firmware.
package firmware

import "errors"

var (
	// ErrNotFound is returned by FileIO when the requested file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDeviceError is a generic I/O failure reported by a service.
	ErrDeviceError = errors.New("device error")
	// ErrNoMedia is returned when reading from a device without media.
	ErrNoMedia = errors.New("no media")
	// ErrMediaChanged is returned when a read names a stale media id.
	ErrMediaChanged = errors.New("media changed")
)

// Handle identifies a device handle. Its value is opaque to the agent.
type Handle uint64

// Media describes the medium currently attached to a block device.
type Media struct {
	MediaID          uint32
	Removable        bool
	Present          bool
	LastBlock        uint64 // number of blocks - 1
	BlockSize        uint32
	LogicalPartition bool
	ReadOnly         bool
	WriteCaching     bool
}

// Size returns the medium size in bytes.
func (m Media) Size() uint64 {
	if !m.Present || m.BlockSize == 0 {
		return 0
	}
	return (m.LastBlock + 1) * uint64(m.BlockSize)
}

// BlockIO lists block devices and reads bytes from them.
type BlockIO interface {
	// LocateHandles returns every handle supporting block access, in the
	// order the firmware reports them.
	LocateHandles() ([]Handle, error)
	// OpenMedia opens the block protocol on h and returns its media descriptor.
	OpenMedia(h Handle) (Media, error)
	// ReadDisk reads len(buf) bytes starting at byte offset.
	ReadDisk(h Handle, mediaID uint32, offset uint64, buf []byte) error
}

// FileIO reads whole files from the root volume the agent was loaded from.
type FileIO interface {
	ReadFile(path string) ([]byte, error)
}

// Console is the text console: blocking key input plus positioned,
// attributed text output.
type Console interface {
	// ReadKey blocks until a key is available.
	ReadKey() (Key, error)
	ClearScreen() error
	// QueryMode returns the console geometry in character cells.
	QueryMode() (columns, rows int, err error)
	SetCursorPosition(column, row int) error
	OutputString(s string) error
	SetAttribute(a Attribute) error
}

// Services bundles the firmware services handed to the agent.
type Services struct {
	Block   BlockIO
	Files   FileIO
	Console Console
}
