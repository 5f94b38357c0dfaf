// Package fwtest provides scripted, in-memory firmware services for tests.
package fwtest

import (
	"fmt"

	"neoboot/internal/firmware"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start, End uint64
}

func (r Range) overlaps(off, n uint64) bool {
	return off < r.End && r.Start < off+n
}

// Disk is an in-memory block device.
type Disk struct {
	Media   firmware.Media
	Data    []byte
	OpenErr error
	// FailReads lists byte ranges whose reads fail with firmware.ErrDeviceError.
	FailReads []Range
}

// NewDisk returns a present disk with the given block size holding data.
// The data is padded to a whole number of blocks.
func NewDisk(blockSize uint32, data []byte) *Disk {
	bs := uint64(blockSize)
	size := (uint64(len(data)) + bs - 1) / bs * bs
	if size == 0 {
		size = bs
	}
	buf := make([]byte, size)
	copy(buf, data)

	return &Disk{
		Media: firmware.Media{
			MediaID:   1,
			Present:   true,
			BlockSize: blockSize,
			LastBlock: size/bs - 1,
		},
		Data: buf,
	}
}

// EmptyDrive returns a removable drive with no media.
func EmptyDrive() *Disk {
	return &Disk{Media: firmware.Media{MediaID: 1, Removable: true, BlockSize: 512}}
}

// ReadCall records one ReadDisk invocation.
type ReadCall struct {
	Handle firmware.Handle
	Offset uint64
	Length int
}

// Block is a firmware.BlockIO over a list of Disks; handle i addresses Disks[i].
type Block struct {
	Disks     []*Disk
	LocateErr error
	Reads     []ReadCall
}

var _ firmware.BlockIO = (*Block)(nil)

// LocateHandles implements firmware.BlockIO.
func (b *Block) LocateHandles() ([]firmware.Handle, error) {
	if b.LocateErr != nil {
		return nil, b.LocateErr
	}
	handles := make([]firmware.Handle, len(b.Disks))
	for i := range b.Disks {
		handles[i] = firmware.Handle(i)
	}
	return handles, nil
}

// OpenMedia implements firmware.BlockIO.
func (b *Block) OpenMedia(h firmware.Handle) (firmware.Media, error) {
	d, err := b.disk(h)
	if err != nil {
		return firmware.Media{}, err
	}
	if d.OpenErr != nil {
		return firmware.Media{}, d.OpenErr
	}
	return d.Media, nil
}

// ReadDisk implements firmware.BlockIO.
func (b *Block) ReadDisk(h firmware.Handle, mediaID uint32, offset uint64, buf []byte) error {
	b.Reads = append(b.Reads, ReadCall{Handle: h, Offset: offset, Length: len(buf)})

	d, err := b.disk(h)
	if err != nil {
		return err
	}
	if !d.Media.Present {
		return firmware.ErrNoMedia
	}
	if mediaID != d.Media.MediaID {
		return firmware.ErrMediaChanged
	}
	for _, r := range d.FailReads {
		if r.overlaps(offset, uint64(len(buf))) {
			return fmt.Errorf("read %d@%d: %w", len(buf), offset, firmware.ErrDeviceError)
		}
	}
	if offset+uint64(len(buf)) > uint64(len(d.Data)) {
		return fmt.Errorf("read %d@%d beyond end of disk: %w", len(buf), offset, firmware.ErrDeviceError)
	}
	copy(buf, d.Data[offset:])
	return nil
}

// ReadsOf returns the reads issued against handle h.
func (b *Block) ReadsOf(h firmware.Handle) []ReadCall {
	var out []ReadCall
	for _, r := range b.Reads {
		if r.Handle == h {
			out = append(out, r)
		}
	}
	return out
}

func (b *Block) disk(h firmware.Handle) (*Disk, error) {
	if int(h) >= len(b.Disks) {
		return nil, fmt.Errorf("handle %d: %w", h, firmware.ErrDeviceError)
	}
	return b.Disks[h], nil
}
