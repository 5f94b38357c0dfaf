// Package gpt reads GUID Partition Table metadata from block devices.
package gpt

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"

	"neoboot/internal/blockio"
	"neoboot/internal/mbr"
)

// Signature is the magic at the start of a GPT header.
const Signature = "EFI PART"

const (
	// HeaderLBA is the block holding the primary header.
	HeaderLBA = 1
	// MinHeaderSize is the size of the fields defined by revision 1.0.
	MinHeaderSize = 92
	// MinEntrySize is the smallest valid partition entry size.
	MinEntrySize = 128
	// MaxEntryArraySize bounds the memory spent on one entry array.
	MaxEntryArraySize = 4 << 20
)

// Header is the primary GPT header as stored on disk, little-endian.
type Header struct {
	Signature                [8]byte
	Revision                 uint32
	HeaderSize               uint32
	HeaderCRC32              uint32
	_                        [4]byte
	MyLBA                    uint64
	AlternateLBA             uint64
	FirstUsableLBA           uint64
	LastUsableLBA            uint64
	DiskGUID                 GUID
	PartitionEntryLBA        uint64
	NumberOfPartitionEntries uint32
	SizeOfPartitionEntry     uint32
	PartitionEntryArrayCRC32 uint32
}

// EntryArraySize returns the byte size of the partition entry array.
func (h Header) EntryArraySize() uint64 {
	return uint64(h.NumberOfPartitionEntries) * uint64(h.SizeOfPartitionEntry)
}

// PartitionEntry is one slot of the partition entry array.
type PartitionEntry struct {
	TypeGUID    GUID
	UniqueGUID  GUID
	StartingLBA uint64
	EndingLBA   uint64
	Attributes  uint64
	Name        [72]byte
}

// Active reports whether the slot holds a partition.
func (e PartitionEntry) Active() bool {
	return !e.TypeGUID.IsZero()
}

// Blocks returns the number of blocks the partition spans.
func (e PartitionEntry) Blocks() uint64 {
	if e.EndingLBA < e.StartingLBA {
		return 0
	}
	return e.EndingLBA - e.StartingLBA + 1
}

// NameString decodes the UTF-16LE partition name up to the first NUL.
func (e PartitionEntry) NameString() string {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(e.Name[:])
	if err != nil {
		return ""
	}
	if i := bytes.IndexByte(out, 0); i >= 0 {
		out = out[:i]
	}
	return string(out)
}

// TypeName returns the well-known name of the partition type, or the type
// GUID when it is not known.
func (e PartitionEntry) TypeName() string {
	if name, ok := TypeName(e.TypeGUID); ok {
		return name
	}
	return e.TypeGUID.String()
}

// ActivePartition is an active entry together with its slot index.
type ActivePartition struct {
	Index int
	PartitionEntry
}

// DiskInfo is the result of reading one device.
type DiskInfo struct {
	Device   blockio.Device
	GPTFound bool
	Header   Header
	// Entries holds every slot of the entry array at its original index,
	// active or not.
	Entries []PartitionEntry

	HeaderCRCValid  bool
	EntriesCRCValid bool
	// Filesystems maps an entry index to the probed filesystem name.
	Filesystems map[int]string
	// MBR is the legacy table in LBA 0, protective on a well-formed GPT disk.
	MBR mbr.Table
}

// ActivePartitions returns the active entries in index order.
func (d DiskInfo) ActivePartitions() []ActivePartition {
	var out []ActivePartition
	for i, e := range d.Entries {
		if e.Active() {
			out = append(out, ActivePartition{Index: i, PartitionEntry: e})
		}
	}
	return out
}

// PartitionOffset returns the byte offset of the partition in entry slot i.
func (d DiskInfo) PartitionOffset(i int) int64 {
	return int64(d.Entries[i].StartingLBA) * int64(d.Device.Media.BlockSize)
}

// PartitionSize returns the byte size of the partition in entry slot i.
func (d DiskInfo) PartitionSize(i int) uint64 {
	return d.Entries[i].Blocks() * uint64(d.Device.Media.BlockSize)
}
