package fwtest

import (
	"encoding/binary"
	"hash/crc32"
	"unicode/utf16"
)

// Well-known partition type GUIDs in on-disk (mixed-endian) byte order.
var (
	TypeEFISystem = [16]byte{0x28, 0x73, 0x2a, 0xc1, 0x1f, 0xf8, 0xd2, 0x11, 0xba, 0x4b, 0x00, 0xa0, 0xc9, 0x3e, 0xc9, 0x3b}
	TypeLinuxFS   = [16]byte{0xaf, 0x3d, 0xc6, 0x0f, 0x83, 0x84, 0x72, 0x47, 0x8e, 0x79, 0x3d, 0x69, 0xd8, 0x47, 0x7d, 0xe4}
)

// GPTPartition describes one partition entry written by GPTImage.
type GPTPartition struct {
	Index      int // slot in the entry array
	Type       [16]byte
	Unique     [16]byte
	FirstLBA   uint64
	LastLBA    uint64
	Attributes uint64
	Name       string
}

// GPTImage builds a disk image carrying a primary GPT.
type GPTImage struct {
	BlockSize  uint32
	Blocks     uint64
	NumEntries uint32
	EntrySize  uint32
	EntryLBA   uint64
	DiskGUID   [16]byte
	Partitions []GPTPartition
	// CorruptHeaderCRC stores a wrong header CRC.
	CorruptHeaderCRC bool
}

// Bytes renders the image.
func (g GPTImage) Bytes() []byte {
	bs := uint64(g.BlockSize)
	if bs == 0 {
		bs = 512
	}
	if g.NumEntries == 0 {
		g.NumEntries = 128
	}
	if g.EntrySize == 0 {
		g.EntrySize = 128
	}
	if g.EntryLBA == 0 {
		g.EntryLBA = 2
	}
	arrayBytes := uint64(g.NumEntries) * uint64(g.EntrySize)
	arrayBlocks := (arrayBytes + bs - 1) / bs
	if g.Blocks == 0 {
		g.Blocks = g.EntryLBA + arrayBlocks + 64
	}

	img := make([]byte, g.Blocks*bs)

	pmbr := img[446:]
	pmbr[4] = 0xee
	binary.LittleEndian.PutUint32(pmbr[8:12], 1)
	binary.LittleEndian.PutUint32(pmbr[12:16], uint32(min(g.Blocks-1, 0xffffffff)))
	img[510], img[511] = 0x55, 0xaa

	entries := img[g.EntryLBA*bs : g.EntryLBA*bs+arrayBytes]
	for _, p := range g.Partitions {
		e := entries[uint64(p.Index)*uint64(g.EntrySize):]
		copy(e[0:16], p.Type[:])
		copy(e[16:32], p.Unique[:])
		binary.LittleEndian.PutUint64(e[32:40], p.FirstLBA)
		binary.LittleEndian.PutUint64(e[40:48], p.LastLBA)
		binary.LittleEndian.PutUint64(e[48:56], p.Attributes)
		for i, u := range utf16.Encode([]rune(p.Name)) {
			if i >= 36 {
				break
			}
			binary.LittleEndian.PutUint16(e[56+2*i:], u)
		}
	}

	h := img[bs : bs+92]
	copy(h[0:8], "EFI PART")
	binary.LittleEndian.PutUint32(h[8:12], 0x00010000)
	binary.LittleEndian.PutUint32(h[12:16], 92)
	binary.LittleEndian.PutUint64(h[24:32], 1)
	binary.LittleEndian.PutUint64(h[32:40], g.Blocks-1)
	binary.LittleEndian.PutUint64(h[40:48], g.EntryLBA+arrayBlocks)
	binary.LittleEndian.PutUint64(h[48:56], g.Blocks-arrayBlocks-2)
	copy(h[56:72], g.DiskGUID[:])
	binary.LittleEndian.PutUint64(h[72:80], g.EntryLBA)
	binary.LittleEndian.PutUint32(h[80:84], g.NumEntries)
	binary.LittleEndian.PutUint32(h[84:88], g.EntrySize)
	binary.LittleEndian.PutUint32(h[88:92], crc32.ChecksumIEEE(entries))

	sum := crc32.ChecksumIEEE(h)
	if g.CorruptHeaderCRC {
		sum ^= 0xffffffff
	}
	binary.LittleEndian.PutUint32(h[16:20], sum)

	return img
}
