// Package fsprobe identifies the filesystem inside a partition by its on-disk
// signature.
package fsprobe

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Unknown is reported when no signature matches.
const Unknown = "Unknown"

type signature struct {
	Name   string
	Magic  []byte
	Offset int64
}

// headSize is read in one go; signatures past it are read individually.
const headSize = 4096

var signatures = []signature{
	{Name: "APFS", Magic: []byte("NXSB"), Offset: 0x20},
	{Name: "Btrfs", Magic: []byte("_BHRfS_M"), Offset: 0x10040},
	{Name: "CramFS", Magic: []byte{0x45, 0x3d, 0xcd, 0x28}, Offset: 0},
	{Name: "exFAT", Magic: []byte("EXFAT   "), Offset: 3},
	{Name: "NTFS", Magic: []byte("NTFS    "), Offset: 3},
	{Name: "F2FS", Magic: []byte{0x10, 0x20, 0xf5, 0xf2}, Offset: 0x400},
	{Name: "HFS", Magic: []byte("BD"), Offset: 0x400},
	{Name: "HFS+", Magic: []byte("H+"), Offset: 0x400},
	{Name: "HFSX", Magic: []byte("HX"), Offset: 0x400},
	{Name: "ISO9660", Magic: []byte("CD001"), Offset: 0x8001},
	{Name: "JFS", Magic: []byte("JFS1"), Offset: 0x8000},
	{Name: "Swap (Linux)", Magic: []byte("SWAPSPACE2"), Offset: 0xff6},
	{Name: "NILFS2", Magic: []byte{0x34, 0x34}, Offset: 0x406},
	{Name: "OCFS2", Magic: []byte("OCFSV2"), Offset: 0x2000},
	{Name: "ReiserFS", Magic: []byte("ReIsEr"), Offset: 0x10034},
	{Name: "RomFS", Magic: []byte("-rom1fs-"), Offset: 0},
	{Name: "SquashFS", Magic: []byte("hsqs"), Offset: 0},
	{Name: "UDF", Magic: []byte("NSR0"), Offset: 0x8001},
	{Name: "UFS2", Magic: []byte{0x19, 0x01, 0x54, 0x19}, Offset: 0x1055c},
	{Name: "XFS", Magic: []byte("XFSB"), Offset: 0},
	{Name: "EROFS", Magic: []byte{0xe2, 0xe1, 0xf5, 0xe0}, Offset: 0x400},
}

// Probe reads the start of the partition at offset, size bytes long, and
// returns the name of the filesystem or volume container found there. Read failures are returned
// together with Unknown.
func Probe(r io.ReaderAt, offset int64, size uint64) (string, error) {
	headLen := int64(headSize)
	if uint64(headLen) > size {
		headLen = int64(size)
	}
	head := make([]byte, headLen)
	if _, err := r.ReadAt(head, offset); err != nil {
		return Unknown, err
	}

	for _, sig := range signatures {
		end := sig.Offset + int64(len(sig.Magic))
		if uint64(end) > size {
			continue
		}
		var got []byte
		if end <= headLen {
			got = head[sig.Offset:end]
		} else {
			got = make([]byte, len(sig.Magic))
			if _, err := r.ReadAt(got, offset+sig.Offset); err != nil {
				continue
			}
		}
		if bytes.Equal(got, sig.Magic) {
			return sig.Name, nil
		}
	}

	if name := container(r, offset, size, head); name != Unknown {
		return name, nil
	}
	if name := extFilesystem(head); name != Unknown {
		return name, nil
	}
	return fatFilesystem(head), nil
}

// extFilesystem tells ext2, ext3 and ext4 apart from superblock features.
func extFilesystem(head []byte) string {
	const superblock = 0x400
	if len(head) < superblock+0x68 {
		return Unknown
	}
	sb := head[superblock:]
	if binary.LittleEndian.Uint16(sb[0x38:0x3a]) != 0xef53 {
		return Unknown
	}

	compat := binary.LittleEndian.Uint32(sb[0x5c:0x60])
	incompat := binary.LittleEndian.Uint32(sb[0x60:0x64])
	switch {
	case incompat&0x40 != 0 || incompat&0x200 != 0:
		return "ext4"
	case compat&0x4 != 0:
		return "ext3"
	default:
		return "ext2"
	}
}

// fatFilesystem recognises FAT boot sectors.
func fatFilesystem(head []byte) string {
	if len(head) < 512 || head[0x1fe] != 0x55 || head[0x1ff] != 0xaa {
		return Unknown
	}
	switch {
	case bytes.HasPrefix(head[0x52:], []byte("FAT32")):
		return "FAT32"
	case bytes.HasPrefix(head[0x36:], []byte("FAT16")):
		return "FAT16"
	case bytes.HasPrefix(head[0x36:], []byte("FAT12")):
		return "FAT12"
	case bytes.HasPrefix(head[0x36:], []byte("FAT")):
		return "FAT"
	}
	return Unknown
}
