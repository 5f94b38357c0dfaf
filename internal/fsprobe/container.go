package fsprobe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Names reported for volume containers. They hold a filesystem rather than
// being one, so a boot entry on them needs the container opened first.
const (
	LUKS   = "LUKS"
	LVM2PV = "LVM2 PV"
	MDRAID = "MD RAID"
)

var luksMagic = []byte{'L', 'U', 'K', 'S', 0xba, 0xbe}

const mdMagic = 0xa92b4efc

// container probes the partition for an encryption or volume manager
// header and returns its name, or Unknown.
func container(r io.ReaderAt, offset int64, size uint64, head []byte) string {
	if name := luks(head); name != Unknown {
		return name
	}
	if lvm2(r, offset, size, head) {
		return LVM2PV
	}
	if mdraid(r, offset, size) {
		return MDRAID
	}
	return Unknown
}

func luks(head []byte) string {
	if len(head) < 8 || !bytes.Equal(head[:6], luksMagic) {
		return Unknown
	}
	switch ver := binary.BigEndian.Uint16(head[6:8]); ver {
	case 1, 2:
		return fmt.Sprintf("%s%d", LUKS, ver)
	default:
		return LUKS
	}
}

// lvm2 looks for the physical volume label in the first four sectors.
func lvm2(r io.ReaderAt, offset int64, size uint64, head []byte) bool {
	for _, off := range []int64{0, 512, 1024, 1536} {
		end := off + 512
		if uint64(end) > size {
			break
		}
		var sector []byte
		if end <= int64(len(head)) {
			sector = head[off:end]
		} else {
			sector = make([]byte, 512)
			if _, err := r.ReadAt(sector, offset+off); err != nil {
				continue
			}
		}
		if bytes.HasPrefix(sector, []byte("LABELONE")) && bytes.Contains(sector, []byte("LVM2 001")) {
			return true
		}
	}
	return false
}

// mdraid checks the superblock locations of metadata 1.1/1.2 at the start
// and 0.90/1.0 near the end of the partition.
func mdraid(r io.ReaderAt, offset int64, size uint64) bool {
	candidates := []int64{0, 4096}
	if size >= 128<<10 {
		candidates = append(candidates, int64(size&^(64<<10-1))-64<<10, int64(size)-8<<10)
	}
	magic := make([]byte, 4)
	for _, off := range candidates {
		if off < 0 || uint64(off)+4 > size {
			continue
		}
		if _, err := r.ReadAt(magic, offset+off); err != nil {
			continue
		}
		if binary.LittleEndian.Uint32(magic) == mdMagic || binary.BigEndian.Uint32(magic) == mdMagic {
			return true
		}
	}
	return false
}
