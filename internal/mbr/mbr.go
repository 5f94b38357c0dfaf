// Package mbr reads legacy master boot record partition tables, including
// logical partitions chained through extended boot records.
package mbr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	sectorSize   = 512
	tableOffset  = 446
	entrySize    = 16
	primaryCount = 4

	// TypeProtective marks the single partition of a GPT protective MBR.
	TypeProtective = 0xee

	maxEBRHops = 128
)

// ErrBadEBR is returned when a logical partition chain is broken.
var ErrBadEBR = errors.New("invalid extended boot record")

// Partition is one MBR partition. Logical partitions have absolute LBAs.
type Partition struct {
	Index    int
	Bootable bool
	Type     byte
	FirstLBA uint64
	Sectors  uint64
	Logical  bool
}

// Table is the partition table found in LBA 0.
type Table struct {
	Found      bool
	Protective bool
	Partitions []Partition
}

var typeNames = map[byte]string{
	0x01: "FAT12",
	0x04: "FAT16 <32M",
	0x05: "Extended",
	0x06: "FAT16",
	0x07: "NTFS/exFAT",
	0x0b: "W95 FAT32",
	0x0c: "W95 FAT32 (LBA)",
	0x0e: "W95 FAT16 (LBA)",
	0x0f: "W95 Ext'd (LBA)",
	0x82: "Linux swap",
	0x83: "Linux",
	0x85: "Linux extended",
	0x8e: "Linux LVM",
	0xa5: "FreeBSD",
	0xaf: "HFS / HFS+",
	0xee: "GPT protective",
	0xef: "EFI System",
	0xfd: "Linux raid autodetect",
}

// TypeName returns a readable name for the partition type byte.
func (p Partition) TypeName() string {
	if name, ok := typeNames[p.Type]; ok {
		return name
	}
	return fmt.Sprintf("type 0x%02x", p.Type)
}

func isExtended(t byte) bool {
	switch t {
	case 0x05, 0x0f, 0x85:
		return true
	default:
		return false
	}
}

type rawEntry struct {
	status   byte
	typ      byte
	firstLBA uint32
	sectors  uint32
}

func parseEntry(b []byte) rawEntry {
	return rawEntry{
		status:   b[0],
		typ:      b[4],
		firstLBA: binary.LittleEndian.Uint32(b[8:12]),
		sectors:  binary.LittleEndian.Uint32(b[12:16]),
	}
}

func readSector(r io.ReaderAt, blockSize uint32, lba uint64) ([]byte, bool, error) {
	buf := make([]byte, max(blockSize, sectorSize))
	if _, err := r.ReadAt(buf, int64(lba)*int64(blockSize)); err != nil {
		return nil, false, err
	}
	return buf, buf[510] == 0x55 && buf[511] == 0xaa, nil
}

// Read decodes the MBR of a disk with the given block size and total size
// in bytes. A missing boot signature is reported as Found == false. A broken
// logical partition chain keeps the partitions read so far and returns
// ErrBadEBR.
func Read(r io.ReaderAt, blockSize uint32, diskSize uint64) (Table, error) {
	if blockSize == 0 {
		blockSize = sectorSize
	}
	buf, ok, err := readSector(r, blockSize, 0)
	if err != nil {
		return Table{}, fmt.Errorf("read MBR: %w", err)
	}
	if !ok {
		return Table{}, nil
	}

	t := Table{Found: true}
	var extended []rawEntry
	for i := range primaryCount {
		e := parseEntry(buf[tableOffset+i*entrySize:])
		if e.typ == 0 || e.sectors == 0 {
			continue
		}
		if e.typ == TypeProtective {
			t.Protective = true
		}
		t.Partitions = append(t.Partitions, Partition{
			Index:    i,
			Bootable: e.status == 0x80,
			Type:     e.typ,
			FirstLBA: uint64(e.firstLBA),
			Sectors:  uint64(e.sectors),
		})
		if isExtended(e.typ) {
			extended = append(extended, e)
		}
	}

	for _, e := range extended {
		if err := t.readChain(r, blockSize, diskSize, uint64(e.firstLBA)); err != nil {
			return t, err
		}
	}
	return t, nil
}

// readChain follows the EBR chain starting at base. Logical entries are
// relative to their EBR, links to the next EBR are relative to base.
func (t *Table) readChain(r io.ReaderAt, blockSize uint32, diskSize uint64, base uint64) error {
	maxLBA := diskSize / uint64(blockSize)
	next := base
	for range maxEBRHops {
		buf, ok, err := readSector(r, blockSize, next)
		if err != nil {
			return fmt.Errorf("LBA %d: %w: %w", next, ErrBadEBR, err)
		}
		if !ok {
			return fmt.Errorf("LBA %d: boot signature missing: %w", next, ErrBadEBR)
		}

		logical := parseEntry(buf[tableOffset:])
		link := parseEntry(buf[tableOffset+entrySize:])

		if logical.typ != 0 && logical.sectors != 0 {
			start := next + uint64(logical.firstLBA)
			end := start + uint64(logical.sectors) - 1
			if maxLBA == 0 || end < maxLBA {
				t.Partitions = append(t.Partitions, Partition{
					Index:    primaryCount + countLogical(t.Partitions),
					Bootable: logical.status == 0x80,
					Type:     logical.typ,
					FirstLBA: start,
					Sectors:  uint64(logical.sectors),
					Logical:  true,
				})
			}
		}

		if link.typ == 0 || link.sectors == 0 || !isExtended(link.typ) {
			return nil
		}
		next = base + uint64(link.firstLBA)
	}
	return fmt.Errorf("chain longer than %d records: %w", maxEBRHops, ErrBadEBR)
}

func countLogical(parts []Partition) int {
	n := 0
	for _, p := range parts {
		if p.Logical {
			n++
		}
	}
	return n
}
