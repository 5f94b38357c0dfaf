package discovery

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"neoboot/internal/gpt"
)

func size(n uint64) string {
	return humanize.IBytes(n)
}

// PartitionLabel describes an active partition for menus and listings.
func PartitionLabel(d gpt.DiskInfo, p gpt.ActivePartition) string {
	name := p.NameString()
	if name == "" {
		name = p.TypeName()
	}
	label := fmt.Sprintf("%s p%d %s (%s", d.Device, p.Index+1, name, size(d.PartitionSize(p.Index)))
	if fs, ok := d.Filesystems[p.Index]; ok && fs != "" {
		label += ", " + fs
	}
	return label + ")"
}

// Describe renders a multi-line report of a disk and its active partitions.
func Describe(d gpt.DiskInfo) string {
	var sb strings.Builder
	sb.WriteString(Summary(d))
	sb.WriteString("\n")
	if !d.GPTFound {
		for _, p := range d.MBR.Partitions {
			kind := "primary"
			if p.Logical {
				kind = "logical"
			}
			fmt.Fprintf(&sb, "  %3d  %-24s %-20s %10s  %s\n",
				p.Index+1, kind, truncate(p.TypeName(), 20), size(p.Sectors*uint64(d.Device.Media.BlockSize)), "-")
		}
		return sb.String()
	}

	if !d.HeaderCRCValid {
		sb.WriteString("  warning: header CRC mismatch\n")
	}
	if len(d.Entries) > 0 && !d.EntriesCRCValid {
		sb.WriteString("  warning: entry array CRC mismatch\n")
	}
	for _, p := range d.ActivePartitions() {
		fs := d.Filesystems[p.Index]
		if fs == "" {
			fs = "-"
		}
		fmt.Fprintf(&sb, "  %3d  %-24s %-20s %10s  %s\n",
			p.Index+1, truncate(p.NameString(), 24), truncate(p.TypeName(), 20),
			size(d.PartitionSize(p.Index)), fs)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
