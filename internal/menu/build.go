package menu

import (
	"neoboot/internal/bootcfg"
	"neoboot/internal/discovery"
	"neoboot/internal/gpt"
)

// ConfigNameKey is the configuration key naming a boot entry.
const ConfigNameKey = "name"

// BuildEntries lists the configured entries first, one per "name" value,
// followed by every active partition of every disk with a GPT.
func BuildEntries(disks []gpt.DiskInfo, cfg *bootcfg.Table) []Entry {
	var entries []Entry

	for _, name := range cfg.Values(ConfigNameKey) {
		entries = append(entries, Entry{
			Name:      name,
			Config:    cfg,
			Disk:      -1,
			Partition: -1,
		})
	}

	for _, d := range disks {
		if !d.GPTFound {
			continue
		}
		for _, p := range d.ActivePartitions() {
			entries = append(entries, Entry{
				Name:      discovery.PartitionLabel(d, p),
				Disk:      d.Device.Index,
				Partition: p.Index,
			})
		}
	}

	return entries
}
