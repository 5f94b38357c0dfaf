// Package shell is a line-oriented diagnostics console over a discovery
// snapshot, for inspecting what the boot menu would offer.
package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"neoboot/internal/bootcfg"
	"neoboot/internal/discovery"
	"neoboot/internal/gpt"
	"neoboot/internal/menu"
)

// ErrUnknownDisk is returned when a disk name matches no scanned device.
var ErrUnknownDisk = errors.New("unknown disk")

// Level is the severity of an output line.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Line is one line of command output.
type Line struct {
	Level Level
	Text  string
}

func info(format string, args ...any) Line {
	return Line{Level: LevelInfo, Text: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) Line {
	return Line{Level: LevelWarn, Text: fmt.Sprintf(format, args...)}
}

// ScanFunc produces a fresh discovery result.
type ScanFunc func() (discovery.Result, error)

// Shell holds the snapshot the commands report on.
type Shell struct {
	scan ScanFunc
	log  *zap.Logger

	mu  sync.Mutex
	res discovery.Result
	cfg *bootcfg.Table
}

// New returns a shell that takes its snapshots from scan.
func New(scan ScanFunc, cfg *bootcfg.Table, log *zap.Logger) *Shell {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shell{scan: scan, cfg: cfg, log: log}
}

// Refresh replaces the snapshot with a new scan. The previous snapshot is
// kept when the scan fails.
func (s *Shell) Refresh() error {
	res, err := s.scan()
	if err != nil {
		s.log.Error("rescan failed", zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.res = res
	s.mu.Unlock()
	s.log.Debug("rescanned", zap.Int("disks", len(res.Disks)), zap.Int("warnings", len(res.Warnings)))
	return nil
}

func (s *Shell) snapshot() discovery.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res
}

// DiskLines lists every scanned device.
func (s *Shell) DiskLines() []Line {
	res := s.snapshot()
	if len(res.Disks) == 0 {
		return []Line{warn("No block devices found")}
	}
	out := make([]Line, 0, len(res.Disks)+len(res.Warnings))
	for _, d := range res.Disks {
		out = append(out, info("%s", discovery.Summary(d)))
	}
	for _, w := range res.Warnings {
		out = append(out, warn("%v", w))
	}
	return out
}

// Disk finds a scanned device by name ("disk1") or index ("1").
func (s *Shell) Disk(name string) (gpt.DiskInfo, error) {
	name = strings.TrimSpace(name)
	idx, err := strconv.Atoi(strings.TrimPrefix(name, "disk"))
	if err != nil {
		return gpt.DiskInfo{}, fmt.Errorf("%q: %w", name, ErrUnknownDisk)
	}
	for _, d := range s.snapshot().Disks {
		if d.Device.Index == idx {
			return d, nil
		}
	}
	return gpt.DiskInfo{}, fmt.Errorf("%q: %w", name, ErrUnknownDisk)
}

// PartitionLines describes the partition table of the named disk.
func (s *Shell) PartitionLines(name string) ([]Line, error) {
	d, err := s.Disk(name)
	if err != nil {
		return nil, err
	}
	if !d.GPTFound {
		return []Line{warn("No GPT on %s", d.Device)}, nil
	}

	var out []Line
	for _, row := range strings.Split(strings.TrimRight(discovery.Describe(d), "\n"), "\n") {
		if strings.HasPrefix(strings.TrimSpace(row), "warning:") {
			out = append(out, warn("%s", strings.TrimSpace(row)))
			continue
		}
		out = append(out, info("%s", row))
	}
	if len(d.ActivePartitions()) == 0 {
		out = append(out, warn("No partitions found on %s", d.Device))
	}
	return out, nil
}

// ConfigLines shows the configuration table.
func (s *Shell) ConfigLines() []Line {
	if s.cfg.Len() == 0 {
		return []Line{warn("No configuration entries")}
	}
	var out []Line
	for _, row := range strings.Split(strings.TrimRight(s.cfg.String(), "\n"), "\n") {
		out = append(out, info("%s", row))
	}
	for _, e := range s.cfg.Malformed() {
		out = append(out, warn("token %q has no value", e.Key))
	}
	return out
}

// EntryLines lists the boot menu the current snapshot would produce.
func (s *Shell) EntryLines() []Line {
	entries := menu.BuildEntries(s.snapshot().Disks, s.cfg)
	if len(entries) == 0 {
		return []Line{warn("No boot entries found")}
	}
	out := make([]Line, len(entries))
	for i, e := range entries {
		src := "partition"
		if e.FromConfig() {
			src = "config"
		}
		out[i] = info("%2d. %-40s [%s]", i+1, e.Name, src)
	}
	return out
}
