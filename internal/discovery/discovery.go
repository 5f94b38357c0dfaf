// Package discovery runs one pass over the attached block devices: enumerate,
// read each GPT and legacy MBR, then probe the filesystems of active
// partitions.
package discovery

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"neoboot/internal/blockio"
	"neoboot/internal/firmware"
	"neoboot/internal/fsprobe"
	"neoboot/internal/gpt"
	"neoboot/internal/mbr"
)

// Progress reports that Done of Total devices have been processed.
type Progress struct {
	Done, Total int
	Device      blockio.Device
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithProgress registers a callback invoked after every device.
func WithProgress(fn func(Progress)) Option {
	return func(s *Scanner) { s.progress = fn }
}

// WithoutFilesystemProbe disables the filesystem probe of active partitions.
func WithoutFilesystemProbe() Option {
	return func(s *Scanner) { s.probe = false }
}

// Scanner discovers disks and partitions through the firmware block service.
type Scanner struct {
	enum     *blockio.Enumerator
	reader   *gpt.Reader
	log      *zap.Logger
	progress func(Progress)
	probe    bool
}

// Result is the outcome of a scan.
type Result struct {
	// Disks holds one record per enumerated device, in enumeration order.
	Disks []gpt.DiskInfo
	// Warnings lists the non-fatal problems met during the scan.
	Warnings []error
}

// Warning returns the warnings as one error, or nil.
func (r Result) Warning() error {
	if len(r.Warnings) == 0 {
		return nil
	}
	return &multierror.Error{Errors: r.Warnings}
}

// New returns a Scanner over bio.
func New(bio firmware.BlockIO, log *zap.Logger, opts ...Option) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scanner{
		enum:   blockio.NewEnumerator(bio, log.Named("blockio")),
		reader: gpt.NewReader(log.Named("gpt")),
		log:    log,
		probe:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan enumerates devices and reads their partition tables. Only a failure to
// enumerate devices is returned as an error; every other problem is recorded
// in Result.Warnings and the scan moves on to the next device.
func (s *Scanner) Scan() (Result, error) {
	devices, err := s.enum.Enumerate()
	if err != nil {
		s.log.Error("device enumeration failed", zap.Error(err))
		return Result{}, err
	}

	var (
		res  = Result{Disks: make([]gpt.DiskInfo, 0, len(devices))}
		errs *multierror.Error
	)
	for i, dev := range devices {
		if dev.OpenErr != nil {
			errs = multierror.Append(errs, dev.OpenErr)
		}

		info, err := s.reader.Read(dev, s.enum.ReaderAt(dev))
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		if dev.Readable() {
			if err := s.readMBR(&info); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		if s.probe && info.GPTFound {
			s.probeFilesystems(&info)
		}
		res.Disks = append(res.Disks, info)

		s.log.Info("scanned device",
			zap.Int("device", dev.Index),
			zap.Bool("present", dev.Media.Present),
			zap.Bool("gpt", info.GPTFound),
			zap.Int("active", len(info.ActivePartitions())),
		)
		if s.progress != nil {
			s.progress(Progress{Done: i + 1, Total: len(devices), Device: dev})
		}
	}

	if errs != nil {
		res.Warnings = errs.Errors
	}
	return res, nil
}

func (s *Scanner) readMBR(info *gpt.DiskInfo) error {
	media := info.Device.Media
	tbl, err := mbr.Read(s.enum.ReaderAt(info.Device), media.BlockSize, media.Size())
	info.MBR = tbl
	if err != nil {
		s.log.Warn("legacy partition table unreadable", zap.Int("device", info.Device.Index), zap.Error(err))
		return fmt.Errorf("%s: %w", info.Device, err)
	}
	if info.GPTFound && tbl.Found && !tbl.Protective {
		s.log.Warn("GPT disk without protective MBR", zap.Int("device", info.Device.Index))
	}
	return nil
}

func (s *Scanner) probeFilesystems(info *gpt.DiskInfo) {
	r := s.enum.ReaderAt(info.Device)
	info.Filesystems = make(map[int]string)
	for _, p := range info.ActivePartitions() {
		name, err := fsprobe.Probe(r, info.PartitionOffset(p.Index), info.PartitionSize(p.Index))
		if err != nil {
			s.log.Debug("filesystem probe failed",
				zap.Int("device", info.Device.Index),
				zap.Int("index", p.Index),
				zap.Error(err),
			)
		}
		info.Filesystems[p.Index] = name
	}
}

// Summary formats a one-line description of a disk.
func Summary(d gpt.DiskInfo) string {
	switch {
	case !d.Device.Opened():
		return fmt.Sprintf("%s: unavailable", d.Device)
	case !d.Device.Media.Present:
		return fmt.Sprintf("%s: no media", d.Device)
	case !d.GPTFound && d.MBR.Found:
		return fmt.Sprintf("%s: %s, MBR, %d partition(s)", d.Device, size(d.Device.Media.Size()), len(d.MBR.Partitions))
	case !d.GPTFound:
		return fmt.Sprintf("%s: %s, no GPT", d.Device, size(d.Device.Media.Size()))
	default:
		return fmt.Sprintf("%s: %s, GPT %s, %d active partition(s)",
			d.Device, size(d.Device.Media.Size()), d.Header.DiskGUID, len(d.ActivePartitions()))
	}
}
