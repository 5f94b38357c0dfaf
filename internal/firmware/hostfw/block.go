// Package hostfw implements the firmware services on a regular host: disk
// images stand in for block devices and a directory stands in for the boot
// volume.
package hostfw

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"neoboot/internal/firmware"
	"neoboot/internal/imagefile"
)

// EmptyDrive is the disk path that yields a removable drive without media.
const EmptyDrive = "-"

const defaultBlockSize = 512

type drive struct {
	path  string
	img   imagefile.Image
	media firmware.Media
}

// ImageBlockIO is a firmware.BlockIO over disk image files. Handle i is the
// i-th configured path. Images are opened on first use.
type ImageBlockIO struct {
	log *zap.Logger

	mu     sync.Mutex
	drives []*drive
}

var _ firmware.BlockIO = (*ImageBlockIO)(nil)

// NewImageBlockIO returns a BlockIO over paths.
func NewImageBlockIO(paths []string, log *zap.Logger) *ImageBlockIO {
	if log == nil {
		log = zap.NewNop()
	}
	b := &ImageBlockIO{log: log}
	for _, p := range paths {
		b.drives = append(b.drives, &drive{path: p})
	}
	return b
}

// LocateHandles implements firmware.BlockIO.
func (b *ImageBlockIO) LocateHandles() ([]firmware.Handle, error) {
	handles := make([]firmware.Handle, len(b.drives))
	for i := range b.drives {
		handles[i] = firmware.Handle(i)
	}
	return handles, nil
}

// OpenMedia implements firmware.BlockIO.
func (b *ImageBlockIO) OpenMedia(h firmware.Handle) (firmware.Media, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.drive(h)
	if err != nil {
		return firmware.Media{}, err
	}
	if d.path == EmptyDrive {
		return firmware.Media{MediaID: 1, Removable: true, BlockSize: defaultBlockSize, ReadOnly: true}, nil
	}
	if d.img != nil {
		return d.media, nil
	}

	img, blockSize, err := openDrive(d.path)
	if err != nil {
		return firmware.Media{}, fmt.Errorf("%s: %w", d.path, err)
	}
	if img.Size() < int64(blockSize) {
		_ = img.Close()
		return firmware.Media{}, fmt.Errorf("%s: image smaller than one block: %w", d.path, firmware.ErrDeviceError)
	}

	d.img = img
	d.media = firmware.Media{
		MediaID:   1,
		Present:   true,
		BlockSize: blockSize,
		LastBlock: uint64(img.Size())/uint64(blockSize) - 1,
		ReadOnly:  true,
	}
	b.log.Debug("opened disk image",
		zap.String("path", d.path),
		zap.Int64("size", img.Size()),
		zap.Uint32("block_size", blockSize),
	)
	return d.media, nil
}

// openDrive opens an image file, or a block device with its logical block size.
func openDrive(path string) (imagefile.Image, uint32, error) {
	img, err := imagefile.Open(path)
	if err != nil {
		return nil, 0, err
	}

	blockSize := uint32(defaultBlockSize)
	if raw, ok := img.(interface{ OSFile() *os.File }); ok {
		if fi, err := raw.OSFile().Stat(); err == nil && fi.Mode()&os.ModeDevice != 0 {
			blockSize = logicalBlockSize(raw.OSFile())
		}
	}
	return img, blockSize, nil
}

// ReadDisk implements firmware.BlockIO.
func (b *ImageBlockIO) ReadDisk(h firmware.Handle, mediaID uint32, offset uint64, buf []byte) error {
	b.mu.Lock()
	d, err := b.drive(h)
	var (
		img   imagefile.Image
		media firmware.Media
	)
	if err == nil {
		img, media = d.img, d.media
	}
	b.mu.Unlock()
	if err != nil {
		return err
	}
	if img == nil {
		return firmware.ErrNoMedia
	}
	if mediaID != media.MediaID {
		return firmware.ErrMediaChanged
	}
	if offset+uint64(len(buf)) > media.Size() {
		return fmt.Errorf("read %d@%d beyond end of %s: %w", len(buf), offset, d.path, firmware.ErrDeviceError)
	}

	n, err := img.ReadAt(buf, int64(offset))
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d@%d from %s: %w: %w", len(buf), offset, d.path, firmware.ErrDeviceError, err)
}

// Close closes every opened image.
func (b *ImageBlockIO) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var first error
	for _, d := range b.drives {
		if d.img == nil {
			continue
		}
		if err := d.img.Close(); err != nil && first == nil {
			first = err
		}
		d.img = nil
	}
	return first
}

func (b *ImageBlockIO) drive(h firmware.Handle) (*drive, error) {
	if int(h) >= len(b.drives) {
		return nil, fmt.Errorf("handle %d: %w", h, firmware.ErrDeviceError)
	}
	return b.drives[h], nil
}
