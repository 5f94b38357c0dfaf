package gpt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"neoboot/internal/blockio"
)

var (
	// ErrPartitionRead is a failed read of the header or of partition entries.
	ErrPartitionRead = errors.New("partition read failed")
	// ErrInvalidHeader is a header whose geometry cannot be trusted.
	ErrInvalidHeader = errors.New("invalid GPT header")
	// ErrEntryArrayTooLarge is an entry array exceeding MaxEntryArraySize.
	ErrEntryArrayTooLarge = errors.New("partition entry array too large")
	// ErrHeaderCRC is a header checksum mismatch.
	ErrHeaderCRC = errors.New("GPT header CRC mismatch")
	// ErrEntriesCRC is an entry array checksum mismatch.
	ErrEntriesCRC = errors.New("GPT entries CRC mismatch")
)

// Reader reads the primary GPT of block devices.
type Reader struct {
	log *zap.Logger
}

// NewReader returns a Reader logging through log.
func NewReader(log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{log: log}
}

// Read reads the GPT of dev through r. The returned DiskInfo is always usable;
// the error collects the non-fatal problems met on the way, and is nil when
// there were none. A missing signature is not an error.
func (rd *Reader) Read(dev blockio.Device, r io.ReaderAt) (DiskInfo, error) {
	info := DiskInfo{Device: dev}
	if !dev.Readable() {
		return info, nil
	}

	log := rd.log.With(zap.Int("device", dev.Index))
	bs := uint64(dev.Media.BlockSize)
	if bs < MinHeaderSize {
		log.Warn("block size too small for a GPT header", zap.Uint64("block_size", bs))
		return info, fmt.Errorf("%s: block size %d: %w", dev, bs, ErrInvalidHeader)
	}

	block := make([]byte, bs)
	if _, err := r.ReadAt(block, int64(HeaderLBA*bs)); err != nil {
		log.Warn("header read failed", zap.Error(err))
		return info, fmt.Errorf("%s: header: %w: %w", dev, ErrPartitionRead, err)
	}
	if !bytes.Equal(block[:len(Signature)], []byte(Signature)) {
		log.Debug("no GPT signature")
		return info, nil
	}

	if err := binary.Read(bytes.NewReader(block), binary.LittleEndian, &info.Header); err != nil {
		return info, fmt.Errorf("%s: decode header: %w", dev, err)
	}
	info.GPTFound = true
	h := info.Header

	var errs *multierror.Error

	info.HeaderCRCValid = headerCRCValid(block, h)
	if !info.HeaderCRCValid {
		log.Warn("header CRC mismatch", zap.Uint32("stored", h.HeaderCRC32))
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", dev, ErrHeaderCRC))
	}

	if h.SizeOfPartitionEntry < MinEntrySize {
		log.Warn("partition entry size too small", zap.Uint32("size", h.SizeOfPartitionEntry))
		errs = multierror.Append(errs, fmt.Errorf("%s: entry size %d: %w", dev, h.SizeOfPartitionEntry, ErrInvalidHeader))
		return info, errs.ErrorOrNil()
	}
	if h.EntryArraySize() > MaxEntryArraySize {
		log.Warn("partition entry array too large", zap.Uint64("bytes", h.EntryArraySize()))
		errs = multierror.Append(errs, fmt.Errorf("%s: %d bytes: %w", dev, h.EntryArraySize(), ErrEntryArrayTooLarge))
		return info, errs.ErrorOrNil()
	}

	array, complete, readErr := rd.readEntryArray(log, dev, r, h)
	if readErr != nil {
		errs = multierror.Append(errs, readErr)
	}

	size := uint64(h.SizeOfPartitionEntry)
	info.Entries = make([]PartitionEntry, h.NumberOfPartitionEntries)
	for j := range info.Entries {
		raw := array[uint64(j)*size : uint64(j)*size+MinEntrySize]
		if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &info.Entries[j]); err != nil {
			return info, fmt.Errorf("%s: decode entry %d: %w", dev, j, err)
		}
	}

	if complete {
		info.EntriesCRCValid = crc32.ChecksumIEEE(array) == h.PartitionEntryArrayCRC32
		if !info.EntriesCRCValid {
			log.Warn("entries CRC mismatch", zap.Uint32("stored", h.PartitionEntryArrayCRC32))
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", dev, ErrEntriesCRC))
		}
	}

	return info, errs.ErrorOrNil()
}

// readEntryArray reads the entry array one block's worth of whole entries at a
// time. When a batch fails its entries are retried one by one, and entries
// that still fail are left zeroed. complete reports whether every byte was read.
func (rd *Reader) readEntryArray(log *zap.Logger, dev blockio.Device, r io.ReaderAt, h Header) (array []byte, complete bool, err error) {
	bs := uint64(dev.Media.BlockSize)
	size := uint64(h.SizeOfPartitionEntry)
	n := uint64(h.NumberOfPartitionEntries)
	base := h.PartitionEntryLBA * bs

	perBatch := bs / size
	if perBatch == 0 {
		perBatch = 1
	}

	array = make([]byte, n*size)
	complete = true
	var errs *multierror.Error

	for j := uint64(0); j < n; j += perBatch {
		count := min(perBatch, n-j)
		buf := array[j*size : (j+count)*size]
		off := base + j*size
		if _, batchErr := r.ReadAt(buf, int64(off)); batchErr == nil {
			continue
		}
		clear(buf)

		for k := j; k < j+count; k++ {
			slot := array[k*size : (k+1)*size]
			off := base + k*size
			if _, entryErr := r.ReadAt(slot, int64(off)); entryErr != nil {
				clear(slot)
				complete = false
				log.Warn("partition entry read failed",
					zap.Uint64("index", k),
					zap.Uint64("offset", off),
					zap.Error(entryErr),
				)
				errs = multierror.Append(errs, fmt.Errorf("%s: entry %d: %w: %w", dev, k, ErrPartitionRead, entryErr))
			}
		}
	}

	return array, complete, errs.ErrorOrNil()
}

func headerCRCValid(block []byte, h Header) bool {
	if h.HeaderSize < MinHeaderSize || int(h.HeaderSize) > len(block) {
		return false
	}
	tmp := make([]byte, h.HeaderSize)
	copy(tmp, block[:h.HeaderSize])
	clear(tmp[16:20])
	return crc32.ChecksumIEEE(tmp) == h.HeaderCRC32
}
