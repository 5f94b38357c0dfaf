// Package imagefile opens raw or compressed disk images and produces
// compressed images from a raw source.
package imagefile

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Algorithm names a compression format.
type Algorithm string

const (
	Raw    Algorithm = ""
	Gzip   Algorithm = "gzip"
	Zlib   Algorithm = "zlib"
	Bzip2  Algorithm = "bzip2"
	Snappy Algorithm = "snappy"
	S2     Algorithm = "s2"
	Zstd   Algorithm = "zstd"
	Zip    Algorithm = "zip"
)

// zipEntry is the name of the single member of zip images.
const zipEntry = "compressedData"

var extensions = map[Algorithm]string{
	Gzip:   ".gz",
	Zlib:   ".zlib",
	Bzip2:  ".bz2",
	Snappy: ".snappy",
	S2:     ".s2",
	Zstd:   ".zst",
	Zip:    ".zip",
}

// Algorithms lists the supported compression formats.
func Algorithms() []Algorithm {
	return []Algorithm{Gzip, Zlib, Bzip2, Snappy, S2, Zstd, Zip}
}

// ParseAlgorithm validates a compression format name.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(name))
	if _, ok := extensions[a]; !ok {
		return Raw, fmt.Errorf("unsupported compression algorithm: %s", name)
	}
	return a, nil
}

// Extension returns the file extension of a format.
func (a Algorithm) Extension() string {
	return extensions[a]
}

// Detect returns the format implied by the extension of path, or Raw.
func Detect(path string) Algorithm {
	ext := strings.ToLower(filepath.Ext(path))
	for a, e := range extensions {
		if e == ext {
			return a
		}
	}
	return Raw
}

type multiCloser struct {
	io.Writer
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

// NewWriter returns a writer compressing into w. Closing it flushes the
// stream but does not close w.
func NewWriter(a Algorithm, w io.Writer) (io.WriteCloser, error) {
	switch a {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zlib:
		return zlib.NewWriter(w), nil
	case Bzip2:
		return bzip2.NewWriter(w, &bzip2.WriterConfig{})
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	case Zip:
		zw := zip.NewWriter(w)
		member, err := zw.Create(zipEntry)
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("failed to create zip entry: %w", err)
		}
		return &multiCloser{Writer: member, closers: []io.Closer{zw}}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// NewReader returns a reader decompressing r. Zip images need random access
// and are handled by Open.
func NewReader(a Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch a {
	case Gzip:
		return gzip.NewReader(r)
	case Zlib:
		return zlib.NewReader(r)
	case Bzip2:
		return bzip2.NewReader(r, &bzip2.ReaderConfig{})
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}
