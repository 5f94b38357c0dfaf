package imagefile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Image is an opened disk image with random access.
type Image interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

type rawImage struct {
	f    *os.File
	size int64
}

func (r *rawImage) ReadAt(p []byte, off int64) (int, error) { return r.f.ReadAt(p, off) }
func (r *rawImage) Close() error                             { return r.f.Close() }
func (r *rawImage) Size() int64                              { return r.size }

// OSFile returns the underlying file.
func (r *rawImage) OSFile() *os.File { return r.f }

type memImage struct {
	*bytes.Reader
}

func (memImage) Close() error { return nil }

// Open opens the image at path. Compressed images, recognised by extension,
// are decompressed into memory; raw images are read in place.
func Open(path string) (Image, error) {
	switch a := Detect(path); a {
	case Raw:
		return openRaw(path)
	case Zip:
		return openZip(path)
	default:
		return openCompressed(path, a)
	}
}

func openRaw(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to size %s: %w", path, err)
	}
	return &rawImage{f: f, size: size}, nil
}

func openCompressed(path string, a Algorithm) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	r, err := NewReader(a, f)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s stream in %s: %w", a, path, err)
	}
	defer func() {
		_ = r.Close()
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return memImage{bytes.NewReader(data)}, nil
}

func openZip(path string) (Image, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = zr.Close()
	}()

	if len(zr.File) == 0 {
		return nil, fmt.Errorf("%s: empty zip archive", path)
	}
	member, err := zr.File[0].Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = member.Close()
	}()

	data, err := io.ReadAll(member)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return memImage{bytes.NewReader(data)}, nil
}
