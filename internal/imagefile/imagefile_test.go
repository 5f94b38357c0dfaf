package imagefile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoboot/internal/imagefile"
)

func sample() []byte {
	data := make([]byte, 64*1024)
	for i := range data {
		data[i] = byte(i / 512)
	}
	copy(data[512:], "EFI PART")
	return data
}

func TestCompressAndOpenRoundTrip(t *testing.T) {
	data := sample()

	for _, algo := range imagefile.Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), "disk.img")
			var progress bytes.Buffer

			stats, err := imagefile.Compress(bytes.NewReader(data), dst, imagefile.CompressOptions{
				Algorithm: algo,
				TotalSize: int64(len(data)),
				Progress:  &progress,
			})
			require.NoError(t, err)
			assert.Equal(t, dst+algo.Extension(), stats.Path)
			assert.Equal(t, int64(len(data)), stats.Read)
			assert.Positive(t, stats.Written)
			assert.Greater(t, stats.Ratio(), 1.0)
			assert.Contains(t, progress.String(), "Byte Count: Read: 64 KiB (65536 bytes)")

			assert.Equal(t, algo, imagefile.Detect(stats.Path))

			img, err := imagefile.Open(stats.Path)
			require.NoError(t, err)
			defer img.Close()

			assert.Equal(t, int64(len(data)), img.Size())
			buf := make([]byte, 8)
			_, err = img.ReadAt(buf, 512)
			require.NoError(t, err)
			assert.Equal(t, "EFI PART", string(buf))
		})
	}
}

func TestOpenRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, sample(), 0o600))

	img, err := imagefile.Open(path)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, int64(64*1024), img.Size())
	buf := make([]byte, 8)
	_, err = img.ReadAt(buf, 512)
	require.NoError(t, err)
	assert.Equal(t, "EFI PART", string(buf))
}

func TestOpenMissing(t *testing.T) {
	_, err := imagefile.Open(filepath.Join(t.TempDir(), "missing.img.gz"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o600))

	_, err := imagefile.Open(path)
	assert.Error(t, err)
}

func TestParseAlgorithm(t *testing.T) {
	a, err := imagefile.ParseAlgorithm("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, imagefile.Zstd, a)

	_, err = imagefile.ParseAlgorithm("lz4")
	assert.Error(t, err)

	assert.Equal(t, imagefile.Raw, imagefile.Detect("disk.img"))
	assert.Equal(t, imagefile.Bzip2, imagefile.Detect("disk.IMG.BZ2"))
}
