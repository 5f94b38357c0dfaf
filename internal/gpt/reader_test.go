package gpt_test

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"neoboot/internal/blockio"
	"neoboot/internal/firmware"
	"neoboot/internal/firmware/fwtest"
	"neoboot/internal/gpt"
)

var (
	uniqueA = [16]byte{0xa1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	uniqueB = [16]byte{0xb1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
)

func sampleImage() fwtest.GPTImage {
	return fwtest.GPTImage{
		BlockSize: 512,
		DiskGUID:  [16]byte{0xde, 0xad, 0xbe, 0xef},
		Partitions: []fwtest.GPTPartition{
			{Index: 0, Type: fwtest.TypeEFISystem, Unique: uniqueA, FirstLBA: 34, LastLBA: 65, Name: "EFI system"},
			{Index: 2, Type: fwtest.TypeLinuxFS, Unique: uniqueB, FirstLBA: 66, LastLBA: 95, Attributes: 1 << 60, Name: "root"},
		},
	}
}

func readDisk(t *testing.T, disk *fwtest.Disk) (gpt.DiskInfo, *fwtest.Block, error) {
	t.Helper()

	bio := &fwtest.Block{Disks: []*fwtest.Disk{disk}}
	e := blockio.NewEnumerator(bio, zaptest.NewLogger(t))
	devices, err := e.Enumerate()
	require.NoError(t, err)
	require.Len(t, devices, 1)

	info, err := gpt.NewReader(zaptest.NewLogger(t)).Read(devices[0], e.ReaderAt(devices[0]))
	return info, bio, err
}

func TestReadHeaderFields(t *testing.T) {
	img := sampleImage().Bytes()
	raw := img[512:]

	info, _, err := readDisk(t, fwtest.NewDisk(512, img))
	require.NoError(t, err)
	require.True(t, info.GPTFound)

	h := info.Header
	assert.Equal(t, gpt.Signature, string(h.Signature[:]))
	assert.Equal(t, binary.LittleEndian.Uint32(raw[8:]), h.Revision)
	assert.Equal(t, binary.LittleEndian.Uint32(raw[12:]), h.HeaderSize)
	assert.Equal(t, binary.LittleEndian.Uint32(raw[16:]), h.HeaderCRC32)
	assert.Equal(t, binary.LittleEndian.Uint64(raw[24:]), h.MyLBA)
	assert.Equal(t, binary.LittleEndian.Uint64(raw[32:]), h.AlternateLBA)
	assert.Equal(t, binary.LittleEndian.Uint64(raw[40:]), h.FirstUsableLBA)
	assert.Equal(t, binary.LittleEndian.Uint64(raw[48:]), h.LastUsableLBA)
	assert.Equal(t, raw[56:72], h.DiskGUID[:])
	assert.Equal(t, binary.LittleEndian.Uint64(raw[72:]), h.PartitionEntryLBA)
	assert.Equal(t, binary.LittleEndian.Uint32(raw[80:]), h.NumberOfPartitionEntries)
	assert.Equal(t, binary.LittleEndian.Uint32(raw[84:]), h.SizeOfPartitionEntry)
	assert.Equal(t, binary.LittleEndian.Uint32(raw[88:]), h.PartitionEntryArrayCRC32)

	assert.True(t, info.HeaderCRCValid)
	assert.True(t, info.EntriesCRCValid)
}

func TestReadEntries(t *testing.T) {
	info, _, err := readDisk(t, fwtest.NewDisk(512, sampleImage().Bytes()))
	require.NoError(t, err)

	require.Len(t, info.Entries, 128)
	assert.False(t, info.Entries[1].Active(), "inactive slot is kept at its index")

	active := info.ActivePartitions()
	require.Len(t, active, 2)

	got := []int{active[0].Index, active[1].Index}
	if diff := cmp.Diff([]int{0, 2}, got); diff != "" {
		t.Errorf("active indexes mismatch (-want +got):\n%s", diff)
	}

	esp := active[0]
	assert.Equal(t, gpt.TypeEFISystem, esp.TypeGUID)
	assert.Equal(t, "EFI System", esp.TypeName())
	assert.Equal(t, "EFI system", esp.NameString())
	assert.Equal(t, uint64(34), esp.StartingLBA)
	assert.Equal(t, uint64(65), esp.EndingLBA)
	assert.Equal(t, uint64(32), esp.Blocks())

	root := active[1]
	assert.Equal(t, gpt.TypeLinuxFilesystem, root.TypeGUID)
	assert.Equal(t, gpt.GUID(uniqueB), root.UniqueGUID)
	assert.Equal(t, uint64(1<<60), root.Attributes)
	assert.Equal(t, "root", root.NameString())
	assert.Equal(t, int64(66*512), info.PartitionOffset(2))
	assert.Equal(t, uint64(30*512), info.PartitionSize(2))
}

func TestReadBatchesOneBlockOfEntries(t *testing.T) {
	_, bio, err := readDisk(t, fwtest.NewDisk(512, sampleImage().Bytes()))
	require.NoError(t, err)

	reads := bio.ReadsOf(0)
	require.Len(t, reads, 1+128/4)
	assert.Equal(t, uint64(512), reads[0].Offset)
	for j, r := range reads[1:] {
		assert.Equal(t, uint64(1024+j*512), r.Offset)
		assert.Equal(t, 512, r.Length)
	}
}

func TestReadNoSignature(t *testing.T) {
	img := sampleImage().Bytes()
	copy(img[512:], "NOT GPT!")

	info, bio, err := readDisk(t, fwtest.NewDisk(512, img))
	require.NoError(t, err)
	assert.False(t, info.GPTFound)
	assert.Empty(t, info.Entries)
	assert.Len(t, bio.ReadsOf(0), 1, "no entry reads after a signature mismatch")
}

func TestReadMediaAbsent(t *testing.T) {
	info, bio, err := readDisk(t, fwtest.EmptyDrive())
	require.NoError(t, err)
	assert.False(t, info.GPTFound)
	assert.Empty(t, info.Entries)
	assert.Empty(t, bio.Reads)
}

func TestReadHeaderFailure(t *testing.T) {
	disk := fwtest.NewDisk(512, sampleImage().Bytes())
	disk.FailReads = []fwtest.Range{{Start: 512, End: 1024}}

	info, _, err := readDisk(t, disk)
	assert.False(t, info.GPTFound)
	assert.ErrorIs(t, err, gpt.ErrPartitionRead)
	assert.ErrorIs(t, err, firmware.ErrDeviceError)
}

func TestReadEntryFailureZeroesOnlyThatSlot(t *testing.T) {
	img := sampleImage()
	img.Partitions = append(img.Partitions, fwtest.GPTPartition{
		Index: 1, Type: fwtest.TypeLinuxFS, Unique: uniqueA, FirstLBA: 10, LastLBA: 20, Name: "home",
	})

	disk := fwtest.NewDisk(512, img.Bytes())
	entry1 := uint64(1024 + 128)
	disk.FailReads = []fwtest.Range{{Start: entry1, End: entry1 + 128}}

	info, _, err := readDisk(t, disk)
	require.True(t, info.GPTFound)
	assert.ErrorIs(t, err, gpt.ErrPartitionRead)
	assert.NotErrorIs(t, err, gpt.ErrEntriesCRC)

	assert.Equal(t, gpt.PartitionEntry{}, info.Entries[1])
	assert.True(t, info.Entries[0].Active())
	assert.True(t, info.Entries[2].Active())
	assert.Len(t, info.ActivePartitions(), 2)
	assert.False(t, info.EntriesCRCValid)
}

func TestReadHeaderCRCMismatch(t *testing.T) {
	img := sampleImage()
	img.CorruptHeaderCRC = true

	info, _, err := readDisk(t, fwtest.NewDisk(512, img.Bytes()))
	require.True(t, info.GPTFound)
	assert.ErrorIs(t, err, gpt.ErrHeaderCRC)
	assert.False(t, info.HeaderCRCValid)
	assert.True(t, info.EntriesCRCValid)
	assert.Len(t, info.ActivePartitions(), 2)
}

func TestReadEntriesCRCMismatch(t *testing.T) {
	data := sampleImage().Bytes()
	data[1024+56] ^= 0xff

	info, _, err := readDisk(t, fwtest.NewDisk(512, data))
	require.True(t, info.GPTFound)
	assert.ErrorIs(t, err, gpt.ErrEntriesCRC)
	assert.False(t, info.EntriesCRCValid)
}

func TestReadRejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name    string
		offset  int
		value   uint32
		wantErr error
	}{
		{name: "entry size below minimum", offset: 84, value: 64, wantErr: gpt.ErrInvalidHeader},
		{name: "entry array too large", offset: 80, value: 1 << 20, wantErr: gpt.ErrEntryArrayTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sampleImage().Bytes()
			binary.LittleEndian.PutUint32(data[512+tt.offset:], tt.value)

			info, bio, err := readDisk(t, fwtest.NewDisk(512, data))
			assert.True(t, info.GPTFound)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, info.Entries)
			assert.Len(t, bio.ReadsOf(0), 1)
		})
	}
}

func TestReadLargeBlockSize(t *testing.T) {
	img := sampleImage()
	img.BlockSize = 4096

	info, bio, err := readDisk(t, fwtest.NewDisk(4096, img.Bytes()))
	require.NoError(t, err)
	require.True(t, info.GPTFound)
	assert.Len(t, info.ActivePartitions(), 2)
	assert.Len(t, bio.ReadsOf(0), 1+128/32)
}
