package shell_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"neoboot/internal/bootcfg"
	"neoboot/internal/discovery"
	"neoboot/internal/firmware/fwtest"
	"neoboot/internal/shell"
)

func newShell(t *testing.T, cfg string) (*shell.Shell, *fwtest.Block) {
	t.Helper()
	img := fwtest.GPTImage{
		BlockSize: 512,
		Partitions: []fwtest.GPTPartition{
			{Index: 0, Type: fwtest.TypeEFISystem, FirstLBA: 34, LastLBA: 63, Name: "ESP"},
			{Index: 2, Type: fwtest.TypeLinuxFS, FirstLBA: 64, LastLBA: 95, Name: "root"},
		},
	}.Bytes()
	bio := &fwtest.Block{Disks: []*fwtest.Disk{fwtest.NewDisk(512, img), fwtest.EmptyDrive()}}

	log := zaptest.NewLogger(t)
	sh := shell.New(discovery.New(bio, log).Scan, bootcfg.Parse([]byte(cfg)), log)
	require.NoError(t, sh.Refresh())
	return sh, bio
}

func texts(lines []shell.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestDiskLines(t *testing.T) {
	sh, _ := newShell(t, "")
	lines := sh.DiskLines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0].Text, "disk0:")
	assert.Contains(t, lines[0].Text, "2 active partition(s)")
	assert.Equal(t, "disk1: no media", lines[1].Text)
	assert.Equal(t, shell.LevelInfo, lines[1].Level)
}

func TestDiskLookup(t *testing.T) {
	sh, _ := newShell(t, "")

	d, err := sh.Disk("disk1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Device.Index)

	d, err = sh.Disk(" 0 ")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Device.Index)

	for _, name := range []string{"disk7", "sda", ""} {
		_, err = sh.Disk(name)
		assert.ErrorIs(t, err, shell.ErrUnknownDisk, name)
	}
}

func TestPartitionLines(t *testing.T) {
	sh, _ := newShell(t, "")

	lines, err := sh.PartitionLines("disk0")
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1].Text, "ESP")
	assert.Contains(t, lines[2].Text, "root")
	assert.Contains(t, lines[2].Text, "  3  ", "partitions keep their table index")

	lines, err = sh.PartitionLines("disk1")
	require.NoError(t, err)
	assert.Equal(t, []shell.Line{{Level: shell.LevelWarn, Text: "No GPT on disk1"}}, lines)

	_, err = sh.PartitionLines("disk9")
	assert.ErrorIs(t, err, shell.ErrUnknownDisk)
}

func TestConfigLines(t *testing.T) {
	sh, _ := newShell(t, "name=nextos,timeout,name=rescue")
	want := []string{
		"  0  name = nextos",
		"  1  timeout (no value)",
		"  2  name = rescue",
		`token "timeout" has no value`,
	}
	if diff := cmp.Diff(want, texts(sh.ConfigLines())); diff != "" {
		t.Errorf("config lines mismatch (-want +got):\n%s", diff)
	}

	empty, _ := newShell(t, "")
	assert.Equal(t, []shell.Line{{Level: shell.LevelWarn, Text: "No configuration entries"}}, empty.ConfigLines())
}

func TestEntryLines(t *testing.T) {
	sh, _ := newShell(t, "name=nextos")
	lines := texts(sh.EntryLines())
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "nextos")
	assert.Contains(t, lines[0], "[config]")
	assert.Contains(t, lines[1], "disk0 p1 ESP")
	assert.Contains(t, lines[2], "[partition]")
}

func TestRefreshKeepsSnapshotOnFailure(t *testing.T) {
	sh, bio := newShell(t, "")
	bio.LocateErr = errors.New("gone")

	assert.Error(t, sh.Refresh())
	assert.Len(t, sh.DiskLines(), 2)

	bio.LocateErr = nil
	bio.Disks = nil
	require.NoError(t, sh.Refresh())
	assert.Equal(t, []shell.Line{{Level: shell.LevelWarn, Text: "No block devices found"}}, sh.DiskLines())
}
