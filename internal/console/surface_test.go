package console_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"neoboot/internal/bootcfg"
	"neoboot/internal/console"
	"neoboot/internal/discovery"
	"neoboot/internal/firmware"
	"neoboot/internal/firmware/fwtest"
	"neoboot/internal/menu"
)

func entries(names ...string) *menu.State {
	out := make([]menu.Entry, len(names))
	for i, n := range names {
		out[i] = menu.Entry{Name: n, Disk: -1, Partition: -1}
	}
	return menu.New(out)
}

func newSurface(t *testing.T, script string, opts ...console.Option) (*console.Surface, *fwtest.Console) {
	t.Helper()
	con := fwtest.NewConsole(fwtest.Script(script)...)
	opts = append([]console.Option{console.WithLogger(zaptest.NewLogger(t))}, opts...)
	return console.New(con, entries("alpha", "beta", "gamma"), opts...), con
}

func feed(t *testing.T, s *console.Surface, script string) {
	t.Helper()
	for _, k := range fwtest.Script(script) {
		_, err := s.HandleKey(k)
		require.NoError(t, err, "key %s", k)
	}
}

func TestMenuLayout(t *testing.T) {
	s, con := newSurface(t, "⎋")
	require.NoError(t, s.Run())

	titleRow := 25 / 8
	title := console.DefaultTitle
	assert.Equal(t, strings.Repeat(" ", (80-len(title))/2)+title, con.Line(titleRow))
	assert.Equal(t, firmware.AttrTitle, con.AttrAt((80-len(title))/2, titleRow))

	// Each entry is padded on both sides by its centering offset.
	first := titleRow + 4
	assert.Equal(t, strings.Repeat(" ", 33)+"    alpha", con.Line(first))
	assert.Equal(t, strings.Repeat(" ", 34)+"    beta", con.Line(first+1))
	assert.Equal(t, strings.Repeat(" ", 33)+"    gamma", con.Line(first+2))

	assert.Equal(t, firmware.AttrInverted, con.AttrAt(33, first), "padding is inverted too")
	assert.Equal(t, firmware.AttrInverted, con.AttrAt(41, first))
	assert.Equal(t, firmware.AttrInverted, con.AttrAt(0, first))
	assert.Equal(t, firmware.AttrInverted, con.AttrAt(78, first))
	assert.Equal(t, firmware.AttrNormal, con.AttrAt(79, first))
	assert.Equal(t, firmware.AttrNormal, con.AttrAt(37, first+1))

	assert.GreaterOrEqual(t, con.FindLine("Enter: Boot"), 24)
}

func TestMenuNavigation(t *testing.T) {
	s, con := newSurface(t, "↓↓↓↑⎋")
	require.NoError(t, s.Run())

	assert.Equal(t, 1, s.State().SelectedIndex())
	assert.Equal(t, 4, con.Clears, "initial draw plus three moves; the clamped press does not redraw")

	row := con.FindLine("beta")
	require.Positive(t, row)
	assert.Equal(t, firmware.AttrInverted, con.AttrAt(37, row))
	assert.Equal(t, firmware.AttrNormal, con.AttrAt(37, row-1))
}

func TestMenuIgnoresOtherKeys(t *testing.T) {
	s, con := newSurface(t, "x←→7⌫⎋")
	require.NoError(t, s.Run())
	assert.Equal(t, 1, con.Clears)
	assert.Equal(t, console.ModeMenu, s.Mode())
}

func TestEnterRedrawsAndCallsBootHook(t *testing.T) {
	var booted []string
	hook := func(e menu.Entry) error {
		booted = append(booted, e.Name)
		if e.Name == "beta" {
			return errors.New("no kernel")
		}
		return nil
	}

	s, con := newSurface(t, "⏎↓⏎⎋", console.WithBootHook(hook))
	require.NoError(t, s.Run())

	assert.Equal(t, []string{"alpha", "beta"}, booted)
	assert.Equal(t, 4, con.Clears)

	row := con.FindLine("Boot beta failed: no kernel")
	require.Positive(t, row)
	assert.Equal(t, firmware.AttrWarning, con.AttrAt(40, row))
}

func TestRepeatedBootFailuresKeepMenuVisible(t *testing.T) {
	hook := func(e menu.Entry) error {
		return errors.New("no loader")
	}
	s, con := newSurface(t, strings.Repeat("⏎", 20)+"↓"+strings.Repeat("⏎", 5)+"⎋",
		console.WithBootHook(hook), console.WithNotices("config file not found"))
	require.NoError(t, s.Run())

	assert.Equal(t, 3, con.FindLine(console.DefaultTitle))
	row := con.FindLine("beta")
	require.Equal(t, 8, row)
	assert.Equal(t, firmware.AttrInverted, con.AttrAt(38, row))
	assert.Equal(t, 7, con.FindLine("alpha"))

	assert.Equal(t, 22, con.FindLine("config file not found"))
	assert.Equal(t, 23, con.FindLine("Boot beta failed: no loader"))
	assert.Equal(t, -1, con.FindLine("Boot alpha failed"))
	assert.Equal(t, 24, con.FindLine("Esc: Exit"))
}

func TestNoticesLeaveRoomForEntries(t *testing.T) {
	notices := make([]string, 30)
	for i := range notices {
		notices[i] = fmt.Sprintf("notice %02d", i)
	}
	s, con := newSurface(t, "⎋", console.WithNotices(notices...))
	require.NoError(t, s.Run())

	assert.Equal(t, 3, con.FindLine(console.DefaultTitle))
	row := con.FindLine("alpha")
	require.Equal(t, 7, row)
	assert.Equal(t, firmware.AttrInverted, con.AttrAt(37, row))
	assert.Equal(t, -1, con.FindLine("notice 14"))
	assert.Equal(t, 9, con.FindLine("notice 15"))
	assert.Equal(t, 23, con.FindLine("notice 29"))
}

func TestEnterWithoutHookOnlyRedraws(t *testing.T) {
	s, con := newSurface(t, "⏎⏎⎋")
	require.NoError(t, s.Run())
	assert.Equal(t, 3, con.Clears)
	assert.Equal(t, 0, s.State().SelectedIndex())
}

func TestNotices(t *testing.T) {
	s, con := newSurface(t, "⎋", console.WithNotices("config file not found", "second"))
	require.NoError(t, s.Run())

	assert.Equal(t, 22, con.FindLine("config file not found"))
	assert.Equal(t, 23, con.FindLine("second"))
	assert.Equal(t, 24, con.FindLine("Esc: Exit"))
}

func TestEmptyMenu(t *testing.T) {
	con := fwtest.NewConsole(fwtest.Script("↓⏎⎋")...)
	s := console.New(con, menu.New(nil))
	require.NoError(t, s.Run())
	assert.Positive(t, con.FindLine("No boot entries found"))
}

func TestCommandLine(t *testing.T) {
	s, con := newSurface(t, "")

	_, err := s.HandleKey(firmware.RuneKey('C'))
	require.NoError(t, err)
	assert.Equal(t, console.ModeCommandLine, s.Mode())
	assert.Equal(t, strings.TrimRight(console.Prompt, " "), con.Line(1))

	feed(t, s, "help⏎")
	out := con.Transcript.String()
	assert.Contains(t, out, "neoboot> help\nCommands:\n")
	assert.Contains(t, out, "  menu     return to the boot menu\n")
	assert.True(t, strings.HasSuffix(out, console.Prompt))

	feed(t, s, "boot now⏎")
	assert.Contains(t, con.Transcript.String(), "neoboot> boot now\nUnknown Command: boot now\nneoboot> ")

	feed(t, s, "⏎")
	assert.True(t, strings.HasSuffix(con.Transcript.String(), "neoboot> \nneoboot> "))

	clears := con.Clears
	feed(t, s, "menu⏎")
	assert.Equal(t, console.ModeMenu, s.Mode())
	assert.Equal(t, clears+1, con.Clears)
	assert.Positive(t, con.FindLine("alpha"))
}

func TestCommandLineEscapeDiscardsLine(t *testing.T) {
	s, _ := newSurface(t, "")
	feed(t, s, "cabc")
	assert.Equal(t, "abc", s.Line())

	feed(t, s, "⎋")
	assert.Equal(t, console.ModeMenu, s.Mode())
	assert.Equal(t, "", s.Line())

	feed(t, s, "c")
	assert.Equal(t, "", s.Line())
}

func TestCommandLineBackspace(t *testing.T) {
	s, con := newSurface(t, "")
	feed(t, s, "cab⌫")
	assert.Equal(t, "a", s.Line())
	assert.Equal(t, console.Prompt+"a", con.Line(1))

	feed(t, s, "⌫⌫⌫")
	assert.Equal(t, "", s.Line())
	assert.Equal(t, strings.TrimRight(console.Prompt, " "), con.Line(1))
}

func TestCommandBufferOverflow(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	con := fwtest.NewConsole(fwtest.Script("c123456⏎⎋⎋")...)
	s := console.New(con, entries("a"), console.WithCommandCapacity(4), console.WithLogger(zap.New(core)))

	require.NoError(t, s.Run())
	assert.Contains(t, con.Transcript.String(), "Unknown Command: 1234\n")
	assert.Equal(t, 2, logs.FilterMessage("key rejected").Len())

	s = console.New(fwtest.NewConsole(), entries("a"), console.WithCommandCapacity(2))
	feed(t, s, "cab")
	_, err := s.HandleKey(firmware.RuneKey('c'))
	assert.ErrorIs(t, err, console.ErrCommandBufferOverflow)
	assert.Equal(t, "ab", s.Line())
}

func TestDiagnosticsCommands(t *testing.T) {
	img := fwtest.GPTImage{
		BlockSize: 512,
		Partitions: []fwtest.GPTPartition{
			{Index: 0, Type: fwtest.TypeEFISystem, FirstLBA: 34, LastLBA: 63, Name: "ESP"},
		},
	}
	res, err := discovery.New(&fwtest.Block{Disks: []*fwtest.Disk{
		fwtest.NewDisk(512, img.Bytes()),
		fwtest.EmptyDrive(),
	}}, nil).Scan()
	require.NoError(t, err)

	cfg := bootcfg.Parse([]byte("name=nextos,quiet"))
	s, con := newSurface(t, "", console.WithDiagnostics(console.Diagnostics{Disks: res.Disks, Config: cfg}))

	feed(t, s, "cdisks⏎config⏎")
	out := con.Transcript.String()
	assert.Contains(t, out, "disk0: ")
	assert.Contains(t, out, "1 active partition(s)")
	assert.Contains(t, out, "EFI System")
	assert.Contains(t, out, "disk1: no media")
	assert.Contains(t, out, "  0  name = nextos\n")
	assert.Contains(t, out, `warning: token "quiet" has no value`)

	clears := con.Clears
	feed(t, s, "clear⏎")
	assert.Equal(t, clears+1, con.Clears)
	assert.Equal(t, console.ModeCommandLine, s.Mode())
	assert.Equal(t, strings.TrimRight(console.Prompt, " "), con.Line(0))
}

func TestDiagnosticsCommandsWithoutData(t *testing.T) {
	s, con := newSurface(t, "")
	feed(t, s, "cdisks⏎config⏎")
	out := con.Transcript.String()
	assert.Contains(t, out, "No block devices found.")
	assert.Contains(t, out, "No configuration entries.")
}

func TestConsoleFailures(t *testing.T) {
	t.Run("read key", func(t *testing.T) {
		s, _ := newSurface(t, "↓")
		err := s.Run()
		assert.ErrorIs(t, err, console.ErrConsoleIO)
		assert.ErrorIs(t, err, fwtest.ErrNoMoreKeys)
	})

	t.Run("query mode", func(t *testing.T) {
		con := fwtest.NewConsole(fwtest.Script("⎋")...)
		con.QueryErr = firmware.ErrDeviceError
		err := console.New(con, entries("a")).Run()
		assert.ErrorIs(t, err, console.ErrConsoleIO)
		assert.ErrorIs(t, err, firmware.ErrDeviceError)
	})

	t.Run("output", func(t *testing.T) {
		con := fwtest.NewConsole(fwtest.Script("⎋")...)
		con.OutputErr = firmware.ErrDeviceError
		err := console.New(con, entries("a")).Run()
		assert.ErrorIs(t, err, console.ErrConsoleIO)
	})
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "menu", console.ModeMenu.String())
	assert.Equal(t, "command-line", console.ModeCommandLine.String())
}
