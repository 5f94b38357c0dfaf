package agent_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"neoboot/internal/agent"
	"neoboot/internal/blockio"
	"neoboot/internal/bootcfg"
	"neoboot/internal/console"
	"neoboot/internal/discovery"
	"neoboot/internal/firmware"
	"neoboot/internal/firmware/fwtest"
	"neoboot/internal/menu"
)

func defaultSettings(t *testing.T) agent.Settings {
	t.Helper()
	s, err := agent.LoadSettings(agent.NewViper(), "")
	require.NoError(t, err)
	return s
}

func services(script string, config string) firmware.Services {
	img := fwtest.GPTImage{
		BlockSize: 512,
		Partitions: []fwtest.GPTPartition{
			{Index: 0, Type: fwtest.TypeEFISystem, FirstLBA: 34, LastLBA: 63, Name: "ESP"},
		},
	}.Bytes()

	files := &fwtest.Files{Contents: map[string][]byte{}}
	if config != "" {
		files.Contents[bootcfg.DefaultPath] = []byte(config)
	}
	return firmware.Services{
		Block:   &fwtest.Block{Disks: []*fwtest.Disk{fwtest.NewDisk(512, img), fwtest.EmptyDrive()}},
		Files:   files,
		Console: fwtest.NewConsole(fwtest.Script(script)...),
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := defaultSettings(t)
	assert.Equal(t, console.DefaultTitle, s.Title)
	assert.Equal(t, ".", s.ESPDir)
	assert.Equal(t, bootcfg.DefaultPath, s.ConfigPath)
	assert.Empty(t, s.Disks)
	assert.Equal(t, console.DefaultCommandCapacity, s.CommandBuffer)
	assert.Equal(t, "info", s.LogLevel)
	assert.Empty(t, s.LogFile)
}

func TestSettingsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "neoboot.yaml")
	require.NoError(t, os.WriteFile(file, []byte(strings.Join([]string{
		"title: Test Loader",
		"esp_dir: /boot/efi",
		"disks:",
		"  - disk0.img",
		"  - \"-\"",
		"command_buffer: 32",
	}, "\n")), 0o600))

	t.Setenv("NEOBOOT_LOG_LEVEL", "debug")

	s, err := agent.LoadSettings(agent.NewViper(), file)
	require.NoError(t, err)
	assert.Equal(t, "Test Loader", s.Title)
	assert.Equal(t, "/boot/efi", s.ESPDir)
	assert.Equal(t, []string{"disk0.img", "-"}, s.Disks)
	assert.Equal(t, 32, s.CommandBuffer)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestSettingsInvalid(t *testing.T) {
	v := agent.NewViper()
	v.Set("command_buffer", 0)
	_, err := agent.LoadSettings(v, "")
	assert.ErrorIs(t, err, agent.ErrInvalidSettings)

	v = agent.NewViper()
	v.Set("log_level", "loud")
	_, err = agent.LoadSettings(v, "")
	assert.ErrorIs(t, err, agent.ErrInvalidSettings)

	_, err = agent.LoadSettings(agent.NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLoggerToFile(t *testing.T) {
	s := defaultSettings(t)
	s.LogFile = filepath.Join(t.TempDir(), "neoboot.log")

	log, err := agent.NewLogger(s)
	require.NoError(t, err)
	log.Info("hello", zap.String("device", "disk0"))
	_ = log.Sync()

	data, err := os.ReadFile(s.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "disk0")

	s.LogLevel = "loud"
	_, err = agent.NewLogger(s)
	assert.Error(t, err)
}

func TestSessionBootsSelectedEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := services("↓⏎⎋", "name=nextos,")

	var booted []menu.Entry
	sess := agent.NewSession(svc, defaultSettings(t), zap.New(core),
		agent.WithBootHook(func(e menu.Entry) error {
			booted = append(booted, e)
			return nil
		}))
	require.NoError(t, sess.Run())

	require.Len(t, booted, 1)
	assert.Contains(t, booted[0].Name, "disk0 p1 ESP")
	assert.Equal(t, 0, booted[0].Disk)
	assert.Equal(t, 0, booted[0].Partition)
	assert.False(t, booted[0].FromConfig())

	con := svc.Console.(*fwtest.Console)
	assert.NotEqual(t, -1, con.FindLine("nextos"))
	assert.Equal(t, -1, con.FindLine("Configuration"))

	require.Equal(t, 1, logs.FilterMessage("boot requested").Len())
	assert.Equal(t, 1, logs.FilterMessage("boot menu closed").Len())
}

func TestSessionMissingConfigIsNotice(t *testing.T) {
	svc := services("⎋", "")
	sess := agent.NewSession(svc, defaultSettings(t), zaptest.NewLogger(t))
	require.NoError(t, sess.Run())

	con := svc.Console.(*fwtest.Console)
	row := con.FindLine("Configuration file not found")
	require.NotEqual(t, -1, row)
	assert.NotEqual(t, -1, con.FindLine("disk0 p1 ESP"))
}

func TestSessionReportsFatalDiscovery(t *testing.T) {
	svc := services("x", "")
	svc.Block.(*fwtest.Block).LocateErr = errors.New("locate failed")

	err := agent.NewSession(svc, defaultSettings(t), zaptest.NewLogger(t)).Run()
	require.ErrorIs(t, err, blockio.ErrDeviceEnumeration)

	con := svc.Console.(*fwtest.Console)
	row := con.FindLine("Fatal error:")
	require.NotEqual(t, -1, row)
	assert.Equal(t, firmware.AttrError, con.AttrAt(0, row))
	assert.Empty(t, con.Keys, "the acknowledgement key is consumed")
}

func TestSessionConsoleFailure(t *testing.T) {
	svc := services("", "name=a")
	err := agent.NewSession(svc, defaultSettings(t), zaptest.NewLogger(t)).Run()
	assert.ErrorIs(t, err, console.ErrConsoleIO)
	assert.ErrorIs(t, err, fwtest.ErrNoMoreKeys)
}

func TestNotices(t *testing.T) {
	assert.Empty(t, agent.Notices(discovery.Result{}, bootcfg.Parse([]byte("a=b")), nil))

	got := agent.Notices(
		discovery.Result{Warnings: []error{errors.New("one"), errors.New("two")}},
		bootcfg.Parse([]byte("a,b=c,d")),
		errors.New("boom"),
	)
	assert.Equal(t, []string{
		"2 disk warning(s); type 'disks' in the command line for details",
		"Configuration unavailable: boom",
		"Configuration has 2 malformed token(s)",
	}, got)
}
