// Command neoboot runs the boot agent core on a host, with disk images
// standing in for block devices and a directory for the boot volume.
package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neoboot/internal/agent"
	"neoboot/internal/bootcfg"
	"neoboot/internal/console"
	"neoboot/internal/firmware/hostfw"
)

var appversion = "0.01"

var (
	v            = agent.NewViper()
	settingsFile string
	settings     agent.Settings
	hostDisks    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "neoboot",
	Short:         "Pre-OS boot agent: disk discovery, boot configuration and boot menu",
	Version:       appversion,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = agent.LoadSettings(v, settingsFile)
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsFile, "settings", "", "settings file (yaml, json or toml)")
	flags.BoolVar(&hostDisks, "host-disks", false, "also use the block devices of this machine (Linux)")
	flags.StringSlice("disk", nil, "disk image or device, repeatable; '-' adds an empty removable drive")
	flags.String("esp-dir", ".", "directory holding the boot volume contents")
	flags.String("config-path", bootcfg.DefaultPath, "configuration file path on the boot volume")
	flags.String("title", console.DefaultTitle, "boot menu title")
	flags.Int("command-buffer", console.DefaultCommandCapacity, "command line length limit")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "write logs to this file")

	// Flags override the settings file and environment only when set.
	for key, name := range map[string]string{
		"disks":          "disk",
		"esp_dir":        "esp-dir",
		"config_path":    "config-path",
		"title":          "title",
		"command_buffer": "command-buffer",
		"log_level":      "log-level",
		"log_file":       "log-file",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", name, err))
		}
	}
}

func newLogger() (*zap.Logger, error) {
	return agent.NewLogger(settings)
}

// openBlockIO returns the block service over the configured disks, plus the
// host's own devices when --host-disks is set.
func openBlockIO(log *zap.Logger) (*hostfw.ImageBlockIO, error) {
	paths := slices.Clone(settings.Disks)
	if hostDisks {
		devs, err := hostfw.HostDisks()
		if err != nil {
			return nil, err
		}
		log.Debug("host disks", zap.Strings("devices", devs))
		paths = append(paths, devs...)
	}
	return hostfw.NewImageBlockIO(paths, log.Named("block")), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
