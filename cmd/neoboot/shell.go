package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"neoboot/internal/bootcfg"
	"neoboot/internal/discovery"
	"neoboot/internal/firmware/hostfw"
	"neoboot/internal/shell"
)

var shellHistory = filepath.Join(os.TempDir(), "neoboot_history")

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Inspect disks, partitions and the boot configuration interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer func() {
			_ = log.Sync()
		}()

		bio, err := openBlockIO(log)
		if err != nil {
			return err
		}
		defer func() {
			_ = bio.Close()
		}()

		// A missing configuration is reported by the config commands.
		cfg, _ := bootcfg.Load(hostfw.DirFiles{Root: settings.ESPDir}, settings.ConfigPath, log)

		sh := shell.New(discovery.New(bio, log).Scan, cfg, log)
		if err := sh.Refresh(); err != nil {
			return err
		}
		return sh.Run("neoboot> ", shellHistory)
	},
}

func init() {
	shellCmd.Flags().StringVar(&shellHistory, "history", shellHistory, "readline history file")
	rootCmd.AddCommand(shellCmd)
}
