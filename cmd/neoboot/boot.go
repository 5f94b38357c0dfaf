package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neoboot/internal/agent"
	"neoboot/internal/console"
	"neoboot/internal/firmware"
	"neoboot/internal/firmware/hostfw"
)

const defaultBootLog = "neoboot.log"

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Run the interactive boot menu",
	Long: `Scans the configured disks, loads the boot configuration from the boot
volume directory and runs the boot menu full screen. Logs go to --log-file,
or to neoboot.log when none is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if settings.LogFile == "" {
			settings.LogFile = defaultBootLog
		}
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

		term, err := console.OpenTerminal()
		if err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}
		defer term.Close()

		svc := firmware.Services{
			Block:   bio,
			Files:   hostfw.DirFiles{Root: settings.ESPDir},
			Console: term,
		}
		log.Info("boot session starting",
			zap.Strings("disks", settings.Disks),
			zap.String("esp_dir", settings.ESPDir),
			zap.String("config_path", settings.ConfigPath),
		)
		return agent.NewSession(svc, settings, log).Run()
	},
}

func init() {
	rootCmd.AddCommand(bootCmd)
}
