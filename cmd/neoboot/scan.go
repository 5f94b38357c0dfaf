package main

import (
	"fmt"
	"os"

	"github.com/gosuri/uilive"
	"github.com/spf13/cobra"

	"neoboot/internal/discovery"
)

var scanVerbose bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the configured disks and print what was found",
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

		writer := uilive.New()
		writer.Out = os.Stdout
		progress := func(p discovery.Progress) {
			_, _ = fmt.Fprintf(writer, "Scanning: %d/%d (%s)\n", p.Done, p.Total, p.Device)
			_ = writer.Flush()
		}

		res, err := discovery.New(bio, log, discovery.WithProgress(progress)).Scan()
		if err != nil {
			return err
		}

		for _, d := range res.Disks {
			if scanVerbose {
				fmt.Print(discovery.Describe(d))
				continue
			}
			fmt.Println(discovery.Summary(d))
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %v\n", w)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVarP(&scanVerbose, "verbose", "v", false, "list partitions of every disk")
	rootCmd.AddCommand(scanCmd)
}
