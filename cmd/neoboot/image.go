package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"neoboot/internal/imagefile"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Disk image tools",
}

var compressAlgo string

var imageCompressCmd = &cobra.Command{
	Use:   "compress SRC DST",
	Short: "Write a compressed copy of a disk image or device",
	Long: `Compresses SRC into DST. The algorithm's extension is appended to DST when
missing, so the result can be passed straight to --disk.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		algo, err := imagefile.ParseAlgorithm(compressAlgo)
		if err != nil {
			return err
		}

		src, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() {
			_ = src.Close()
		}()

		var total int64
		if fi, err := src.Stat(); err == nil {
			total = fi.Size()
		}

		stats, err := imagefile.Compress(src, args[1], imagefile.CompressOptions{
			Algorithm: algo,
			TotalSize: total,
			Progress:  os.Stdout,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %s: %s -> %s (ratio %.2f) in %s\n", stats.Path,
			humanize.IBytes(uint64(stats.Read)), humanize.IBytes(uint64(stats.Written)),
			stats.Ratio(), stats.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	names := make([]string, 0, len(imagefile.Algorithms()))
	for _, a := range imagefile.Algorithms() {
		names = append(names, string(a))
	}
	imageCompressCmd.Flags().StringVarP(&compressAlgo, "algo", "a", string(imagefile.Gzip),
		"compression algorithm: "+strings.Join(names, ", "))

	imageCmd.AddCommand(imageCompressCmd)
	rootCmd.AddCommand(imageCmd)
}
