package imagefile

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uilive"
)

type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}

// Stats summarises one compression run.
type Stats struct {
	Path    string
	Read    int64
	Written int64
	Elapsed time.Duration
}

// Ratio returns original size over compressed size, or 0 when nothing was
// written.
func (s Stats) Ratio() float64 {
	if s.Written == 0 {
		return 0
	}
	return float64(s.Read) / float64(s.Written)
}

// CompressOptions controls Compress.
type CompressOptions struct {
	Algorithm Algorithm
	// TotalSize is the expected source size, used for the time estimate.
	TotalSize int64
	// Progress receives live progress lines; nil disables them.
	Progress io.Writer
	// Interval between progress refreshes.
	Interval time.Duration
}

// Compress reads src to the end and writes it compressed to dst plus the
// extension of the algorithm.
func Compress(src io.Reader, dst string, opts CompressOptions) (Stats, error) {
	ext := opts.Algorithm.Extension()
	if ext == "" {
		return Stats{}, fmt.Errorf("unsupported compression algorithm: %s", opts.Algorithm)
	}
	if !strings.HasSuffix(dst, ext) {
		dst += ext
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	output, err := os.Create(dst)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		_ = output.Close()
	}()

	cw := &countingWriter{w: output}
	zw, err := NewWriter(opts.Algorithm, cw)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to create compression writer: %w", err)
	}

	var live *uilive.Writer
	if opts.Progress != nil {
		live = uilive.New()
		live.Out = opts.Progress
	}

	var (
		start      = time.Now()
		stats      = Stats{Path: dst}
		buf        = make([]byte, 16384)
		lastUpdate = start
	)
	report := func() {
		if live == nil {
			return
		}
		stats.Elapsed = time.Since(start)
		stats.Written = cw.count
		writeProgress(live, stats, opts.TotalSize)
		_ = live.Flush()
	}

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := zw.Write(buf[:n]); werr != nil {
				return stats, fmt.Errorf("failed to write compressed stream: %w", werr)
			}
			stats.Read += int64(n)
			if time.Since(lastUpdate) >= opts.Interval {
				report()
				lastUpdate = time.Now()
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return stats, fmt.Errorf("error reading source: %w", rerr)
		}
	}

	if err := zw.Close(); err != nil {
		return stats, fmt.Errorf("failed to finish compressed stream: %w", err)
	}
	report()

	stats.Written = cw.count
	stats.Elapsed = time.Since(start)
	return stats, nil
}

func writeProgress(w io.Writer, s Stats, total int64) {
	secs := s.Elapsed.Seconds()
	estimate := "N/A"
	var readBps, writeBps float64
	if secs > 0 {
		readBps = float64(s.Read) / secs
		writeBps = float64(s.Written) / secs
		if total > 0 && readBps > 0 {
			remaining := time.Duration(max(0, float64(total-s.Read)/readBps) * float64(time.Second))
			estimate = remaining.Truncate(time.Second).String()
		}
	}

	_, _ = fmt.Fprintf(w, "Byte Count: Read: %s (%d bytes), Written: %s (%d bytes)\n",
		humanize.IBytes(uint64(s.Read)), s.Read, humanize.IBytes(uint64(s.Written)), s.Written)
	_, _ = fmt.Fprintf(w, "Elapsed Time: %s\n", s.Elapsed.Truncate(time.Second))
	_, _ = fmt.Fprintf(w, "Estimated Time: %s\n", estimate)
	_, _ = fmt.Fprintf(w, "Read Speed: %s/s\n", humanize.IBytes(uint64(readBps)))
	_, _ = fmt.Fprintf(w, "Write Speed: %s/s\n", humanize.IBytes(uint64(writeBps)))
}
