// Command piv computes displacement vector fields from pairs of
// particle images.
//
// Input files are taken pairwise in argument order (files 1+2, 3+4,
// ...); each pair produces one tab-separated vector file in the output
// directory. Interrupting the process stops the batch cooperatively.
//
// Usage:
//
//	piv [flags] frame_a.pgm frame_b.pgm [frame_c.tif frame_d.tif ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/openpiv/openpiv-go/internal/application/batch"
	"github.com/openpiv/openpiv-go/internal/infrastructure/codec"
	"github.com/openpiv/openpiv-go/internal/infrastructure/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("piv", flag.ContinueOnError)
	size := fs.Int("size", batch.DefaultWindowSize, "interrogation window size (power of two)")
	overlap := fs.Float64("overlap", batch.DefaultOverlap, "interrogation window overlap in [0,1)")
	threads := fs.Int("thread-count", defaultThreads(), "correlator worker count")
	ordered := fs.Bool("ordered", false, "write results in pair order")
	output := fs.String("output", ".", "output directory for vector files")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	inputs := fs.Args()
	if len(inputs) < 2 {
		fmt.Fprintln(os.Stderr, "piv: need at least two input images")
		return 1
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// the core logger starts before any loader registration so early
	// codec diagnostics have somewhere to go
	core := logging.New()
	defer core.Close()
	core.AddSink(logging.ZerologSink(zl))
	codec.RegisterDefaults()

	pairs := makePairs(inputs, core)

	cfg := batch.DefaultConfig()
	cfg.Size = *size
	cfg.Overlap = *overlap
	cfg.Workers = *threads
	cfg.Ordered = *ordered
	cfg.OutputDir = *output
	cfg.Logger = zl
	cfg.Metrics = batch.NewMetrics(nil)

	b, err := batch.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piv: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := b.Run(ctx, pairs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piv: %v\n", err)
		return 1
	}
	if summary.Pairs == 0 {
		fmt.Fprintln(os.Stderr, "piv: no pairs processed")
		return 1
	}

	fmt.Printf("run %s: %d pairs, %d vectors, %d skipped\n",
		summary.RunID, summary.Pairs, summary.Vectors, summary.Skipped)
	return 0
}

// makePairs groups the inputs two by two; a trailing unpaired file is
// skipped with a warning.
func makePairs(inputs []string, core *logging.Logger) []batch.Pair {
	var pairs []batch.Pair
	for i := 0; i+1 < len(inputs); i += 2 {
		a, b := inputs[i], inputs[i+1]
		pairs = append(pairs, batch.Pair{
			Index:  i / 2,
			FrameA: a,
			FrameB: b,
			Stem:   fmt.Sprintf("%s_%04d", stem(a), i/2),
		})
	}
	if len(inputs)%2 != 0 {
		core.Warn("unpaired trailing input %s skipped", inputs[len(inputs)-1])
	}
	return pairs
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func defaultThreads() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}
