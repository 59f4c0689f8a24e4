package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openpiv/openpiv-go/internal/domain/fft"
	"github.com/openpiv/openpiv-go/internal/domain/geom"
	"github.com/openpiv/openpiv-go/internal/domain/grid"
	"github.com/openpiv/openpiv-go/internal/domain/image"
	"github.com/openpiv/openpiv-go/internal/infrastructure/codec"
)

// Batch errors.
var (
	// ErrFrameSizeMismatch indicates a pair whose two frames differ in
	// size.
	ErrFrameSizeMismatch = errors.New("batch: frame sizes differ")
)

// Record is one displacement vector in output convention.
type Record = codec.VectorRecord

// Pair names the two frames of one correlation job.
type Pair struct {
	// Index orders pairs for the ordered writer.
	Index int
	// FrameA and FrameB are the image paths at t and t+dt.
	FrameA string
	FrameB string
	// Stem names the output vector file.
	Stem string
}

// Result is the full record set of one pair, in grid-generation order.
type Result struct {
	PairIndex int
	Stem      string
	Records   []Record
}

// Summary reports a finished run.
type Summary struct {
	RunID   uuid.UUID
	Pairs   int
	Skipped int
	Vectors int
}

// Batch executes the pipeline for one configuration. A Batch may run
// once at a time; Stop cancels the active run.
type Batch struct {
	cfg Config

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New validates the configuration and constructs a batch.
func New(cfg Config) (*Batch, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Batch{cfg: cfg}, nil
}

// Stop cancels the active run. Workers and the writer observe the
// cancellation at their next loop top or blocking wait.
func (b *Batch) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
}

// Run processes the pairs and returns the run summary. A cancelled run
// (Stop or context) returns the partial summary with a nil error;
// correlator failures abort the batch and surface here.
func (b *Batch) Run(ctx context.Context, pairs []Pair) (Summary, error) {
	cfg := b.cfg
	runID := uuid.New()
	log := cfg.Logger.With().Str("run_id", runID.String()).Logger()

	runCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
	defer func() {
		cancel()
		b.mu.Lock()
		b.cancel = nil
		b.mu.Unlock()
	}()

	log.Info().
		Int("pairs", len(pairs)).
		Int("workers", cfg.Workers).
		Int("window", cfg.Size).
		Float64("overlap", cfg.Overlap).
		Msg("batch started")

	work := make(chan Pair)
	results := make(chan Result, cfg.ChannelCap)

	var done, skipped, vectors atomic.Int64

	g, gctx := errgroup.WithContext(runCtx)

	// feeder
	g.Go(func() error {
		defer close(work)
		for _, p := range pairs {
			select {
			case work <- p:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	// correlator workers, each owning one FFT engine
	var workers sync.WaitGroup
	ia := geom.Sz(cfg.Size, cfg.Size)
	for w := 0; w < cfg.Workers; w++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			engine, err := fft.New(ia)
			if err != nil {
				return err
			}
			for {
				select {
				case <-gctx.Done():
					return nil
				case p, ok := <-work:
					if !ok {
						return nil
					}
					if err := b.processPair(gctx, engine, p, results, log, &skipped, &vectors); err != nil {
						return err
					}
				}
			}
		})
	}

	// close the results channel once every producer is finished
	go func() {
		workers.Wait()
		close(results)
	}()

	// single writer
	g.Go(func() error {
		b.consume(pairs, results, log, &done, &skipped)
		return nil
	})

	err := g.Wait()

	summary := Summary{
		RunID:   runID,
		Pairs:   int(done.Load()),
		Skipped: int(skipped.Load()),
		Vectors: int(vectors.Load()),
	}

	switch {
	case err == nil:
		log.Info().
			Int("pairs", summary.Pairs).
			Int("skipped", summary.Skipped).
			Int("vectors", summary.Vectors).
			Msg("batch finished")
		return summary, nil
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("batch stopped")
		return summary, nil
	default:
		log.Error().Err(err).Msg("batch aborted")
		return summary, err
	}
}

// processPair loads, correlates and publishes one pair. Load failures
// are logged and skipped; correlator failures abort the batch.
func (b *Batch) processPair(
	ctx context.Context,
	engine *fft.Engine,
	p Pair,
	results chan<- Result,
	log zerolog.Logger,
	skipped, vectors *atomic.Int64,
) error {
	cfg := b.cfg
	cfg.Metrics.flight(1)
	defer cfg.Metrics.flight(-1)
	start := time.Now()

	frameA, err := b.loadFrame(p.FrameA)
	if err != nil {
		log.Error().Err(err).Str("file", p.FrameA).Int("pair", p.Index).Msg("load failed, skipping pair")
		cfg.Metrics.pairDone("load_error")
		skipped.Add(1)
		return nil
	}
	frameB, err := b.loadFrame(p.FrameB)
	if err != nil {
		log.Error().Err(err).Str("file", p.FrameB).Int("pair", p.Index).Msg("load failed, skipping pair")
		cfg.Metrics.pairDone("load_error")
		skipped.Add(1)
		return nil
	}
	if frameA.Size() != frameB.Size() {
		err := fmt.Errorf("%w: %v, %v", ErrFrameSizeMismatch, frameA.Size(), frameB.Size())
		log.Error().Err(err).Int("pair", p.Index).Msg("skipping pair")
		cfg.Metrics.pairDone("load_error")
		skipped.Add(1)
		return nil
	}

	windows, err := grid.Cartesian(frameA.Size(), engine.Size(), cfg.Overlap)
	if err != nil {
		return fmt.Errorf("pair %d: %w", p.Index, err)
	}

	records := make([]Record, 0, len(windows))
	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := correlateWindow(engine, frameA, frameB, window)
		if err != nil {
			return fmt.Errorf("pair %d window %v: %w", p.Index, window, err)
		}
		records = append(records, flipToOutput(rec, frameA.Height()))
	}

	cfg.Metrics.observePair(time.Since(start).Seconds())
	cfg.Metrics.pairDone("ok")
	cfg.Metrics.addVectors(len(records))
	vectors.Add(int64(len(records)))

	select {
	case results <- Result{PairIndex: p.Index, Stem: p.Stem, Records: records}:
	case <-ctx.Done():
		return nil
	}
	return nil
}

// correlateWindow computes the displacement record for one
// interrogation window, in image-native coordinates.
func correlateWindow(engine *fft.Engine, frameA, frameB *image.GFImage, window geom.Rect) (Record, error) {
	winA, err := image.Extract(frameA, window)
	if err != nil {
		return Record{}, err
	}
	winB, err := image.Extract(frameB, window)
	if err != nil {
		return Record{}, err
	}

	corr, err := engine.CrossCorrelate(winA, winB)
	if err != nil {
		return Record{}, err
	}

	mid := window.Midpoint()
	rec := Record{XY: geom.PointToF(mid)}

	peaks := image.FindPeaks(corr, 2, 1)
	if len(peaks) < 2 {
		// null record: no usable peak pair in this window
		return rec, nil
	}

	fitted, err := image.FitSimpleGaussian(peaks[0])
	if err != nil {
		return Record{}, err
	}
	centre := geom.Pt(float64(corr.Width()/2), float64(corr.Height()/2))
	rec.V = fitted.Sub(centre)
	rec.Peak = peaks[0].At(1, 1)
	rec.Valid = true
	if second := peaks[1].At(1, 1); second > 0 {
		rec.SNR = peaks[0].At(1, 1) / second
	}
	return rec, nil
}

// flipToOutput converts a record to the output convention: y origin at
// the image bottom, v sign-matched.
func flipToOutput(rec Record, imageHeight int) Record {
	rec.XY.Y = float64(imageHeight) - rec.XY.Y
	rec.V.Y = -rec.V.Y
	return rec
}

// loadFrame opens a file through the loader registry and extracts its
// first image as floating-point greyscale.
func (b *Batch) loadFrame(path string) (*image.GFImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	_, dec, err := b.cfg.Registry.OpenReader(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return dec.ExtractGF(0)
}

// consume drains results and writes one vector file per pair. In
// ordered mode, out-of-order results are buffered and released
// monotonically by pair index.
func (b *Batch) consume(
	pairs []Pair,
	results <-chan Result,
	log zerolog.Logger,
	done, skipped *atomic.Int64,
) {
	if !b.cfg.Ordered {
		for res := range results {
			b.writeResult(res, log, done, skipped)
		}
		return
	}

	order := make([]int, 0, len(pairs))
	for _, p := range pairs {
		order = append(order, p.Index)
	}
	sort.Ints(order)

	pending := make(map[int]Result)
	next := 0
	for res := range results {
		pending[res.PairIndex] = res
		for next < len(order) {
			r, ok := pending[order[next]]
			if !ok {
				break
			}
			delete(pending, order[next])
			next++
			b.writeResult(r, log, done, skipped)
		}
	}
	// skipped pairs leave holes: flush whatever arrived
	for _, idx := range order[next:] {
		if r, ok := pending[idx]; ok {
			b.writeResult(r, log, done, skipped)
		}
	}
}

// writeResult writes one vector file; failures are logged and counted,
// never fatal.
func (b *Batch) writeResult(res Result, log zerolog.Logger, done, skipped *atomic.Int64) {
	path := filepath.Join(b.cfg.OutputDir, res.Stem+".txt")
	f, err := os.Create(path)
	if err == nil {
		err = codec.WriteVectorField(f, res.Records)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		log.Error().Err(err).Str("file", path).Int("pair", res.PairIndex).Msg("save failed")
		b.cfg.Metrics.pairDone("save_error")
		skipped.Add(1)
		return
	}
	done.Add(1)
	log.Debug().Str("file", path).Int("vectors", len(res.Records)).Msg("pair written")
}
