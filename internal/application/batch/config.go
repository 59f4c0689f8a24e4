// Package batch runs the parallel PIV pipeline: N correlator workers
// pull image pairs from a shared queue, compute one displacement
// record per interrogation window, and publish per-pair results over a
// bounded channel to a single writer.
//
// Failed loads and saves are logged and the pair is skipped; an error
// inside a worker's correlator terminates the whole batch. Cancellation
// is cooperative through the run context or Stop.
package batch

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/openpiv/openpiv-go/internal/infrastructure/codec"
)

const (
	// DefaultWindowSize is the interrogation window edge in pixels.
	DefaultWindowSize = 32

	// DefaultOverlap is the fractional window overlap.
	DefaultOverlap = 0.5

	// maxChannelCap bounds the writer channel regardless of worker
	// count.
	maxChannelCap = 10
)

// Config holds the batch parameters.
type Config struct {
	// Size is the interrogation window edge; must be a power of two.
	Size int `validate:"required,gt=0,pow2"`

	// Overlap is the fractional overlap between windows, in [0, 1).
	Overlap float64 `validate:"gte=0,lt=1"`

	// Workers is the correlator count. Default: NumCPU-1.
	Workers int `validate:"gte=1"`

	// ChannelCap bounds the writer channel. Zero derives
	// min(Workers, 10).
	ChannelCap int `validate:"gte=0"`

	// Ordered makes the writer release results in ascending pair
	// order instead of publication order.
	Ordered bool

	// OutputDir receives one vector file per pair.
	OutputDir string `validate:"required"`

	// Logger receives structured batch diagnostics.
	Logger zerolog.Logger

	// Registry resolves image loaders; nil uses codec.Default.
	Registry *codec.Registry

	// Metrics instruments the run; nil disables instrumentation.
	Metrics *Metrics
}

// DefaultConfig returns a config with the standard window, overlap and
// worker count.
func DefaultConfig() Config {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return Config{
		Size:      DefaultWindowSize,
		Overlap:   DefaultOverlap,
		Workers:   workers,
		OutputDir: ".",
	}
}

// validate is the package validator with the pow2 rule registered.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// pow2 accepts positive powers of two
	_ = v.RegisterValidation("pow2", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n > 0 && n&(n-1) == 0
	})
	return v
}

// Validate checks the declarative field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("batch: invalid config: %w", err)
	}
	return nil
}

// withDefaults fills derived fields.
func (c Config) withDefaults() Config {
	if c.Workers == 0 {
		c.Workers = DefaultConfig().Workers
	}
	if c.ChannelCap == 0 {
		c.ChannelCap = c.Workers
		if c.ChannelCap > maxChannelCap {
			c.ChannelCap = maxChannelCap
		}
	}
	if c.Registry == nil {
		c.Registry = codec.Default
	}
	return c
}
