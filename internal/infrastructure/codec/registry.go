// Package codec provides image loading and saving for the correlation
// core: a content-sniffing loader registry, the PNM (PGM/PPM) and TIFF
// loaders, and the tab-separated vector-field writer.
//
// Loaders are looked up either by sniffing the first bytes of a stream
// or by exact MIME-style name. A loader's Open parses the container
// header and returns a Decoder that can extract individual images by
// directory index (TIFF files may hold several; PNM always one).
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/openpiv/openpiv-go/internal/domain/image"
	"github.com/openpiv/openpiv-go/internal/domain/pixel"
)

// Codec errors.
var (
	// ErrNoLoader indicates no registered loader accepts the data or
	// name.
	ErrNoLoader = errors.New("codec: no matching loader")

	// ErrUnsupported indicates a format feature outside the loader's
	// support matrix.
	ErrUnsupported = errors.New("codec: unsupported format feature")

	// ErrTruncated indicates the stream ended inside a header or
	// pixel data.
	ErrTruncated = errors.New("codec: truncated stream")

	// ErrBadIndex indicates an image index outside the container.
	ErrBadIndex = errors.New("codec: image index out of range")
)

// IsUnsupported reports whether err stems from an unsupported format
// feature.
func IsUnsupported(err error) bool { return errors.Is(err, ErrUnsupported) }

// SniffLen is the number of leading bytes a registry lookup needs.
const SniffLen = 8

// Decoder extracts images from an opened container. A decoder is bound
// to the stream contents captured at Open and is not safe for
// concurrent use.
type Decoder interface {
	// NumImages returns how many images the container holds.
	NumImages() int
	// ExtractG16 decodes image index as 16-bit greyscale.
	ExtractG16(index int) (*image.G16Image, error)
	// ExtractGF decodes image index as floating-point greyscale.
	ExtractGF(index int) (*image.GFImage, error)
	// ExtractRGBA16 decodes image index as 16-bit colour.
	ExtractRGBA16(index int) (*image.RGBA16Image, error)
}

// Loader identifies one container format.
type Loader interface {
	// Name returns the loader's MIME-style identity.
	Name() string
	// Priority orders sniffing; lower values are consulted first.
	Priority() int
	// CanLoad inspects the first SniffLen bytes without consuming
	// them.
	CanLoad(peek []byte) bool
	// CanSave reports whether the loader implements the save methods.
	CanSave() bool
	// Open reads the container header and returns a decoder over the
	// stream contents.
	Open(r io.Reader) (Decoder, error)

	SaveG16(w io.Writer, im image.ImageLike[uint16]) error
	SaveGF(w io.Writer, im image.ImageLike[float64]) error
	SaveRGBA16(w io.Writer, im image.ImageLike[pixel.RGBA16]) error
}

// Registry holds loaders sorted by priority and dispatches on content
// or name. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	loaders []Loader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds a loader, keeping the priority order stable.
func (r *Registry) Register(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders = append(r.loaders, l)
	sort.SliceStable(r.loaders, func(i, j int) bool {
		return r.loaders[i].Priority() < r.loaders[j].Priority()
	})
}

// Find returns the first loader, in priority order, whose sniff accepts
// the given leading bytes.
func (r *Registry) Find(peek []byte) (Loader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.loaders {
		if l.CanLoad(peek) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: unrecognised content", ErrNoLoader)
}

// FindByName returns the loader with the exact MIME-style name.
func (r *Registry) FindByName(name string) (Loader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.loaders {
		if l.Name() == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoLoader, name)
}

// Default is the process-wide registry. Populate it with
// RegisterDefaults at program start; nothing registers implicitly.
var Default = NewRegistry()

var registerOnce sync.Once

// RegisterDefaults registers the built-in PNM and TIFF loaders with the
// Default registry. Idempotent.
func RegisterDefaults() {
	registerOnce.Do(func() {
		Default.Register(NewPNMLoader())
		Default.Register(NewTIFFLoader())
	})
}

// OpenReader sniffs r against the registry and opens it with the
// matching loader. The reader's full contents are consumed.
func (r *Registry) OpenReader(rd io.Reader) (Loader, Decoder, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, nil, fmt.Errorf("codec: read stream: %w", err)
	}
	peek := data
	if len(peek) > SniffLen {
		peek = peek[:SniffLen]
	}
	l, err := r.Find(peek)
	if err != nil {
		return nil, nil, err
	}
	dec, err := l.Open(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return l, dec, nil
}
