package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
	"github.com/openpiv/openpiv-go/internal/domain/image"
	"github.com/openpiv/openpiv-go/internal/domain/pixel"
)

// PNMLoader reads and writes binary portable anymaps: P5 (greyscale)
// and P6 (RGB). Samples are big-endian, one byte when maxval fits in
// 8 bits and two otherwise. On write everything is emitted at 16-bit
// depth; floating-point greyscale is rescaled to the full range from
// the image's min/max.
type PNMLoader struct{}

// NewPNMLoader constructs the PNM loader.
func NewPNMLoader() *PNMLoader { return &PNMLoader{} }

// Name returns the PNM MIME identity.
func (*PNMLoader) Name() string { return "image/x-portable-anymap" }

// Priority sorts PNM ahead of the heavier sniffers.
func (*PNMLoader) Priority() int { return 1 }

// CanLoad accepts P5/P6 magics.
func (*PNMLoader) CanLoad(peek []byte) bool {
	return len(peek) >= 2 && peek[0] == 'P' && (peek[1] == '5' || peek[1] == '6')
}

// CanSave reports that PNM supports writing.
func (*PNMLoader) CanSave() bool { return true }

// pnmDecoder holds the parsed header and the sample data.
type pnmDecoder struct {
	kind   byte // 5 or 6
	size   geom.Size
	maxval int
	data   []byte
}

// Open parses the PNM header and captures the sample data.
func (*PNMLoader) Open(r io.Reader) (Decoder, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, 2)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("pnm: magic: %w", ErrTruncated)
	}
	if magic[0] != 'P' || (magic[1] != '5' && magic[1] != '6') {
		return nil, fmt.Errorf("%w: pnm magic %q", ErrUnsupported, magic)
	}

	width, err := pnmToken(br)
	if err != nil {
		return nil, err
	}
	height, err := pnmToken(br)
	if err != nil {
		return nil, err
	}
	maxval, err := pnmToken(br)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 || maxval <= 0 || maxval > math.MaxUint16 {
		return nil, fmt.Errorf("%w: pnm header %dx%d maxval %d", ErrUnsupported, width, height, maxval)
	}

	samples := width * height
	if magic[1] == '6' {
		samples *= 3
	}
	if maxval > 255 {
		samples *= 2
	}
	data := make([]byte, samples)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("pnm: pixel data: %w", ErrTruncated)
	}

	return &pnmDecoder{
		kind:   magic[1],
		size:   geom.Sz(width, height),
		maxval: maxval,
		data:   data,
	}, nil
}

// pnmToken reads the next ASCII integer, skipping whitespace and
// comment lines. The single delimiter after the token is consumed,
// which also handles the one whitespace byte after maxval.
func pnmToken(br *bufio.Reader) (int, error) {
	// skip whitespace and comments
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("pnm: header: %w", ErrTruncated)
		}
		if b == '#' {
			if _, err := br.ReadString('\n'); err != nil {
				return 0, fmt.Errorf("pnm: comment: %w", ErrTruncated)
			}
			continue
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: pnm header byte %q", ErrUnsupported, b)
		}
		v := int(b - '0')
		for {
			b, err := br.ReadByte()
			if err != nil {
				return 0, fmt.Errorf("pnm: header: %w", ErrTruncated)
			}
			if b >= '0' && b <= '9' {
				v = v*10 + int(b-'0')
				continue
			}
			// the delimiter is consumed
			return v, nil
		}
	}
}

// NumImages returns 1: a PNM file holds a single image.
func (*pnmDecoder) NumImages() int { return 1 }

func (d *pnmDecoder) checkIndex(index int) error {
	if index != 0 {
		return fmt.Errorf("%w: pnm image %d", ErrBadIndex, index)
	}
	return nil
}

// sample returns the i-th sample widened to uint16.
func (d *pnmDecoder) sample(i int) uint16 {
	if d.maxval > 255 {
		return binary.BigEndian.Uint16(d.data[2*i:])
	}
	return uint16(d.data[i])
}

// ExtractG16 decodes to 16-bit greyscale. Colour files convert through
// the integer luminance fast path.
func (d *pnmDecoder) ExtractG16(index int) (*image.G16Image, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	if d.kind == '6' {
		rgba, err := d.ExtractRGBA16(index)
		if err != nil {
			return nil, err
		}
		return image.G16FromRGBA16(rgba), nil
	}
	im := image.New[uint16](d.size)
	buf := im.Data()
	for i := range buf {
		buf[i] = d.sample(i)
	}
	return im, nil
}

// ExtractGF decodes to floating-point greyscale.
func (d *pnmDecoder) ExtractGF(index int) (*image.GFImage, error) {
	if d.kind == '6' {
		rgba, err := d.ExtractRGBA16(index)
		if err != nil {
			return nil, err
		}
		return image.GFFromRGBA16(rgba), nil
	}
	g16, err := d.ExtractG16(index)
	if err != nil {
		return nil, err
	}
	return image.GFFromG16(g16), nil
}

// ExtractRGBA16 decodes to 16-bit colour. Greyscale files broadcast to
// all channels; the alpha channel is opaque.
func (d *pnmDecoder) ExtractRGBA16(index int) (*image.RGBA16Image, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	if d.kind == '5' {
		g16, err := d.ExtractG16(index)
		if err != nil {
			return nil, err
		}
		return image.RGBA16FromG16(g16), nil
	}
	im := image.New[pixel.RGBA16](d.size)
	buf := im.Data()
	for i := range buf {
		buf[i] = pixel.RGBA16{
			R: d.sample(3 * i),
			G: d.sample(3*i + 1),
			B: d.sample(3*i + 2),
			A: math.MaxUint16,
		}
	}
	return im, nil
}

func pnmHeader(w io.Writer, magic string, s geom.Size) error {
	_, err := fmt.Fprintf(w, "%s\n# created by openpiv codec\n%d %d\n65535\n", magic, s.W, s.H)
	if err != nil {
		return fmt.Errorf("pnm: write header: %w", err)
	}
	return nil
}

// SaveG16 writes a P5 file with 16-bit big-endian samples.
func (*PNMLoader) SaveG16(w io.Writer, im image.ImageLike[uint16]) error {
	if err := pnmHeader(w, "P5", im.Size()); err != nil {
		return err
	}
	buf := make([]byte, 2*im.Width())
	for y := 0; y < im.Height(); y++ {
		row := im.Line(y)
		for x, v := range row {
			binary.BigEndian.PutUint16(buf[2*x:], v)
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("pnm: write samples: %w", err)
		}
	}
	return nil
}

// SaveGF writes a P5 file, linearly rescaling the image's [min, max]
// onto [0, 65535]. A flat image writes all zero samples.
func (*PNMLoader) SaveGF(w io.Writer, im image.ImageLike[float64]) error {
	lo, hi := image.ImageRange[float64](im)
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	if err := pnmHeader(w, "P5", im.Size()); err != nil {
		return err
	}
	buf := make([]byte, 2*im.Width())
	for y := 0; y < im.Height(); y++ {
		row := im.Line(y)
		for x, v := range row {
			binary.BigEndian.PutUint16(buf[2*x:], uint16(math.MaxUint16*(v-lo)/rng))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("pnm: write samples: %w", err)
		}
	}
	return nil
}

// SaveRGBA16 writes a P6 file with 16-bit big-endian samples; the
// alpha channel is dropped.
func (*PNMLoader) SaveRGBA16(w io.Writer, im image.ImageLike[pixel.RGBA16]) error {
	if err := pnmHeader(w, "P6", im.Size()); err != nil {
		return err
	}
	buf := make([]byte, 6*im.Width())
	for y := 0; y < im.Height(); y++ {
		row := im.Line(y)
		for x, p := range row {
			binary.BigEndian.PutUint16(buf[6*x:], p.R)
			binary.BigEndian.PutUint16(buf[6*x+2:], p.G)
			binary.BigEndian.PutUint16(buf[6*x+4:], p.B)
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("pnm: write samples: %w", err)
		}
	}
	return nil
}
