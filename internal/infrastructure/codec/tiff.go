package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
	"github.com/openpiv/openpiv-go/internal/domain/image"
	"github.com/openpiv/openpiv-go/internal/domain/pixel"
)

// TIFF tag and enum constants; only the baseline subset the loader
// understands.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSampleFormat    = 339

	compressionNone  = 1
	planarContig     = 1
	sampleFormatUint = 1

	typeByte  = 1
	typeShort = 3
	typeLong  = 4
)

// TIFFLoader reads baseline TIFF files: uncompressed strips, 8- or
// 16-bit unsigned samples, 1 (greyscale) or 3 (RGB) samples per pixel,
// contiguous planar layout, either byte order. Multi-directory files
// are addressable by index. The loader is read-only.
type TIFFLoader struct{}

// NewTIFFLoader constructs the TIFF loader.
func NewTIFFLoader() *TIFFLoader { return &TIFFLoader{} }

// Name returns the TIFF MIME identity.
func (*TIFFLoader) Name() string { return "image/tiff" }

// Priority sorts TIFF after PNM.
func (*TIFFLoader) Priority() int { return 2 }

// CanLoad accepts both little-endian (II*\0) and big-endian (MM\0*)
// headers.
func (*TIFFLoader) CanLoad(peek []byte) bool {
	if len(peek) < 4 {
		return false
	}
	return (peek[0] == 'I' && peek[1] == 'I' && peek[2] == 42 && peek[3] == 0) ||
		(peek[0] == 'M' && peek[1] == 'M' && peek[2] == 0 && peek[3] == 42)
}

// CanSave reports that the TIFF loader is read-only.
func (*TIFFLoader) CanSave() bool { return false }

// SaveG16 is unsupported: the loader is read-only.
func (*TIFFLoader) SaveG16(io.Writer, image.ImageLike[uint16]) error {
	return fmt.Errorf("%w: tiff save", ErrUnsupported)
}

// SaveGF is unsupported: the loader is read-only.
func (*TIFFLoader) SaveGF(io.Writer, image.ImageLike[float64]) error {
	return fmt.Errorf("%w: tiff save", ErrUnsupported)
}

// SaveRGBA16 is unsupported: the loader is read-only.
func (*TIFFLoader) SaveRGBA16(io.Writer, image.ImageLike[pixel.RGBA16]) error {
	return fmt.Errorf("%w: tiff save", ErrUnsupported)
}

// tiffDecoder holds the raw file and the offsets of each image file
// directory.
type tiffDecoder struct {
	data []byte
	bo   binary.ByteOrder
	ifds []uint32
}

// Open validates the header and walks the directory chain.
func (*TIFFLoader) Open(r io.Reader) (Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tiff: read: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("tiff: header: %w", ErrTruncated)
	}

	var bo binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		bo = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: tiff byte order %q", ErrUnsupported, data[:2])
	}
	if bo.Uint16(data[2:]) != 42 {
		return nil, fmt.Errorf("%w: tiff magic", ErrUnsupported)
	}

	d := &tiffDecoder{data: data, bo: bo}
	next := bo.Uint32(data[4:])
	for next != 0 {
		if int(next)+2 > len(data) {
			return nil, fmt.Errorf("tiff: directory at %d: %w", next, ErrTruncated)
		}
		d.ifds = append(d.ifds, next)
		count := int(bo.Uint16(data[next:]))
		end := int(next) + 2 + count*12
		if end+4 > len(data) {
			return nil, fmt.Errorf("tiff: directory at %d: %w", next, ErrTruncated)
		}
		next = bo.Uint32(data[end:])
	}
	if len(d.ifds) == 0 {
		return nil, fmt.Errorf("%w: tiff has no directories", ErrUnsupported)
	}
	return d, nil
}

// NumImages returns the number of directories in the file.
func (d *tiffDecoder) NumImages() int { return len(d.ifds) }

// ifdEntry is one parsed directory entry.
type ifdEntry struct {
	typ    uint16
	count  uint32
	raw    []byte // value or offset field, 4 bytes
	values []uint // decoded when integral
}

// directory parses the entries of directory index into a tag map.
func (d *tiffDecoder) directory(index int) (map[uint16]ifdEntry, error) {
	if index < 0 || index >= len(d.ifds) {
		return nil, fmt.Errorf("%w: tiff directory %d of %d", ErrBadIndex, index, len(d.ifds))
	}
	off := int(d.ifds[index])
	count := int(d.bo.Uint16(d.data[off:]))
	entries := make(map[uint16]ifdEntry, count)
	for i := 0; i < count; i++ {
		base := off + 2 + i*12
		tag := d.bo.Uint16(d.data[base:])
		e := ifdEntry{
			typ:   d.bo.Uint16(d.data[base+2:]),
			count: d.bo.Uint32(d.data[base+4:]),
			raw:   d.data[base+8 : base+12],
		}
		values, err := d.entryValues(e)
		if err != nil {
			return nil, err
		}
		e.values = values
		entries[tag] = e
	}
	return entries, nil
}

// entryValues decodes an integral entry's values, following the offset
// indirection when they do not fit in the value field.
func (d *tiffDecoder) entryValues(e ifdEntry) ([]uint, error) {
	var width int
	switch e.typ {
	case typeByte:
		width = 1
	case typeShort:
		width = 2
	case typeLong:
		width = 4
	default:
		// non-integral types carry no geometry the loader needs
		return nil, nil
	}

	total := int(e.count) * width
	src := e.raw
	if total > 4 {
		off := int(d.bo.Uint32(e.raw))
		if off+total > len(d.data) {
			return nil, fmt.Errorf("tiff: entry values: %w", ErrTruncated)
		}
		src = d.data[off : off+total]
	}

	values := make([]uint, e.count)
	for i := range values {
		switch e.typ {
		case typeByte:
			values[i] = uint(src[i])
		case typeShort:
			values[i] = uint(d.bo.Uint16(src[i*2:]))
		case typeLong:
			values[i] = uint(d.bo.Uint32(src[i*4:]))
		}
	}
	return values, nil
}

func firstValue(entries map[uint16]ifdEntry, tag uint16, fallback uint) uint {
	if e, ok := entries[tag]; ok && len(e.values) > 0 {
		return e.values[0]
	}
	return fallback
}

// frame is the decoded geometry of one directory.
type frame struct {
	size geom.Size
	bps  uint
	spp  uint
	// per-strip source extents
	offsets []uint
	counts  []uint
	rowsPer uint
}

// frameInfo validates a directory against the support matrix.
func (d *tiffDecoder) frameInfo(index int) (*frame, error) {
	entries, err := d.directory(index)
	if err != nil {
		return nil, err
	}

	width := firstValue(entries, tagImageWidth, 0)
	height := firstValue(entries, tagImageLength, 0)
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: tiff image has no dimensions", ErrUnsupported)
	}
	w, err := geom.IntFromUint32(uint32(width))
	if err != nil {
		return nil, err
	}
	h, err := geom.IntFromUint32(uint32(height))
	if err != nil {
		return nil, err
	}

	if c := firstValue(entries, tagCompression, compressionNone); c != compressionNone {
		return nil, fmt.Errorf("%w: tiff compression %d", ErrUnsupported, c)
	}
	if p := firstValue(entries, tagPlanarConfig, planarContig); p != planarContig {
		return nil, fmt.Errorf("%w: tiff planar config %d", ErrUnsupported, p)
	}
	if f := firstValue(entries, tagSampleFormat, sampleFormatUint); f != sampleFormatUint {
		return nil, fmt.Errorf("%w: tiff sample format %d", ErrUnsupported, f)
	}

	spp := firstValue(entries, tagSamplesPerPixel, 1)
	if spp != 1 && spp != 3 {
		return nil, fmt.Errorf("%w: tiff samples per pixel %d", ErrUnsupported, spp)
	}
	bps := firstValue(entries, tagBitsPerSample, 1)
	if bps != 8 && bps != 16 {
		return nil, fmt.Errorf("%w: tiff bits per sample %d", ErrUnsupported, bps)
	}

	offsets, ok := entries[tagStripOffsets]
	if !ok || len(offsets.values) == 0 {
		return nil, fmt.Errorf("%w: tiff has no strip offsets", ErrUnsupported)
	}
	counts, ok := entries[tagStripByteCounts]
	if !ok || len(counts.values) != len(offsets.values) {
		return nil, fmt.Errorf("%w: tiff strip byte counts", ErrUnsupported)
	}
	rowsPer := firstValue(entries, tagRowsPerStrip, uint(h))

	return &frame{
		size:    geom.Sz(w, h),
		bps:     bps,
		spp:     spp,
		offsets: offsets.values,
		counts:  counts.values,
		rowsPer: rowsPer,
	}, nil
}

// samples decodes the strip data of a frame into a flat uint16 sample
// slice, row-major, channel-interleaved.
func (d *tiffDecoder) samples(f *frame) ([]uint16, error) {
	perRow := f.size.W * int(f.spp)
	out := make([]uint16, perRow*f.size.H)
	byteWidth := int(f.bps) / 8

	row := 0
	for s, off := range f.offsets {
		end := int(off) + int(f.counts[s])
		if end > len(d.data) {
			return nil, fmt.Errorf("tiff: strip %d: %w", s, ErrTruncated)
		}
		strip := d.data[off:end]
		rows := int(f.rowsPer)
		if remain := f.size.H - row; rows > remain {
			rows = remain
		}
		need := rows * perRow * byteWidth
		if len(strip) < need {
			return nil, fmt.Errorf("tiff: strip %d: %w", s, ErrTruncated)
		}
		for r := 0; r < rows; r++ {
			dst := out[(row+r)*perRow : (row+r+1)*perRow]
			src := strip[r*perRow*byteWidth:]
			if byteWidth == 1 {
				for i := range dst {
					dst[i] = uint16(src[i])
				}
			} else {
				for i := range dst {
					dst[i] = d.bo.Uint16(src[2*i:])
				}
			}
		}
		row += rows
	}
	if row != f.size.H {
		return nil, fmt.Errorf("tiff: strips cover %d of %d rows: %w", row, f.size.H, ErrTruncated)
	}
	return out, nil
}

// ExtractG16 decodes directory index as 16-bit greyscale. RGB frames
// convert through the integer luminance fast path.
func (d *tiffDecoder) ExtractG16(index int) (*image.G16Image, error) {
	f, err := d.frameInfo(index)
	if err != nil {
		return nil, err
	}
	if f.spp == 3 {
		rgba, err := d.ExtractRGBA16(index)
		if err != nil {
			return nil, err
		}
		return image.G16FromRGBA16(rgba), nil
	}
	samples, err := d.samples(f)
	if err != nil {
		return nil, err
	}
	im := image.New[uint16](f.size)
	copy(im.Data(), samples)
	return im, nil
}

// ExtractGF decodes directory index as floating-point greyscale.
func (d *tiffDecoder) ExtractGF(index int) (*image.GFImage, error) {
	g16, err := d.ExtractG16(index)
	if err != nil {
		return nil, err
	}
	return image.GFFromG16(g16), nil
}

// ExtractRGBA16 decodes directory index as 16-bit colour with opaque
// alpha. Greyscale frames broadcast to all channels.
func (d *tiffDecoder) ExtractRGBA16(index int) (*image.RGBA16Image, error) {
	f, err := d.frameInfo(index)
	if err != nil {
		return nil, err
	}
	if f.spp == 1 {
		g16, err := d.ExtractG16(index)
		if err != nil {
			return nil, err
		}
		return image.RGBA16FromG16(g16), nil
	}
	samples, err := d.samples(f)
	if err != nil {
		return nil, err
	}
	im := image.New[pixel.RGBA16](f.size)
	buf := im.Data()
	for i := range buf {
		buf[i] = pixel.RGBA16{
			R: samples[3*i],
			G: samples[3*i+1],
			B: samples[3*i+2],
			A: math.MaxUint16,
		}
	}
	return im, nil
}
