// Package raster decodes the small multi-band FLOAT32 TIFF rasters returned by
// the satellite processing API. Only IEEE floating point samples are handled;
// anything else is reported as ErrUnsupported so callers can degrade.
package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/image/tiff/lzw"
)

var (
	// ErrUnsupported marks a well-formed TIFF this decoder cannot read.
	ErrUnsupported = errors.New("raster: unsupported tiff layout")
	// ErrMalformed marks input that is not a readable TIFF.
	ErrMalformed = errors.New("raster: malformed tiff")
)

// Raster holds band-major pixel values: Bands[b][y*Width+x].
type Raster struct {
	Width  int
	Height int
	Bands  [][]float32
}

// Pixels returns Width*Height.
func (r *Raster) Pixels() int { return r.Width * r.Height }

// At returns the value of band b at pixel index i, or NaN when out of range.
func (r *Raster) At(b, i int) float64 {
	if b < 0 || b >= len(r.Bands) || i < 0 || i >= len(r.Bands[b]) {
		return math.NaN()
	}
	return float64(r.Bands[b][i])
}

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
)

const (
	dtByte  = 1
	dtShort = 3
	dtLong  = 4

	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionDeflateOld = 32946
	sampleFormatIEEEFloat = 3
	planarChunky          = 1
	planarSeparate        = 2
	predictorNone         = 1
)

// Bounds applied to header fields before any pixel buffer is allocated.
const (
	MaxPixels  = 4096 * 4096
	MaxSamples = 16
)

type decoder struct {
	data []byte
	bo   binary.ByteOrder
	tags map[uint16][]uint
}

// Decode parses a TIFF holding 32-bit float samples.
func Decode(data []byte) (*Raster, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: short header", ErrMalformed)
	}
	d := &decoder{data: data, tags: make(map[uint16][]uint)}
	switch string(data[0:2]) {
	case "II":
		d.bo = binary.LittleEndian
	case "MM":
		d.bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad byte order mark", ErrMalformed)
	}
	switch d.bo.Uint16(data[2:4]) {
	case 42:
	case 43:
		return nil, fmt.Errorf("%w: bigtiff", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	if err := d.readIFD(int(d.bo.Uint32(data[4:8]))); err != nil {
		return nil, err
	}
	return d.decode()
}

func (d *decoder) readIFD(off int) error {
	if off < 8 || off+2 > len(d.data) {
		return fmt.Errorf("%w: ifd offset %d", ErrMalformed, off)
	}
	n := int(d.bo.Uint16(d.data[off : off+2]))
	end := off + 2 + 12*n
	if end > len(d.data) {
		return fmt.Errorf("%w: truncated ifd", ErrMalformed)
	}
	for i := 0; i < n; i++ {
		e := d.data[off+2+12*i : off+2+12*(i+1)]
		tag := d.bo.Uint16(e[0:2])
		typ := d.bo.Uint16(e[2:4])
		count := int(d.bo.Uint32(e[4:8]))

		var size int
		switch typ {
		case dtByte:
			size = 1
		case dtShort:
			size = 2
		case dtLong:
			size = 4
		default:
			// Only integer tags drive decoding; the rest (ascii, rationals,
			// geotiff doubles) is skipped.
			continue
		}
		if count < 0 || count > len(d.data) {
			return fmt.Errorf("%w: tag %d count %d", ErrMalformed, tag, count)
		}
		raw := e[8:12]
		if count*size > 4 {
			p := int(d.bo.Uint32(e[8:12]))
			if p < 0 || p+count*size > len(d.data) {
				return fmt.Errorf("%w: tag %d out of bounds", ErrMalformed, tag)
			}
			raw = d.data[p : p+count*size]
		}
		vals := make([]uint, count)
		for j := 0; j < count; j++ {
			switch size {
			case 1:
				vals[j] = uint(raw[j])
			case 2:
				vals[j] = uint(d.bo.Uint16(raw[2*j : 2*j+2]))
			case 4:
				vals[j] = uint(d.bo.Uint32(raw[4*j : 4*j+4]))
			}
		}
		d.tags[tag] = vals
	}
	return nil
}

func (d *decoder) first(tag uint16, def uint) uint {
	if v, ok := d.tags[tag]; ok && len(v) > 0 {
		return v[0]
	}
	return def
}

func (d *decoder) decode() (*Raster, error) {
	width := int(d.first(tagImageWidth, 0))
	height := int(d.first(tagImageLength, 0))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: missing dimensions", ErrMalformed)
	}
	spp := int(d.first(tagSamplesPerPixel, 1))
	if spp <= 0 {
		return nil, fmt.Errorf("%w: samples per pixel %d", ErrMalformed, spp)
	}
	if int64(width)*int64(height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupported, width, height, MaxPixels)
	}
	if spp > MaxSamples {
		return nil, fmt.Errorf("%w: %d samples per pixel", ErrUnsupported, spp)
	}

	bps := d.tags[tagBitsPerSample]
	if len(bps) == 0 {
		return nil, fmt.Errorf("%w: bits per sample not set", ErrUnsupported)
	}
	for _, b := range bps {
		if b != 32 {
			return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupported, b)
		}
	}
	formats := d.tags[tagSampleFormat]
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: integer samples", ErrUnsupported)
	}
	for _, f := range formats {
		if f != sampleFormatIEEEFloat {
			return nil, fmt.Errorf("%w: sample format %d", ErrUnsupported, f)
		}
	}
	if p := d.first(tagPredictor, predictorNone); p != predictorNone {
		return nil, fmt.Errorf("%w: predictor %d", ErrUnsupported, p)
	}
	compression := d.first(tagCompression, compressionNone)
	planar := int(d.first(tagPlanarConfig, planarChunky))
	if planar != planarChunky && planar != planarSeparate {
		return nil, fmt.Errorf("%w: planar configuration %d", ErrUnsupported, planar)
	}

	var (
		chunkW, chunkH int
		offsets        []uint
		counts         []uint
		tiled          bool
	)
	if _, ok := d.tags[tagTileWidth]; ok {
		tiled = true
		chunkW = int(d.first(tagTileWidth, 0))
		chunkH = int(d.first(tagTileLength, 0))
		offsets, counts = d.tags[tagTileOffsets], d.tags[tagTileByteCounts]
	} else {
		chunkW = width
		chunkH = int(d.first(tagRowsPerStrip, uint(height)))
		if chunkH > height {
			chunkH = height
		}
		offsets, counts = d.tags[tagStripOffsets], d.tags[tagStripByteCounts]
	}
	if chunkW <= 0 || chunkH <= 0 || int64(chunkW)*int64(chunkH) > MaxPixels {
		return nil, fmt.Errorf("%w: chunk size %dx%d", ErrMalformed, chunkW, chunkH)
	}

	across := (width + chunkW - 1) / chunkW
	down := (height + chunkH - 1) / chunkH
	perPlane := across * down
	samplesInChunk := spp
	planes := 1
	if planar == planarSeparate {
		samplesInChunk = 1
		planes = spp
	}
	if len(offsets) < perPlane*planes || len(counts) < len(offsets) {
		return nil, fmt.Errorf("%w: expected %d chunks, found %d", ErrMalformed, perPlane*planes, len(offsets))
	}
	if compression == compressionNone {
		var total int64
		for _, n := range counts[:perPlane*planes] {
			total += int64(n)
		}
		if want := int64(width) * int64(height) * int64(spp) * 4; total < want {
			return nil, fmt.Errorf("%w: %d sample bytes, need %d", ErrMalformed, total, want)
		}
	}

	out := &Raster{Width: width, Height: height, Bands: make([][]float32, spp)}
	for b := range out.Bands {
		out.Bands[b] = make([]float32, width*height)
	}

	for plane := 0; plane < planes; plane++ {
		for i := 0; i < perPlane; i++ {
			idx := plane*perPlane + i
			x0 := (i % across) * chunkW
			y0 := (i / across) * chunkH
			rows := chunkH
			if !tiled && y0+rows > height {
				rows = height - y0
			}

			need := chunkW * rows * samplesInChunk * 4
			buf, err := d.chunk(int(offsets[idx]), int(counts[idx]), compression, need)
			if err != nil {
				return nil, err
			}
			if len(buf) < need {
				return nil, fmt.Errorf("%w: chunk %d has %d bytes, need %d", ErrMalformed, idx, len(buf), need)
			}

			for r := 0; r < rows; r++ {
				py := y0 + r
				if py >= height {
					break
				}
				for c := 0; c < chunkW; c++ {
					px := x0 + c
					if px >= width {
						break
					}
					dst := py*width + px
					base := (r*chunkW + c) * samplesInChunk * 4
					if planar == planarSeparate {
						out.Bands[plane][dst] = math.Float32frombits(d.bo.Uint32(buf[base : base+4]))
						continue
					}
					for s := 0; s < spp; s++ {
						o := base + 4*s
						out.Bands[s][dst] = math.Float32frombits(d.bo.Uint32(buf[o : o+4]))
					}
				}
			}
		}
	}
	return out, nil
}

// chunk returns at most limit decoded bytes of the chunk at off.
func (d *decoder) chunk(off, n int, compression uint, limit int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(d.data) {
		return nil, fmt.Errorf("%w: chunk at %d+%d out of bounds", ErrMalformed, off, n)
	}
	raw := d.data[off : off+n]

	var rc io.ReadCloser
	switch compression {
	case compressionNone:
		return raw, nil
	case compressionLZW:
		rc = lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
	case compressionDeflate, compressionDeflateOld:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: deflate: %v", ErrMalformed, err)
		}
		rc = zr
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, compression)
	}
	defer rc.Close()

	buf, err := io.ReadAll(io.LimitReader(rc, int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrMalformed, err)
	}
	return buf, nil
}
