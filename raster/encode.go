package raster

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	vals  []uint32
	extra int // offset of out-of-line values, set during layout
}

func (e *ifdEntry) size() int {
	if e.typ == dtShort {
		return 2 * len(e.vals)
	}
	return 4 * len(e.vals)
}

// Encode writes r as an uncompressed little-endian FLOAT32 TIFF with one
// strip and interleaved samples. It is the inverse of Decode for that layout.
func Encode(w io.Writer, r *Raster) error {
	spp := len(r.Bands)
	if r.Width <= 0 || r.Height <= 0 || spp == 0 {
		return fmt.Errorf("raster: nothing to encode")
	}
	for b, band := range r.Bands {
		if len(band) != r.Pixels() {
			return fmt.Errorf("raster: band %d has %d values, want %d", b, len(band), r.Pixels())
		}
	}

	repeat := func(v uint32) []uint32 {
		out := make([]uint32, spp)
		for i := range out {
			out[i] = v
		}
		return out
	}
	pixelBytes := r.Pixels() * spp * 4
	entries := []*ifdEntry{
		{tag: tagImageWidth, typ: dtLong, vals: []uint32{uint32(r.Width)}},
		{tag: tagImageLength, typ: dtLong, vals: []uint32{uint32(r.Height)}},
		{tag: tagBitsPerSample, typ: dtShort, vals: repeat(32)},
		{tag: tagCompression, typ: dtShort, vals: []uint32{compressionNone}},
		{tag: tagPhotometric, typ: dtShort, vals: []uint32{1}},
		{tag: tagStripOffsets, typ: dtLong, vals: []uint32{0}},
		{tag: tagSamplesPerPixel, typ: dtShort, vals: []uint32{uint32(spp)}},
		{tag: tagRowsPerStrip, typ: dtLong, vals: []uint32{uint32(r.Height)}},
		{tag: tagStripByteCounts, typ: dtLong, vals: []uint32{uint32(pixelBytes)}},
		{tag: tagPlanarConfig, typ: dtShort, vals: []uint32{planarChunky}},
		{tag: tagSampleFormat, typ: dtShort, vals: repeat(sampleFormatIEEEFloat)},
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Layout: header, IFD, out-of-line tag values, pixel data.
	off := 8 + 2 + 12*len(entries) + 4
	for _, e := range entries {
		if e.size() > 4 {
			e.extra = off
			off += e.size()
		}
	}
	for _, e := range entries {
		if e.tag == tagStripOffsets {
			e.vals[0] = uint32(off)
		}
	}

	bo := binary.LittleEndian
	buf := make([]byte, 0, off+pixelBytes)
	buf = append(buf, 'I', 'I')
	buf = bo.AppendUint16(buf, 42)
	buf = bo.AppendUint32(buf, 8)
	buf = bo.AppendUint16(buf, uint16(len(entries)))
	for _, e := range entries {
		buf = bo.AppendUint16(buf, e.tag)
		buf = bo.AppendUint16(buf, e.typ)
		buf = bo.AppendUint32(buf, uint32(len(e.vals)))
		if e.size() > 4 {
			buf = bo.AppendUint32(buf, uint32(e.extra))
			continue
		}
		var inline [4]byte
		for i, v := range e.vals {
			if e.typ == dtShort {
				bo.PutUint16(inline[2*i:], uint16(v))
			} else {
				bo.PutUint32(inline[:], v)
			}
		}
		buf = append(buf, inline[:]...)
	}
	buf = bo.AppendUint32(buf, 0)
	for _, e := range entries {
		if e.size() <= 4 {
			continue
		}
		for _, v := range e.vals {
			if e.typ == dtShort {
				buf = bo.AppendUint16(buf, uint16(v))
			} else {
				buf = bo.AppendUint32(buf, v)
			}
		}
	}
	for i := 0; i < r.Pixels(); i++ {
		for b := 0; b < spp; b++ {
			buf = bo.AppendUint32(buf, math.Float32bits(r.Bands[b][i]))
		}
	}

	_, err := w.Write(buf)
	return err
}
