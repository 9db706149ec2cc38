// Package fusion merges satellite indices, weather and the optional image
// signal into the flat feature record read by the risk classifiers.
package fusion

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"fieldfusion/models"
)

// DefaultImageLimit caps uploaded photos.
const DefaultImageLimit = 10 << 20

var ErrImageTooLarge = errors.New("image exceeds upload limit")

// ImageSignal is what we currently extract from a user photo: its size and
// sniffed content type. No pixel features yet.
type ImageSignal struct {
	Bytes       int
	ContentType string
}

// ReadImage drains r, refusing more than limit bytes. A nil reader yields a
// nil signal.
func ReadImage(r io.Reader, limit int64) (*ImageSignal, error) {
	if r == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultImageLimit
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read image: %w", err)
	}
	rest, err := io.Copy(io.Discard, io.LimitReader(r, limit-int64(n)+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	total := int64(n) + rest
	if total > limit {
		return nil, ErrImageTooLarge
	}
	sig := &ImageSignal{Bytes: int(total)}
	if n > 0 {
		sig.ContentType = http.DetectContentType(head[:n])
	}
	return sig, nil
}

// FeatureVector holds named scalar features. Nil means absent, never zero.
type FeatureVector struct {
	NDVI       *float64
	GNDVI      *float64
	NDWI       *float64
	NDMI       *float64
	SAVI       *float64
	T2MC       *float64
	RH2MPct    *float64
	RainMM     *float64
	ImageBytes *int
}

// Build is total: any absent upstream field stays absent.
func Build(idx models.IndicesSnapshot, wx models.WeatherSummary, img *ImageSignal) FeatureVector {
	fv := FeatureVector{
		NDVI:    idx.NDVI,
		GNDVI:   idx.GNDVI,
		NDWI:    idx.NDWI,
		NDMI:    idx.NDMI,
		SAVI:    idx.SAVI,
		T2MC:    wx.T2MC,
		RH2MPct: wx.RH2MPct,
		RainMM:  wx.RainMM,
	}
	if img != nil {
		b := img.Bytes
		fv.ImageBytes = &b
	}
	return fv
}
