package satellite

import (
	"math"

	"fieldfusion/indices"
	"fieldfusion/models"
	"fieldfusion/raster"
)

// Scene classification classes counted as cloud: shadow, medium and high
// probability cloud, thin cirrus. Class 0 is no-data.
var cloudClasses = map[int]bool{3: true, 8: true, 9: true, 10: true}

type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v *float64) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return
	}
	m.sum += *v
	m.n++
}

func (m *meanAcc) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Reduce averages per-pixel indices over the raster. A single-band raster is
// read as precomputed NDVI. ok is false when no pixel yields a finite NDVI.
func Reduce(img *raster.Raster) (snap models.IndicesSnapshot, ok bool) {
	if img == nil || img.Pixels() == 0 {
		return snap, false
	}

	if len(img.Bands) == 1 {
		var ndvi meanAcc
		for i := 0; i < img.Pixels(); i++ {
			ndvi.add(finite(img.At(0, i)))
		}
		snap.NDVI = ndvi.value()
		snap.Status = models.IndicesMeasured
		return snap, snap.NDVI != nil
	}
	if len(img.Bands) < bandCount-1 {
		return snap, false
	}

	var ndvi, gndvi, ndwi, ndmi, savi meanAcc
	var sceneValid, sceneCloudy int
	for i := 0; i < img.Pixels(); i++ {
		green := finite(img.At(bandGreen, i))
		red := finite(img.At(bandRed, i))
		nir := finite(img.At(bandNIR, i))
		swir := finite(img.At(bandSWIR, i))

		ndvi.add(indices.NDVI(nir, red))
		gndvi.add(indices.GNDVI(nir, green))
		ndwi.add(indices.NDWI(green, swir))
		ndmi.add(indices.NDMI(nir, swir))
		savi.add(indices.SAVI(nir, red))

		if scl := img.At(bandSCL, i); !math.IsNaN(scl) && scl != 0 {
			sceneValid++
			if cloudClasses[int(scl)] {
				sceneCloudy++
			}
		}
	}

	snap = models.IndicesSnapshot{
		NDVI:   ndvi.value(),
		GNDVI:  gndvi.value(),
		NDWI:   ndwi.value(),
		NDMI:   ndmi.value(),
		SAVI:   savi.value(),
		Status: models.IndicesMeasured,
	}
	if sceneValid > 0 {
		pct := 100 * float64(sceneCloudy) / float64(sceneValid)
		snap.CloudPercent = &pct
	}
	return snap, snap.NDVI != nil
}
