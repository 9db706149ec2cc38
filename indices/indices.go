// Package indices computes normalized-difference spectral indices from
// reflectance values. Every ratio is guarded: a nil operand, a zero
// denominator or a non-finite quotient yields nil rather than NaN or Inf.
package indices

import "math"

// DefaultSAVIL is the soil-brightness correction used by SAVI.
const DefaultSAVIL = 0.5

// SafeDiv returns n/d, or nil when the quotient is undefined.
func SafeDiv(n, d *float64) *float64 {
	if n == nil || d == nil || *d == 0 {
		return nil
	}
	q := *n / *d
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return nil
	}
	return &q
}

// normalizedDifference is (a-b)/(a+b).
func normalizedDifference(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	n := *a - *b
	d := *a + *b
	return SafeDiv(&n, &d)
}

// NDVI is (NIR-RED)/(NIR+RED).
func NDVI(nir, red *float64) *float64 { return normalizedDifference(nir, red) }

// GNDVI is (NIR-GREEN)/(NIR+GREEN).
func GNDVI(nir, green *float64) *float64 { return normalizedDifference(nir, green) }

// NDWI is (GREEN-SWIR)/(GREEN+SWIR).
func NDWI(green, swir *float64) *float64 { return normalizedDifference(green, swir) }

// NDMI is (NIR-SWIR)/(NIR+SWIR).
func NDMI(nir, swir *float64) *float64 { return normalizedDifference(nir, swir) }

// SAVI uses DefaultSAVIL.
func SAVI(nir, red *float64) *float64 { return SAVIWithL(nir, red, DefaultSAVIL) }

// SAVIWithL is (1+L)(NIR-RED)/(NIR+RED+L).
func SAVIWithL(nir, red *float64, l float64) *float64 {
	if nir == nil || red == nil {
		return nil
	}
	n := (1 + l) * (*nir - *red)
	d := *nir + *red + l
	return SafeDiv(&n, &d)
}

// Float returns a pointer to v; handy when feeding literals.
func Float(v float64) *float64 { return &v }
