// Package geodetic converts Earth-fixed Cartesian positions into WGS-84
// longitude, latitude and ellipsoidal height.
package geodetic

import (
	"errors"
	"fmt"
	"math"

	"github.com/large-farva/footprint/internal/numeric"
	"github.com/large-farva/footprint/internal/series"
)

// WGS-84 ellipsoid.
const (
	SemiMajorAxis = 6378137.0 // metres
	Flattening    = 1.0 / 298.257223563
	e2            = Flattening * (2 - Flattening)

	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// ErrNonFinite is returned for NaN or infinite coordinates.
var ErrNonFinite = errors.New("non-finite coordinate")

// Point is a geodetic position: degrees east, degrees north, metres above
// the ellipsoid.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	Alt float64 `json:"alt_m"`
}

// Transform maps ECEF metres to geodetic coordinates.
type Transform interface {
	ToGeodetic(x, y, z float64) (lon, lat, alt float64, err error)
}

// WGS84 is the fixed ECEF to geodetic datum transform.
type WGS84 struct{}

// ToGeodetic solves for latitude iteratively (Bowring's method); longitude
// is closed-form. Inputs are metres.
func (WGS84) ToGeodetic(x, y, z float64) (float64, float64, float64, error) {
	for _, v := range [3]float64{x, y, z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, ErrNonFinite
		}
	}

	lon := math.Atan2(y, x)
	p := math.Hypot(x, y)
	lat := math.Atan2(z, p*(1-e2))

	const maxIter = 10
	const tol = 1e-14
	for i := 0; i < maxIter; i++ {
		sinLat := math.Sin(lat)
		n := SemiMajorAxis / math.Sqrt(1-e2*sinLat*sinLat)
		next := math.Atan2(z+e2*n*sinLat, p)
		if math.Abs(next-lat) < tol {
			lat = next
			break
		}
		lat = next
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := SemiMajorAxis / math.Sqrt(1-e2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(z)/math.Abs(sinLat) - n*(1-e2)
	}

	return lon * rad2deg, lat * rad2deg, alt, nil
}

// ToECEF is the forward transform, degrees and metres in, metres out.
func (WGS84) ToECEF(lon, lat, alt float64) (x, y, z float64) {
	sinLat, cosLat := math.Sincos(lat * deg2rad)
	sinLon, cosLon := math.Sincos(lon * deg2rad)
	n := SemiMajorAxis / math.Sqrt(1-e2*sinLat*sinLat)

	x = (n + alt) * cosLat * cosLon
	y = (n + alt) * cosLat * sinLon
	z = (n*(1-e2) + alt) * sinLat
	return x, y, z
}

// TransformError reports a sample the transform rejected.
type TransformError struct {
	Index   int
	NoradID int
	X, Y, Z float64
	Err     error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("geodetic transform failed for sample %d (NORAD %d) at (%g, %g, %g): %v",
		e.Index, e.NoradID, e.X, e.Y, e.Z, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Converter runs a Transform over a whole series.
type Converter struct {
	Transform Transform
	Backend   numeric.Backend
	// Scale converts series units to metres. Propagators report km, so
	// the zero value means 1000.
	Scale float64
}

// Convert maps each series position to a geodetic point. Output index i
// corresponds to s[i]. Any rejected sample aborts the conversion.
func (c Converter) Convert(s series.Series) ([]Point, error) {
	tf := c.Transform
	if tf == nil {
		tf = WGS84{}
	}
	be := c.Backend
	if be == nil {
		be = numeric.Serial{}
	}
	scale := c.Scale
	if scale == 0 {
		scale = 1000
	}

	xs, ys, zs := s.Columns()
	fn := func(x, y, z float64) (float64, float64, float64, error) {
		return tf.ToGeodetic(x*scale, y*scale, z*scale)
	}

	lon, lat, alt, err := be.Transform(xs, ys, zs, fn)
	if err != nil {
		var ie *numeric.IndexError
		if errors.As(err, &ie) {
			return nil, &TransformError{
				Index:   ie.Index,
				NoradID: s[ie.Index].NoradID,
				X:       xs[ie.Index],
				Y:       ys[ie.Index],
				Z:       zs[ie.Index],
				Err:     ie.Err,
			}
		}
		return nil, &TransformError{Index: -1, Err: err}
	}

	out := make([]Point, len(s))
	for i := range out {
		out[i] = Point{Lon: lon[i], Lat: lat[i], Alt: alt[i]}
	}
	return out, nil
}
