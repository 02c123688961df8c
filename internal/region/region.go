// Package region defines the latitude/longitude rectangle used to select
// ground points, and the filter that applies it.
package region

import (
	"fmt"
	"math"

	"github.com/large-farva/footprint/internal/geodetic"
	"github.com/large-farva/footprint/internal/numeric"
)

// Corner is one user-supplied rectangle corner in degrees.
type Corner struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Rect is an inclusive latitude/longitude box in degrees.
type Rect struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// InvalidRectangleError is returned for corners or bounds that do not
// describe a usable rectangle.
type InvalidRectangleError struct {
	Reason string
}

func (e *InvalidRectangleError) Error() string {
	return "invalid rectangle: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &InvalidRectangleError{Reason: fmt.Sprintf(format, args...)}
}

// FromCorners builds a rectangle from four corners that must form an
// axis-aligned box: two distinct latitudes, two distinct longitudes, and
// every pairing of them present. Degenerate boxes (one latitude or one
// longitude) are accepted.
func FromCorners(c [4]Corner) (Rect, error) {
	for i, p := range c {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
			return Rect{}, invalid("corner %d is not a number", i+1)
		}
	}

	lats := distinct(c[0].Lat, c[1].Lat, c[2].Lat, c[3].Lat)
	lons := distinct(c[0].Lon, c[1].Lon, c[2].Lon, c[3].Lon)
	if len(lats) > 2 {
		return Rect{}, invalid("corners use %d distinct latitudes, want at most 2", len(lats))
	}
	if len(lons) > 2 {
		return Rect{}, invalid("corners use %d distinct longitudes, want at most 2", len(lons))
	}

	for _, lat := range lats {
		for _, lon := range lons {
			if !hasCorner(c, lat, lon) {
				return Rect{}, invalid("corner (%g, %g) missing, corners are not axis-aligned", lat, lon)
			}
		}
	}

	r := Envelope(c)
	return r, r.Validate()
}

// Envelope returns the smallest rectangle enclosing the corners, whatever
// their arrangement. Callers that accept skewed input use this instead of
// FromCorners.
func Envelope(c [4]Corner) Rect {
	r := Rect{MinLat: c[0].Lat, MaxLat: c[0].Lat, MinLon: c[0].Lon, MaxLon: c[0].Lon}
	for _, p := range c[1:] {
		r.MinLat = math.Min(r.MinLat, p.Lat)
		r.MaxLat = math.Max(r.MaxLat, p.Lat)
		r.MinLon = math.Min(r.MinLon, p.Lon)
		r.MaxLon = math.Max(r.MaxLon, p.Lon)
	}
	return r
}

// Validate checks ordering and range of the bounds.
func (r Rect) Validate() error {
	for _, v := range []float64{r.MinLat, r.MaxLat, r.MinLon, r.MaxLon} {
		if math.IsNaN(v) {
			return invalid("bounds contain NaN")
		}
	}
	if r.MinLat > r.MaxLat {
		return invalid("min latitude %g exceeds max latitude %g", r.MinLat, r.MaxLat)
	}
	if r.MinLon > r.MaxLon {
		return invalid("min longitude %g exceeds max longitude %g", r.MinLon, r.MaxLon)
	}
	if r.MinLat < -90 || r.MaxLat > 90 {
		return invalid("latitude range [%g, %g] outside [-90, 90]", r.MinLat, r.MaxLat)
	}
	if r.MinLon < -180 || r.MaxLon > 180 {
		return invalid("longitude range [%g, %g] outside [-180, 180]", r.MinLon, r.MaxLon)
	}
	return nil
}

// Contains reports whether (lat, lon) lies inside r, edges included.
func (r Rect) Contains(lat, lon float64) bool {
	return r.MinLat <= lat && lat <= r.MaxLat && r.MinLon <= lon && lon <= r.MaxLon
}

func (r Rect) bounds() numeric.Bounds {
	return numeric.Bounds{MinLat: r.MinLat, MaxLat: r.MaxLat, MinLon: r.MinLon, MaxLon: r.MaxLon}
}

// Mask reports membership for each point, index-aligned with pts.
func (r Rect) Mask(pts []geodetic.Point, be numeric.Backend) []bool {
	if be == nil {
		be = numeric.Serial{}
	}
	lat := make([]float64, len(pts))
	lon := make([]float64, len(pts))
	for i, p := range pts {
		lat[i], lon[i] = p.Lat, p.Lon
	}
	return be.InRange(lat, lon, r.bounds())
}

// Filter returns the indexes of the points inside r, in input order.
func (r Rect) Filter(pts []geodetic.Point, be numeric.Backend) []int {
	mask := r.Mask(pts, be)
	var idx []int
	for i, ok := range mask {
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}

func (r Rect) String() string {
	return fmt.Sprintf("lat [%g, %g] lon [%g, %g]", r.MinLat, r.MaxLat, r.MinLon, r.MaxLon)
}

func distinct(vals ...float64) []float64 {
	var out []float64
	for _, v := range vals {
		seen := false
		for _, o := range out {
			if o == v {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}

func hasCorner(c [4]Corner, lat, lon float64) bool {
	for _, p := range c {
		if p.Lat == lat && p.Lon == lon {
			return true
		}
	}
	return false
}
