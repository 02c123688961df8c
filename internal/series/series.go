// Package series flattens per-satellite propagation tracks into one
// combined time series holding only valid samples.
package series

import (
	"time"

	"github.com/large-farva/footprint/internal/numeric"
	"github.com/large-farva/footprint/internal/propagate"
	"github.com/large-farva/footprint/internal/timegrid"
)

// Point is a valid sample stamped with its satellite and absolute time.
type Point struct {
	NoradID  int        `json:"norad_id"`
	Name     string     `json:"name"`
	Time     time.Time  `json:"time"`
	Elapsed  float64    `json:"elapsed_s"`
	Position [3]float64 `json:"position_km"`
	Velocity [3]float64 `json:"velocity_kms"`
}

// Series is ordered satellite-major, then time-ascending.
type Series []Point

// Assemble drops every sample whose error code is non-zero and concatenates
// the survivors in track order. Samples are never reordered within a track.
func Assemble(tracks []propagate.Track, grid *timegrid.Grid, be numeric.Backend) Series {
	if be == nil {
		be = numeric.Serial{}
	}

	total := 0
	for _, tr := range tracks {
		total += len(tr.Samples)
	}

	codes := make([]int, 0, total)
	for _, tr := range tracks {
		for _, s := range tr.Samples {
			codes = append(codes, s.Code)
		}
	}
	mask := be.ValidMask(codes)

	out := make(Series, 0, countTrue(mask))
	k := 0
	for _, tr := range tracks {
		name := tr.Record.Label()
		for _, s := range tr.Samples {
			keep := mask[k]
			k++
			if !keep {
				continue
			}
			out = append(out, Point{
				NoradID:  tr.Record.NoradID,
				Name:     name,
				Time:     grid.At(s.Elapsed),
				Elapsed:  s.Elapsed,
				Position: s.Position,
				Velocity: s.Velocity,
			})
		}
	}
	return out
}

// Columns splits the positions into x, y and z columns.
func (s Series) Columns() (xs, ys, zs []float64) {
	xs = make([]float64, len(s))
	ys = make([]float64, len(s))
	zs = make([]float64, len(s))
	for i, p := range s {
		xs[i], ys[i], zs[i] = p.Position[0], p.Position[1], p.Position[2]
	}
	return xs, ys, zs
}

func countTrue(mask []bool) int {
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}
	return n
}
