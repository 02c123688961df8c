package propagate

import (
	"fmt"
	"math"

	"github.com/akhenakh/sgp4"
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/timegrid"
)

// minRadiusKm is the geocentric radius below which a state is treated as
// decayed. go-satellite hides its internal error code, so decay is inferred.
const minRadiusKm = 6200.0

// SatelliteEngine propagates with github.com/joshuaferrara/go-satellite.
// It has no batch entry point; the Batch strategy falls back to per-epoch
// calls for its handles.
type SatelliteEngine struct {
	Gravity satellite.Gravity
}

// NewSatelliteEngine uses WGS-72 constants, which TLEs are fitted against.
func NewSatelliteEngine() SatelliteEngine {
	return SatelliteEngine{Gravity: satellite.GravityWGS72}
}

func (SatelliteEngine) Name() string { return "go-satellite" }

// New checks the element lines with the akhenakh parser before handing
// them to go-satellite, which calls log.Fatal on any unparseable field.
func (e SatelliteEngine) New(rec catalog.Record) (Handle, error) {
	if _, err := sgp4.ParseTLE(rec.Line1 + "\n" + rec.Line2); err != nil {
		return nil, err
	}
	sat := satellite.TLEToSat(rec.Line1, rec.Line2, e.Gravity)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed: code=%d %s", sat.Error, sat.ErrorStr)
	}
	return &satelliteHandle{sat: sat}, nil
}

type satelliteHandle struct {
	sat satellite.Satellite
}

func (h *satelliteHandle) Propagate(jdWhole, jdFrac float64) (int, [3]float64, [3]float64) {
	var zero [3]float64

	t := timegrid.TimeFromJulian(jdWhole, jdFrac)
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	p, v := satellite.Propagate(h.sat, year, int(month), day, hour, minute, sec)
	pos := [3]float64{p.X, p.Y, p.Z}
	vel := [3]float64{v.X, v.Y, v.Z}
	if !finite3(pos) || !finite3(vel) {
		return CodeOther, zero, zero
	}
	if math.Sqrt(pos[0]*pos[0]+pos[1]*pos[1]+pos[2]*pos[2]) < minRadiusKm {
		return CodeDecayed, zero, zero
	}

	gmst := satellite.GSTimeFromDate(year, int(month), day, hour, minute, sec)
	r, rv := temeToECEF(pos, vel, gmst)
	return CodeOK, r, rv
}
