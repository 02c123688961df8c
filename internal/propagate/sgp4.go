package propagate

import (
	"errors"
	"math"
	"strings"

	"github.com/akhenakh/sgp4"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/timegrid"
)

// SGP4Engine propagates with github.com/akhenakh/sgp4. The library reports
// TEME states; handles rotate them into ECEF.
type SGP4Engine struct{}

func (SGP4Engine) Name() string { return "sgp4" }

// New parses the record's element lines and runs the SGP4 initialisation
// once so that malformed elements fail here rather than per epoch.
func (SGP4Engine) New(rec catalog.Record) (Handle, error) {
	tle, err := sgp4.ParseTLE(rec.Line1 + "\n" + rec.Line2)
	if err != nil {
		return nil, err
	}
	if _, err := tle.Initialize(); err != nil {
		return nil, err
	}
	return &sgp4Handle{
		tle:     tle,
		epochJD: timegrid.JulianDate(tle.EpochTime()),
	}, nil
}

type sgp4Handle struct {
	tle     *sgp4.TLE
	epochJD float64
}

func (h *sgp4Handle) Propagate(jdWhole, jdFrac float64) (int, [3]float64, [3]float64) {
	var zero [3]float64

	tsince := ((jdWhole - h.epochJD) + jdFrac) * timegrid.MinutesPerDay
	eci, err := h.tle.FindPosition(tsince)
	if err != nil {
		return sgp4Code(err), zero, zero
	}

	pos := [3]float64{eci.Position.X, eci.Position.Y, eci.Position.Z}
	vel := [3]float64{eci.Velocity.X, eci.Velocity.Y, eci.Velocity.Z}
	if !finite3(pos) || !finite3(vel) {
		return CodeOther, zero, zero
	}
	if math.Sqrt(pos[0]*pos[0]+pos[1]*pos[1]+pos[2]*pos[2]) < minRadiusKm {
		return CodeDecayed, zero, zero
	}

	r, v := temeToECEF(pos, vel, gmstFromJulian(jdWhole, jdFrac))
	return CodeOK, r, v
}

func (h *sgp4Handle) PropagateBatch(jdWhole, jdFrac []float64) ([]int, [][3]float64, [][3]float64) {
	n := len(jdWhole)
	codes := make([]int, n)
	pos := make([][3]float64, n)
	vel := make([][3]float64, n)
	for i := range jdWhole {
		codes[i], pos[i], vel[i] = h.Propagate(jdWhole[i], jdFrac[i])
	}
	return codes, pos, vel
}

// sgp4Code maps library errors onto the SGP4 numeric error codes. The
// pinned release reports propagation failures as plain errors, so the
// message is matched when the typed errors are absent.
func sgp4Code(err error) int {
	var decayed *sgp4.SatelliteDecayedError
	if errors.As(err, &decayed) {
		return CodeDecayed
	}
	var limits *sgp4.SGP4ModelLimitsError
	if errors.As(err, &limits) {
		if limits.Reason == sgp4.ReasonSemiLatusRectumNegative {
			return CodeSemiLatus
		}
		return CodeEccentricity
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "decay"):
		return CodeDecayed
	case strings.Contains(msg, "pl ") && strings.Contains(msg, "< 0"):
		return CodeSemiLatus
	case strings.Contains(msg, "eccentricity"),
		strings.Contains(msg, "elsq"),
		strings.Contains(msg, "beta2"):
		return CodeEccentricity
	}
	return CodeOther
}
