// Package propagate runs an orbital propagation engine for every catalog
// record across every epoch of a time grid. Engine failures for a single
// epoch become invalid samples; a record the engine cannot load is skipped
// and reported, never fatal to the run.
package propagate

import (
	"fmt"
	"strings"

	"github.com/large-farva/footprint/internal/catalog"
)

// Propagator error codes, following the SGP4 convention. Zero means the
// sample is valid.
const (
	CodeOK           = 0
	CodeEccentricity = 1
	CodeSemiLatus    = 4
	CodeDecayed      = 6
	CodeOther        = 99
)

// Engine turns catalog records into propagation handles.
type Engine interface {
	Name() string
	New(rec catalog.Record) (Handle, error)
}

// Handle propagates one satellite to a split Julian date. Positions are ECEF
// in km and velocities ECEF in km/s; both are meaningless when code != 0.
type Handle interface {
	Propagate(jdWhole, jdFrac float64) (code int, pos, vel [3]float64)
}

// BatchHandle is implemented by handles that can propagate a whole column
// of dates in one call. Output slices are index-aligned with the inputs.
type BatchHandle interface {
	Handle
	PropagateBatch(jdWhole, jdFrac []float64) (codes []int, pos, vel [][3]float64)
}

// EngineByName resolves a configured engine name.
func EngineByName(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sgp4":
		return SGP4Engine{}, nil
	case "go-satellite", "satellite":
		return NewSatelliteEngine(), nil
	}
	return nil, fmt.Errorf("unknown propagation engine %q", name)
}

// ConstructionError is returned when an engine cannot build a handle from a
// record, typically because its elements are malformed.
type ConstructionError struct {
	NoradID int
	Name    string
	Err     error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("cannot construct propagator for %s (NORAD %d): %v", e.Name, e.NoradID, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Sample is one satellite state at one grid epoch.
type Sample struct {
	Epoch    int        `json:"epoch"`
	Elapsed  float64    `json:"elapsed_s"`
	Position [3]float64 `json:"position_km"`
	Velocity [3]float64 `json:"velocity_kms"`
	Code     int        `json:"code"`
	Valid    bool       `json:"valid"`
}

// Track is the full sample sequence for one record, time-ascending.
type Track struct {
	Record  catalog.Record
	Samples []Sample
}

// Skipped describes a record that was dropped before propagation.
type Skipped struct {
	NoradID int    `json:"norad_id"`
	Name    string `json:"name"`
	Reason  string `json:"reason"`
}

// Result is the output of an orchestrator run. Tracks keep catalog order.
type Result struct {
	Tracks  []Track
	Skipped []Skipped
}

// SampleCounts returns the number of valid and invalid samples.
func (r *Result) SampleCounts() (valid, invalid int) {
	for _, tr := range r.Tracks {
		for _, s := range tr.Samples {
			if s.Valid {
				valid++
			} else {
				invalid++
			}
		}
	}
	return valid, invalid
}
