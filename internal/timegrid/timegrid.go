// Package timegrid builds the uniform one-day sequence of epochs that every
// satellite is propagated across. Each epoch is expressed three ways: as an
// absolute UTC time, as seconds elapsed since the start of the day, and as a
// split Julian date for the propagation engines.
package timegrid

import (
	"fmt"
	"math"
	"time"
)

// MinutesPerDay is the fixed window length.
const MinutesPerDay = 1440

// DefaultInterval is the grid spacing used when none is configured.
const DefaultInterval = 1

// InvalidIntervalError is returned when the interval is not a positive
// divisor of one day.
type InvalidIntervalError struct {
	Minutes int
}

func (e *InvalidIntervalError) Error() string {
	if e.Minutes <= 0 {
		return fmt.Sprintf("invalid interval %d: must be > 0 minutes", e.Minutes)
	}
	return fmt.Sprintf("invalid interval %d: must evenly divide %d minutes", e.Minutes, MinutesPerDay)
}

// ValidateInterval checks that minutes is a positive divisor of one day.
func ValidateInterval(minutes int) error {
	if minutes <= 0 || MinutesPerDay%minutes != 0 {
		return &InvalidIntervalError{Minutes: minutes}
	}
	return nil
}

// Epoch is a single grid instant.
type Epoch struct {
	Index   int
	Time    time.Time
	Elapsed float64 // seconds since the grid start
	JDWhole float64 // Julian date of the grid start (midnight, so always x.5)
	JDFrac  float64 // fraction of a day since JDWhole
}

// Grid is an immutable, strictly increasing sequence of equally spaced epochs
// covering [Start, Start+24h).
type Grid struct {
	Start    time.Time
	Interval time.Duration
	Epochs   []Epoch
}

// New builds the grid for the calendar date of start. Only the UTC date of
// start is used; its time of day is discarded.
func New(start time.Time, intervalMinutes int) (*Grid, error) {
	if err := ValidateInterval(intervalMinutes); err != nil {
		return nil, err
	}

	y, m, d := start.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	jd0 := JulianDate(day)

	n := MinutesPerDay / intervalMinutes
	epochs := make([]Epoch, n)
	for i := range epochs {
		minutes := i * intervalMinutes
		epochs[i] = Epoch{
			Index:   i,
			Time:    day.Add(time.Duration(minutes) * time.Minute),
			Elapsed: float64(minutes * 60),
			JDWhole: jd0,
			JDFrac:  float64(minutes) / MinutesPerDay,
		}
	}

	return &Grid{
		Start:    day,
		Interval: time.Duration(intervalMinutes) * time.Minute,
		Epochs:   epochs,
	}, nil
}

// Len returns the number of epochs.
func (g *Grid) Len() int { return len(g.Epochs) }

// JulianDates returns the whole and fractional Julian date columns, shaped
// for batch propagation.
func (g *Grid) JulianDates() (whole, frac []float64) {
	whole = make([]float64, len(g.Epochs))
	frac = make([]float64, len(g.Epochs))
	for i, e := range g.Epochs {
		whole[i] = e.JDWhole
		frac[i] = e.JDFrac
	}
	return whole, frac
}

// At returns the absolute time of a sample elapsed seconds after the start.
func (g *Grid) At(elapsed float64) time.Time {
	return g.Start.Add(time.Duration(elapsed * float64(time.Second)))
}

// JulianDate converts a UTC time to a Julian date using the standard
// Gregorian calendar algorithm.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0
	return jd
}

// unixEpochJD is the Julian date of 1970-01-01T00:00:00Z.
const unixEpochJD = 2440587.5

// TimeFromJulian converts a split Julian date back to UTC, rounded to the
// nearest millisecond.
func TimeFromJulian(whole, frac float64) time.Time {
	days := (whole - unixEpochJD) + frac
	ms := math.Round(days * 86400e3)
	return time.UnixMilli(int64(ms)).UTC()
}
