package propagate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/akhenakh/sgp4"
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/timegrid"
)

// Real ISS elements; the grid below sits one day after their epoch.
const (
	issLine1 = "1 25544U 98067A   25146.54650260  .00010397  00000+0  19155-3 0  9999"
	issLine2 = "2 25544  51.6382  54.2937 0002241 147.4648 271.6158 15.49752720511807"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func issRecord() catalog.Record {
	return catalog.Record{Name: "ISS", NoradID: 25544, Line1: issLine1, Line2: issLine2}
}

func testGrid(t *testing.T, interval int) *timegrid.Grid {
	t.Helper()
	g, err := timegrid.New(time.Date(2025, 5, 27, 0, 0, 0, 0, time.UTC), interval)
	if err != nil {
		t.Fatalf("timegrid.New: %v", err)
	}
	return g
}

// fakeEngine hands out handles whose behaviour is keyed by catalog number.
type fakeEngine struct {
	codeFor func(id int, epoch float64) int
	fail    map[int]bool
}

func (fakeEngine) Name() string { return "fake" }

func (f fakeEngine) New(rec catalog.Record) (Handle, error) {
	if f.fail[rec.NoradID] {
		return nil, errors.New("bad elements")
	}
	return fakeHandle{id: rec.NoradID, codeFor: f.codeFor}, nil
}

type fakeHandle struct {
	id      int
	codeFor func(id int, frac float64) int
}

func (h fakeHandle) Propagate(_, frac float64) (int, [3]float64, [3]float64) {
	code := 0
	if h.codeFor != nil {
		code = h.codeFor(h.id, frac)
	}
	return code, [3]float64{float64(h.id), frac, 0}, [3]float64{0, 7.5, 0}
}

func TestPropagateSingleISS(t *testing.T) {
	h, err := SGP4Engine{}.New(issRecord())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g := testGrid(t, 60)
	for _, e := range g.Epochs {
		code, pos, vel := h.Propagate(e.JDWhole, e.JDFrac)
		if code != CodeOK {
			t.Fatalf("epoch %d: code %d", e.Index, code)
		}
		r := math.Sqrt(pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2])
		if r < 6600 || r > 6900 {
			t.Errorf("epoch %d: |r| = %.1f km, expected ISS orbit", e.Index, r)
		}
		speed := math.Sqrt(vel[0]*vel[0] + vel[1]*vel[1] + vel[2]*vel[2])
		if speed < 6.5 || speed > 8.0 {
			t.Errorf("epoch %d: |v| = %.3f km/s, expected ~7.2 km/s in ECEF", e.Index, speed)
		}
	}
}

func TestBatchMatchesPerEpoch(t *testing.T) {
	g := testGrid(t, 10)
	records := []catalog.Record{issRecord()}

	perEpoch, err := New(Options{Strategy: PerEpoch, Logger: testLogger()}).Run(context.Background(), records, g)
	if err != nil {
		t.Fatal(err)
	}
	batch, err := New(Options{Strategy: Batch, Logger: testLogger()}).Run(context.Background(), records, g)
	if err != nil {
		t.Fatal(err)
	}

	a, b := perEpoch.Tracks[0].Samples, batch.Tracks[0].Samples
	if len(a) != len(b) {
		t.Fatalf("sample counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Valid != b[i].Valid {
			t.Fatalf("sample %d: valid flags differ", i)
		}
		for k := 0; k < 3; k++ {
			if math.Abs(a[i].Position[k]-b[i].Position[k]) > 1e-6 || math.Abs(a[i].Velocity[k]-b[i].Velocity[k]) > 1e-9 {
				t.Fatalf("sample %d: states differ: %v/%v vs %v/%v", i, a[i].Position, a[i].Velocity, b[i].Position, b[i].Velocity)
			}
		}
	}
}

func TestEnginesAgree(t *testing.T) {
	g := testGrid(t, 120)
	a, err := SGP4Engine{}.New(issRecord())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSatelliteEngine().New(issRecord())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range g.Epochs {
		ca, pa, _ := a.Propagate(e.JDWhole, e.JDFrac)
		cb, pb, _ := b.Propagate(e.JDWhole, e.JDFrac)
		if ca != CodeOK || cb != CodeOK {
			t.Fatalf("epoch %d: codes %d/%d", e.Index, ca, cb)
		}
		d := math.Sqrt((pa[0]-pb[0])*(pa[0]-pb[0]) + (pa[1]-pb[1])*(pa[1]-pb[1]) + (pa[2]-pb[2])*(pa[2]-pb[2]))
		if d > 50 {
			t.Errorf("epoch %d: engines disagree by %.1f km", e.Index, d)
		}
	}
}

func TestGMSTMatchesReference(t *testing.T) {
	for _, ts := range []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 27, 13, 45, 0, 0, time.UTC),
		time.Date(2026, 6, 15, 23, 59, 0, 0, time.UTC),
	} {
		y, m, d := ts.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		whole := timegrid.JulianDate(midnight)
		frac := ts.Sub(midnight).Hours() / 24

		got := gmstFromJulian(whole, frac)
		want := satellite.GSTimeFromDate(y, int(m), d, ts.Hour(), ts.Minute(), ts.Second())
		if diff := math.Abs(math.Remainder(got-want, 2*math.Pi)); diff > 1e-6 {
			t.Errorf("%v: gmst %.9f, reference %.9f", ts, got, want)
		}
	}
}

func TestTEMEToECEFPreservesMagnitude(t *testing.T) {
	pos := [3]float64{4000, -3000, 4500}
	vel := [3]float64{1.2, 6.8, -2.1}
	r, _ := temeToECEF(pos, vel, 1.234)
	want := math.Sqrt(pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2])
	got := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("|r| changed: %.12f -> %.12f", want, got)
	}
	if r[2] != pos[2] {
		t.Errorf("z changed: %v -> %v", pos[2], r[2])
	}
}

func TestRunSkipsUnconstructibleRecords(t *testing.T) {
	records := []catalog.Record{
		{Name: "A", NoradID: 1},
		{Name: "BAD", NoradID: 2},
		{Name: "C", NoradID: 3},
	}
	o := New(Options{Engine: fakeEngine{fail: map[int]bool{2: true}}, Logger: testLogger()})
	res, err := o.Run(context.Background(), records, testGrid(t, 60))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tracks) != 2 || res.Tracks[0].Record.NoradID != 1 || res.Tracks[1].Record.NoradID != 3 {
		t.Fatalf("unexpected tracks: %+v", res.Tracks)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].NoradID != 2 {
		t.Fatalf("unexpected skipped: %+v", res.Skipped)
	}
}

func TestRunMarksErrorCodesInvalid(t *testing.T) {
	// Satellite 2 fails on every epoch, satellite 1 on the second half of the day.
	eng := fakeEngine{codeFor: func(id int, frac float64) int {
		if id == 2 || frac >= 0.5 {
			return CodeDecayed
		}
		return CodeOK
	}}
	g := testGrid(t, 60)
	res, err := New(Options{Engine: eng, Logger: testLogger()}).Run(context.Background(),
		[]catalog.Record{{NoradID: 1}, {NoradID: 2}}, g)
	if err != nil {
		t.Fatal(err)
	}
	valid, invalid := res.SampleCounts()
	if valid != 12 || invalid != 36 {
		t.Errorf("valid/invalid = %d/%d, want 12/36", valid, invalid)
	}
	for _, s := range res.Tracks[1].Samples {
		if s.Valid || s.Code != CodeDecayed {
			t.Fatalf("satellite 2 sample %d should be invalid, got %+v", s.Epoch, s)
		}
	}
}

func TestWorkerPoolPreservesOrder(t *testing.T) {
	records := make([]catalog.Record, 50)
	for i := range records {
		records[i] = catalog.Record{NoradID: i + 1}
	}
	g := testGrid(t, 120)

	seq, err := New(Options{Engine: fakeEngine{}, Logger: testLogger()}).Run(context.Background(), records, g)
	if err != nil {
		t.Fatal(err)
	}
	par, err := New(Options{Engine: fakeEngine{}, Workers: 4, Logger: testLogger()}).Run(context.Background(), records, g)
	if err != nil {
		t.Fatal(err)
	}
	if len(seq.Tracks) != len(par.Tracks) {
		t.Fatalf("track counts differ: %d vs %d", len(seq.Tracks), len(par.Tracks))
	}
	for i := range seq.Tracks {
		if seq.Tracks[i].Record.NoradID != par.Tracks[i].Record.NoradID {
			t.Fatalf("track %d: order differs (%d vs %d)", i, seq.Tracks[i].Record.NoradID, par.Tracks[i].Record.NoradID)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := []catalog.Record{{NoradID: 1}, {NoradID: 2}}
	for _, workers := range []int{1, 3} {
		_, err := New(Options{Engine: fakeEngine{}, Workers: workers, Logger: testLogger()}).Run(ctx, records, testGrid(t, 60))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
	}
}

func TestSGP4EngineRejectsBadElements(t *testing.T) {
	bad := issRecord()
	bad.Line1 = bad.Line1[:68] + "0" // checksum mismatch
	if _, err := (SGP4Engine{}).New(bad); err == nil {
		t.Fatal("expected error for corrupted checksum")
	}
	if _, err := NewSatelliteEngine().New(catalog.Record{Line1: "1 short", Line2: "2 short"}); err == nil {
		t.Fatal("expected error for short lines")
	}
}

func TestParseStrategyAndEngine(t *testing.T) {
	if s, err := ParseStrategy("batch"); err != nil || s != Batch {
		t.Errorf("ParseStrategy(batch) = %v, %v", s, err)
	}
	if _, err := ParseStrategy("gpu"); err == nil {
		t.Error("expected error for unknown strategy")
	}
	if e, err := EngineByName("go-satellite"); err != nil || e.Name() != "go-satellite" {
		t.Errorf("EngineByName(go-satellite) = %v, %v", e, err)
	}
	if _, err := EngineByName("orekit"); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestSatelliteEngineSkipsCorruptFields(t *testing.T) {
	corrupt := issRecord()
	corrupt.NoradID = 99999
	corrupt.Name = "CORRUPT"
	// Same width and checksum, but the eccentricity is not a number.
	corrupt.Line2 = strings.Replace(issLine2, "0002241", "00X2241", 1)

	o := New(Options{Engine: NewSatelliteEngine(), Logger: testLogger()})
	res, err := o.Run(context.Background(), []catalog.Record{issRecord(), corrupt}, testGrid(t, 60))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tracks) != 1 || res.Tracks[0].Record.NoradID != 25544 {
		t.Fatalf("unexpected tracks: %+v", res.Tracks)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].NoradID != 99999 {
		t.Fatalf("unexpected skipped: %+v", res.Skipped)
	}
	if !strings.Contains(res.Skipped[0].Reason, "eccentricity") {
		t.Errorf("skip reason %q does not name the bad field", res.Skipped[0].Reason)
	}
}

func TestSGP4CodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"typed decay", &sgp4.SatelliteDecayedError{Tsince: 10, Radius: 0.98}, CodeDecayed},
		{"typed semi-latus", &sgp4.SGP4ModelLimitsError{Reason: sgp4.ReasonSemiLatusRectumNegative}, CodeSemiLatus},
		{"typed eccentricity", &sgp4.SGP4ModelLimitsError{Reason: sgp4.ReasonEccentricityTooHigh}, CodeEccentricity},
		{"wrapped typed", fmt.Errorf("step: %w", &sgp4.SatelliteDecayedError{}), CodeDecayed},
		{"plain eccentricity", errors.New("SGP4 propagation error: eccentricity -0.002000 <= -0.001"), CodeEccentricity},
		{"plain beta2", errors.New("SGP4 propagation error: beta2 -0.100000 < 0"), CodeEccentricity},
		{"plain elsq", errors.New("SGP4 propagation error: elsq 1.200000 >= 1.0"), CodeEccentricity},
		{"plain pl", errors.New("SGP4 propagation error: pl -0.300000 < 0"), CodeSemiLatus},
		{"other", errors.New("something else"), CodeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sgp4Code(tt.err); got != tt.want {
				t.Errorf("sgp4Code(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
