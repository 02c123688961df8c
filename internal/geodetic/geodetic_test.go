package geodetic

import (
	"errors"
	"math"
	"testing"

	"github.com/large-farva/footprint/internal/numeric"
	"github.com/large-farva/footprint/internal/series"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestEquatorialPoint(t *testing.T) {
	lon, lat, alt, err := WGS84{}.ToGeodetic(7000e3, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !near(lon, 0, 1e-12) || !near(lat, 0, 1e-12) {
		t.Errorf("got lon=%v lat=%v, want 0,0", lon, lat)
	}
	if !near(alt, 7000e3-SemiMajorAxis, 1e-6) {
		t.Errorf("alt = %v, want %v", alt, 7000e3-SemiMajorAxis)
	}
}

func TestLongitudeQuadrants(t *testing.T) {
	cases := []struct {
		x, y, lon float64
	}{
		{0, 7000e3, 90},
		{-7000e3, 0, 180},
		{0, -7000e3, -90},
	}
	for _, c := range cases {
		lon, lat, _, err := WGS84{}.ToGeodetic(c.x, c.y, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !near(lon, c.lon, 1e-9) || !near(lat, 0, 1e-9) {
			t.Errorf("(%v,%v): got lon=%v lat=%v, want lon=%v", c.x, c.y, lon, lat, c.lon)
		}
	}
}

func TestPole(t *testing.T) {
	polarRadius := SemiMajorAxis * (1 - Flattening)
	_, lat, alt, err := WGS84{}.ToGeodetic(0, 0, polarRadius+500e3)
	if err != nil {
		t.Fatal(err)
	}
	if !near(lat, 90, 1e-9) {
		t.Errorf("lat = %v, want 90", lat)
	}
	if !near(alt, 500e3, 1e-3) {
		t.Errorf("alt = %v, want 500 km", alt)
	}
}

func TestRoundTrip(t *testing.T) {
	w := WGS84{}
	for _, lat := range []float64{-89.5, -60, -23.4, 0, 12.5, 45, 78.9} {
		for _, lon := range []float64{-179.9, -120, -0.5, 0, 33.3, 150, 179.9} {
			for _, alt := range []float64{0, 420e3, 850e3, 20200e3} {
				x, y, z := w.ToECEF(lon, lat, alt)
				gl, gt, ga, err := w.ToGeodetic(x, y, z)
				if err != nil {
					t.Fatal(err)
				}
				if !near(gl, lon, 1e-6) || !near(gt, lat, 1e-6) || !near(ga, alt, 1e-3) {
					t.Fatalf("round trip (%v,%v,%v) -> (%v,%v,%v)", lon, lat, alt, gl, gt, ga)
				}
			}
		}
	}
}

func TestNonFinite(t *testing.T) {
	if _, _, _, err := (WGS84{}).ToGeodetic(math.NaN(), 0, 0); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("got %v, want ErrNonFinite", err)
	}
	if _, _, _, err := (WGS84{}).ToGeodetic(0, math.Inf(1), 0); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("got %v, want ErrNonFinite", err)
	}
}

func TestConverterScalesKilometres(t *testing.T) {
	s := series.Series{
		{NoradID: 1, Position: [3]float64{7000, 0, 0}},
		{NoradID: 2, Position: [3]float64{0, 7000, 0}},
	}
	for _, be := range []numeric.Backend{numeric.Serial{}, numeric.Parallel{Workers: 2, MinChunk: 1}} {
		pts, err := Converter{Backend: be}.Convert(s)
		if err != nil {
			t.Fatal(err)
		}
		if len(pts) != 2 {
			t.Fatalf("got %d points", len(pts))
		}
		if !near(pts[0].Alt, 7000e3-SemiMajorAxis, 1e-6) {
			t.Errorf("%s: alt = %v", be.Name(), pts[0].Alt)
		}
		if !near(pts[1].Lon, 90, 1e-9) {
			t.Errorf("%s: lon = %v, want 90", be.Name(), pts[1].Lon)
		}
	}
}

func TestConverterReportsBadSample(t *testing.T) {
	s := series.Series{
		{NoradID: 1, Position: [3]float64{7000, 0, 0}},
		{NoradID: 42, Position: [3]float64{math.NaN(), 0, 0}},
	}
	_, err := Converter{}.Convert(s)
	var te *TransformError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *TransformError", err)
	}
	if te.Index != 1 || te.NoradID != 42 || !errors.Is(err, ErrNonFinite) {
		t.Errorf("unexpected error detail: %+v", te)
	}
}

func TestConverterEmpty(t *testing.T) {
	pts, err := Converter{}.Convert(nil)
	if err != nil || len(pts) != 0 {
		t.Fatalf("got %v, %v", pts, err)
	}
}
