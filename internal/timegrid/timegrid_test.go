package timegrid

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewDivisors(t *testing.T) {
	start := time.Date(2025, 5, 26, 17, 42, 3, 0, time.UTC)
	for _, interval := range []int{1, 2, 3, 5, 10, 15, 30, 60, 90, 120, 360, 720, 1440} {
		g, err := New(start, interval)
		if err != nil {
			t.Fatalf("interval %d: %v", interval, err)
		}
		want := MinutesPerDay / interval
		if g.Len() != want {
			t.Fatalf("interval %d: got %d epochs, want %d", interval, g.Len(), want)
		}

		day := time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)
		if !g.Start.Equal(day) || !g.Epochs[0].Time.Equal(day) {
			t.Errorf("interval %d: grid starts at %v, want %v", interval, g.Epochs[0].Time, day)
		}

		step := time.Duration(interval) * time.Minute
		for i := 1; i < g.Len(); i++ {
			if d := g.Epochs[i].Time.Sub(g.Epochs[i-1].Time); d != step {
				t.Fatalf("interval %d: epoch %d spacing %v, want %v", interval, i, d, step)
			}
			if g.Epochs[i].Elapsed <= g.Epochs[i-1].Elapsed {
				t.Fatalf("interval %d: elapsed not strictly increasing at %d", interval, i)
			}
		}

		last := g.Epochs[g.Len()-1].Time
		if !last.Before(day.Add(24 * time.Hour)) {
			t.Errorf("interval %d: last epoch %v is outside the day", interval, last)
		}
	}
}

func TestNewInvalidInterval(t *testing.T) {
	for _, interval := range []int{0, -1, -60, 7, 11, 1441} {
		_, err := New(time.Now(), interval)
		var ie *InvalidIntervalError
		if !errors.As(err, &ie) {
			t.Fatalf("interval %d: expected InvalidIntervalError, got %v", interval, err)
		}
		if ie.Minutes != interval {
			t.Errorf("interval %d: error carries %d", interval, ie.Minutes)
		}
	}
}

func TestElapsedSeconds(t *testing.T) {
	g, err := New(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), 5)
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range g.Epochs {
		if want := float64(i * 5 * 60); e.Elapsed != want {
			t.Fatalf("epoch %d: elapsed %.0f, want %.0f", i, e.Elapsed, want)
		}
		if !g.At(e.Elapsed).Equal(e.Time) {
			t.Fatalf("epoch %d: At(%v) = %v, want %v", i, e.Elapsed, g.At(e.Elapsed), e.Time)
		}
	}
}

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"J2000", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{"unix epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 2440587.5},
		{"2024 new year", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2460310.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JulianDate(tt.t); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("JulianDate(%v) = %.6f, want %.6f", tt.t, got, tt.want)
			}
		})
	}
}

func TestSplitJulianDate(t *testing.T) {
	g, err := New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 30)
	if err != nil {
		t.Fatal(err)
	}
	whole, frac := g.JulianDates()
	if len(whole) != g.Len() || len(frac) != g.Len() {
		t.Fatalf("JulianDates lengths %d/%d, want %d", len(whole), len(frac), g.Len())
	}
	for i, e := range g.Epochs {
		if whole[i] != 2460310.5 {
			t.Fatalf("epoch %d: whole %.1f, want 2460310.5", i, whole[i])
		}
		if want := float64(i*30) / MinutesPerDay; math.Abs(frac[i]-want) > 1e-12 {
			t.Fatalf("epoch %d: frac %.9f, want %.9f", i, frac[i], want)
		}
		if back := TimeFromJulian(e.JDWhole, e.JDFrac); !back.Equal(e.Time) {
			t.Fatalf("epoch %d: TimeFromJulian = %v, want %v", i, back, e.Time)
		}
	}
}
