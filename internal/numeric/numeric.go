// Package numeric holds the array kernels the pipeline runs over whole
// columns of samples: validity masking, a batched point transform, and
// rectangular range tests. Two interchangeable backends exist. Serial runs
// the kernels in a plain loop. Parallel splits each column into chunks and
// runs them on a goroutine pool. Both produce identical output.
package numeric

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// PointFunc maps one (x, y, z) triple to another.
type PointFunc func(x, y, z float64) (a, b, c float64, err error)

// Bounds is an inclusive lat/lon box in degrees.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Backend runs column kernels. Every output is index-aligned with its input.
type Backend interface {
	Name() string
	// ValidMask reports code == 0 per element.
	ValidMask(codes []int) []bool
	// Transform applies fn to each (xs[i], ys[i], zs[i]). On failure the
	// error for the lowest failing index is returned.
	Transform(xs, ys, zs []float64, fn PointFunc) (a, b, c []float64, err error)
	// InRange reports whether each (lat[i], lon[i]) lies inside bounds,
	// edges included.
	InRange(lat, lon []float64, bounds Bounds) []bool
}

// New returns the backend registered under name.
func New(name string, workers int) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "serial":
		return Serial{}, nil
	case "parallel":
		return NewParallel(workers), nil
	}
	return nil, fmt.Errorf("unknown compute backend %q", name)
}

// IndexError wraps a kernel failure with the element index it occurred at.
type IndexError struct {
	Index int
	Err   error
}

func (e *IndexError) Error() string { return fmt.Sprintf("element %d: %v", e.Index, e.Err) }

func (e *IndexError) Unwrap() error { return e.Err }

// Serial runs every kernel in the calling goroutine.
type Serial struct{}

func (Serial) Name() string { return "serial" }

func (Serial) ValidMask(codes []int) []bool {
	out := make([]bool, len(codes))
	validRange(codes, out, 0, len(codes))
	return out
}

func (Serial) Transform(xs, ys, zs []float64, fn PointFunc) ([]float64, []float64, []float64, error) {
	if err := checkLens(len(xs), len(ys), len(zs)); err != nil {
		return nil, nil, nil, err
	}
	a, b, c := make([]float64, len(xs)), make([]float64, len(xs)), make([]float64, len(xs))
	if err := transformRange(xs, ys, zs, a, b, c, fn, 0, len(xs)); err != nil {
		return nil, nil, nil, err
	}
	return a, b, c, nil
}

func (Serial) InRange(lat, lon []float64, bounds Bounds) []bool {
	out := make([]bool, len(lat))
	inRange(lat, lon, bounds, out, 0, len(lat))
	return out
}

// Parallel chunks each column across a fixed number of goroutines.
// Columns shorter than MinChunk run inline.
type Parallel struct {
	Workers  int
	MinChunk int
}

// NewParallel returns a Parallel backend; workers <= 0 uses GOMAXPROCS.
func NewParallel(workers int) Parallel {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return Parallel{Workers: workers, MinChunk: 256}
}

func (Parallel) Name() string { return "parallel" }

func (p Parallel) ValidMask(codes []int) []bool {
	out := make([]bool, len(codes))
	p.each(len(codes), func(lo, hi int) error {
		validRange(codes, out, lo, hi)
		return nil
	})
	return out
}

func (p Parallel) Transform(xs, ys, zs []float64, fn PointFunc) ([]float64, []float64, []float64, error) {
	if err := checkLens(len(xs), len(ys), len(zs)); err != nil {
		return nil, nil, nil, err
	}
	a, b, c := make([]float64, len(xs)), make([]float64, len(xs)), make([]float64, len(xs))
	err := p.each(len(xs), func(lo, hi int) error {
		return transformRange(xs, ys, zs, a, b, c, fn, lo, hi)
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return a, b, c, nil
}

func (p Parallel) InRange(lat, lon []float64, bounds Bounds) []bool {
	out := make([]bool, len(lat))
	p.each(len(lat), func(lo, hi int) error {
		inRange(lat, lon, bounds, out, lo, hi)
		return nil
	})
	return out
}

// each splits [0, n) into contiguous chunks and runs fn on each. The error
// from the lowest chunk wins, which keeps failures deterministic.
func (p Parallel) each(n int, fn func(lo, hi int) error) error {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if n <= p.MinChunk || workers == 1 {
		return fn(0, n)
	}

	size := (n + workers - 1) / workers
	if size < p.MinChunk {
		size = p.MinChunk
	}
	chunks := (n + size - 1) / size
	errs := make([]error, chunks)

	var wg sync.WaitGroup
	for i := 0; i < chunks; i++ {
		lo := i * size
		hi := min(lo+size, n)
		wg.Add(1)
		go func(i, lo, hi int) {
			defer wg.Done()
			errs[i] = fn(lo, hi)
		}(i, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func checkLens(n ...int) error {
	for _, l := range n[1:] {
		if l != n[0] {
			return fmt.Errorf("column length mismatch: %v", n)
		}
	}
	return nil
}

func validRange(codes []int, out []bool, lo, hi int) {
	for i := lo; i < hi; i++ {
		out[i] = codes[i] == 0
	}
}

func transformRange(xs, ys, zs, a, b, c []float64, fn PointFunc, lo, hi int) error {
	for i := lo; i < hi; i++ {
		var err error
		a[i], b[i], c[i], err = fn(xs[i], ys[i], zs[i])
		if err != nil {
			return &IndexError{Index: i, Err: err}
		}
	}
	return nil
}

func inRange(lat, lon []float64, bounds Bounds, out []bool, lo, hi int) {
	for i := lo; i < hi; i++ {
		out[i] = bounds.MinLat <= lat[i] && lat[i] <= bounds.MaxLat &&
			bounds.MinLon <= lon[i] && lon[i] <= bounds.MaxLon
	}
}
