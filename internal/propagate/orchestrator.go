package propagate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/timegrid"
)

// Strategy selects how a handle is driven across the grid.
type Strategy string

const (
	// PerEpoch calls Handle.Propagate once per epoch. It is the baseline.
	PerEpoch Strategy = "epoch"
	// Batch calls BatchHandle.PropagateBatch once per satellite when the
	// handle supports it and falls back to PerEpoch otherwise.
	Batch Strategy = "batch"
)

// ParseStrategy maps a config value onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "epoch", "per-epoch":
		return PerEpoch, nil
	case "batch":
		return Batch, nil
	}
	return "", fmt.Errorf("unknown propagation strategy %q", s)
}

// Options configures an Orchestrator.
type Options struct {
	Engine   Engine
	Strategy Strategy
	Workers  int // <= 1 propagates satellites sequentially
	Logger   *log.Logger
	// Progress, if set, is called after each record with the number of
	// records finished so far. It may be called from several goroutines.
	Progress func(done, total int)
}

// Orchestrator propagates every record across a grid.
type Orchestrator struct {
	engine   Engine
	strategy Strategy
	workers  int
	log      *log.Logger
	progress func(done, total int)
}

// New creates an orchestrator. A nil engine selects SGP4Engine.
func New(opts Options) *Orchestrator {
	engine := opts.Engine
	if engine == nil {
		engine = SGP4Engine{}
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = PerEpoch
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		engine:   engine,
		strategy: strategy,
		workers:  opts.Workers,
		log:      logger,
		progress: opts.Progress,
	}
}

// outcome is what one record produced: a track, or the reason it was skipped.
type outcome struct {
	track   Track
	skipped *Skipped
}

// Run propagates records across grid. Output tracks follow catalog order
// regardless of the worker count. The only error returned is ctx's.
func (o *Orchestrator) Run(ctx context.Context, records []catalog.Record, grid *timegrid.Grid) (*Result, error) {
	whole, frac := grid.JulianDates()
	outcomes := make([]outcome, len(records))

	if o.workers <= 1 {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = o.propagateRecord(rec, grid, whole, frac)
			o.report(i+1, len(records))
		}
	} else if err := o.runPool(ctx, records, grid, whole, frac, outcomes); err != nil {
		return nil, err
	}

	res := &Result{Tracks: make([]Track, 0, len(records))}
	for _, oc := range outcomes {
		if oc.skipped != nil {
			res.Skipped = append(res.Skipped, *oc.skipped)
			continue
		}
		res.Tracks = append(res.Tracks, oc.track)
	}
	return res, nil
}

// runPool fans records out over a fixed set of goroutines. Each worker
// writes only its own outcome slot, so no result channel is needed.
func (o *Orchestrator) runPool(ctx context.Context, records []catalog.Record, grid *timegrid.Grid, whole, frac []float64, outcomes []outcome) error {
	jobs := make(chan int, o.workers*2)
	var done atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = o.propagateRecord(records[i], grid, whole, frac)
				o.report(int(done.Add(1)), len(records))
			}
		}()
	}

feed:
	for i := range records {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}

func (o *Orchestrator) report(done, total int) {
	if o.progress != nil {
		o.progress(done, total)
	}
}

func (o *Orchestrator) propagateRecord(rec catalog.Record, grid *timegrid.Grid, whole, frac []float64) outcome {
	h, err := o.engine.New(rec)
	if err != nil {
		cerr := &ConstructionError{NoradID: rec.NoradID, Name: rec.Label(), Err: err}
		o.log.Printf("propagate: skipping record: %v", cerr)
		return outcome{skipped: &Skipped{NoradID: rec.NoradID, Name: rec.Label(), Reason: cerr.Error()}}
	}

	samples := make([]Sample, grid.Len())
	bh, batch := h.(BatchHandle)
	if o.strategy == Batch && batch {
		codes, pos, vel := bh.PropagateBatch(whole, frac)
		for i, e := range grid.Epochs {
			samples[i] = newSample(e, codes[i], pos[i], vel[i])
		}
	} else {
		for i, e := range grid.Epochs {
			code, pos, vel := h.Propagate(e.JDWhole, e.JDFrac)
			samples[i] = newSample(e, code, pos, vel)
		}
	}

	return outcome{track: Track{Record: rec, Samples: samples}}
}

func newSample(e timegrid.Epoch, code int, pos, vel [3]float64) Sample {
	return Sample{
		Epoch:    e.Index,
		Elapsed:  e.Elapsed,
		Position: pos,
		Velocity: vel,
		Code:     code,
		Valid:    code == CodeOK,
	}
}
