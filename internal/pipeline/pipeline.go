// Package pipeline runs one footprint computation end to end: load the
// catalog, build the day's time grid, propagate every satellite across it,
// flatten the valid samples into one series, convert them to geodetic
// coordinates, and keep those inside the requested rectangle.
//
// Stages run strictly in order. Any error aborts the run in the Failed state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/geodetic"
	"github.com/large-farva/footprint/internal/metrics"
	"github.com/large-farva/footprint/internal/numeric"
	"github.com/large-farva/footprint/internal/propagate"
	"github.com/large-farva/footprint/internal/region"
	"github.com/large-farva/footprint/internal/series"
	"github.com/large-farva/footprint/internal/telemetry"
	"github.com/large-farva/footprint/internal/timegrid"
)

// Stage names a point in the run's linear state machine.
type Stage string

const (
	StageIdle       Stage = "Idle"
	StageLoaded     Stage = "Loaded"
	StageGridBuilt  Stage = "GridBuilt"
	StagePropagated Stage = "Propagated"
	StageAssembled  Stage = "Assembled"
	StageConverted  Stage = "Converted"
	StageFiltered   Stage = "Filtered"
	StageDone       Stage = "Done"
	StageFailed     Stage = "Failed"
)

// CatalogSource supplies the element records for a run. *catalog.Store
// satisfies it.
type CatalogSource interface {
	Fetch(ctx context.Context) (*catalog.Dataset, error)
}

// Broadcaster receives run events. *ws.Hub satisfies it.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Options configures a Pipeline. Zero values pick the SGP4 engine, the
// serial backend and the WGS-84 transform.
type Options struct {
	Catalog         CatalogSource
	Engine          propagate.Engine
	Strategy        propagate.Strategy
	Workers         int
	Backend         numeric.Backend
	Transform       geodetic.Transform
	DefaultInterval int
	AllowSkewed     bool
	Events          Broadcaster
	Metrics         metrics.Recorder
	Logger          *log.Logger
	Debug           bool
}

// Request describes one run. Exactly one of Corners or Rect should be set;
// Rect wins when both are.
type Request struct {
	StartDate       time.Time
	IntervalMinutes int // 0 uses the configured default
	Corners         *[4]region.Corner
	Rect            *region.Rect
}

// Hit is a ground point that fell inside the rectangle.
type Hit struct {
	NoradID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Time    time.Time `json:"time"`
	Lon     float64   `json:"lon"`
	Lat     float64   `json:"lat"`
	Alt     float64   `json:"alt_m"`
}

// Result is everything a run produced.
type Result struct {
	Run             uint64              `json:"run"`
	Source          string              `json:"catalog_source"`
	Start           time.Time           `json:"start"`
	IntervalMinutes int                 `json:"interval_minutes"`
	Epochs          int                 `json:"epochs"`
	Rect            region.Rect         `json:"rect"`
	Satellites      int                 `json:"satellites"`
	Skipped         []propagate.Skipped `json:"skipped"`
	ValidSamples    int                 `json:"valid_samples"`
	InvalidSamples  int                 `json:"invalid_samples"`
	Hits            []Hit               `json:"hits"`
	Duration        time.Duration       `json:"duration_ns"`
}

// Pipeline is safe for concurrent use; each Run owns all of its data.
type Pipeline struct {
	opts    Options
	log     *log.Logger
	backend numeric.Backend
	runs    atomic.Uint64
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	be := opts.Backend
	if be == nil {
		be = numeric.Serial{}
	}
	if opts.DefaultInterval == 0 {
		opts.DefaultInterval = timegrid.DefaultInterval
	}
	return &Pipeline{opts: opts, log: logger, backend: be}
}

// run carries per-run state through the stages.
type run struct {
	p     *Pipeline
	id    uint64
	stage Stage
}

func (r *run) advance(to Stage) {
	from := r.stage
	r.stage = to
	if r.p.opts.Debug {
		r.p.log.Printf("pipeline: run %d %s -> %s", r.id, from, to)
	}
	r.p.emit(telemetry.StageTransition{
		Event: telemetry.NewEvent(telemetry.EventStage),
		Run:   r.id,
		From:  string(from),
		To:    string(to),
	})
}

// Run executes one request. Interval and rectangle problems are reported
// before the catalog is touched.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	r := &run{p: p, id: p.runs.Add(1), stage: StageIdle}

	res, err := p.execute(ctx, r, req)
	elapsed := time.Since(start)

	summary := telemetry.RunSummary{
		Event:   telemetry.NewEvent(telemetry.EventRun),
		Run:     r.id,
		OK:      err == nil,
		Seconds: elapsed.Seconds(),
	}
	if err != nil {
		r.advance(StageFailed)
		summary.Error = err.Error()
		p.log.Printf("pipeline: run %d failed: %v", r.id, err)
		p.record("error", elapsed)
		p.emit(summary)
		return nil, err
	}

	res.Duration = elapsed
	summary.Satellites = res.Satellites
	summary.Skipped = len(res.Skipped)
	summary.Valid = res.ValidSamples
	summary.Invalid = res.InvalidSamples
	summary.Hits = len(res.Hits)
	p.log.Printf("pipeline: run %d done: %d satellites, %d skipped, %d valid samples, %d hits in %s",
		r.id, res.Satellites, len(res.Skipped), res.ValidSamples, len(res.Hits), elapsed.Round(time.Millisecond))
	p.record("ok", elapsed)
	p.emit(summary)
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, r *run, req Request) (*Result, error) {
	rect, err := p.resolveRect(req)
	if err != nil {
		return nil, err
	}
	interval := req.IntervalMinutes
	if interval == 0 {
		interval = p.opts.DefaultInterval
	}
	if err := timegrid.ValidateInterval(interval); err != nil {
		return nil, err
	}
	if p.opts.Catalog == nil {
		return nil, errors.New("pipeline: no catalog source configured")
	}

	ds, err := p.opts.Catalog.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	p.emit(telemetry.CatalogLoaded{
		Event:   telemetry.NewEvent(telemetry.EventCatalog),
		Source:  string(ds.Source),
		Records: len(ds.Records),
	})
	r.advance(StageLoaded)

	grid, err := timegrid.New(req.StartDate, interval)
	if err != nil {
		return nil, err
	}
	r.advance(StageGridBuilt)

	orch := propagate.New(propagate.Options{
		Engine:   p.opts.Engine,
		Strategy: p.opts.Strategy,
		Workers:  p.opts.Workers,
		Logger:   p.log,
		Progress: p.progressFunc(r.id),
	})
	prop, err := orch.Run(ctx, ds.Records, grid)
	if err != nil {
		return nil, fmt.Errorf("propagate: %w", err)
	}
	valid, invalid := prop.SampleCounts()
	p.recordSamples(valid, invalid, len(prop.Skipped))
	for _, sk := range prop.Skipped {
		p.emit(telemetry.LogLine{
			Event:   telemetry.NewEvent(telemetry.EventLog),
			Level:   "warn",
			Message: fmt.Sprintf("run %d: skipped %s (NORAD %d): %s", r.id, sk.Name, sk.NoradID, sk.Reason),
		})
	}
	r.advance(StagePropagated)

	s := series.Assemble(prop.Tracks, grid, p.backend)
	r.advance(StageAssembled)

	pts, err := geodetic.Converter{Transform: p.opts.Transform, Backend: p.backend}.Convert(s)
	if err != nil {
		return nil, err
	}
	r.advance(StageConverted)

	idx := rect.Filter(pts, p.backend)
	hits := make([]Hit, len(idx))
	for i, j := range idx {
		hits[i] = Hit{
			NoradID: s[j].NoradID,
			Name:    s[j].Name,
			Time:    s[j].Time,
			Lon:     pts[j].Lon,
			Lat:     pts[j].Lat,
			Alt:     pts[j].Alt,
		}
	}
	r.advance(StageFiltered)

	skipped := prop.Skipped
	if skipped == nil {
		skipped = []propagate.Skipped{}
	}
	res := &Result{
		Run:             r.id,
		Source:          string(ds.Source),
		Start:           grid.Start,
		IntervalMinutes: interval,
		Epochs:          grid.Len(),
		Rect:            rect,
		Satellites:      len(prop.Tracks),
		Skipped:         skipped,
		ValidSamples:    valid,
		InvalidSamples:  invalid,
		Hits:            hits,
	}
	r.advance(StageDone)
	return res, nil
}

// resolveRect turns the request's rectangle or corners into validated
// bounds. Corners must be axis-aligned unless AllowSkewed is set.
func (p *Pipeline) resolveRect(req Request) (region.Rect, error) {
	switch {
	case req.Rect != nil:
		return *req.Rect, req.Rect.Validate()
	case req.Corners != nil:
		if p.opts.AllowSkewed {
			rect := region.Envelope(*req.Corners)
			return rect, rect.Validate()
		}
		return region.FromCorners(*req.Corners)
	}
	return region.Rect{}, &region.InvalidRectangleError{Reason: "no rectangle given"}
}

func (p *Pipeline) progressFunc(id uint64) func(done, total int) {
	if p.opts.Events == nil {
		return nil
	}
	return func(done, total int) {
		pct := 100.0
		if total > 0 {
			pct = float64(done) / float64(total) * 100
		}
		p.emit(telemetry.Progress{
			Event:   telemetry.NewEvent(telemetry.EventProgress),
			Run:     id,
			Stage:   "propagate",
			Percent: pct,
			Detail:  fmt.Sprintf("%d/%d satellites", done, total),
		})
	}
}

func (p *Pipeline) emit(v any) {
	if p.opts.Events != nil {
		p.opts.Events.BroadcastJSON(v)
	}
}

func (p *Pipeline) record(result string, d time.Duration) {
	if p.opts.Metrics != nil {
		p.opts.Metrics.RunFinished(result, d)
	}
}

func (p *Pipeline) recordSamples(valid, invalid, skipped int) {
	if p.opts.Metrics != nil {
		p.opts.Metrics.Samples(valid, invalid)
		p.opts.Metrics.Skipped(skipped)
	}
}
