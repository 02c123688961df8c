package app

import (
	"log"
	"net/http"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/config"
	"github.com/large-farva/footprint/internal/metrics"
	"github.com/large-farva/footprint/internal/numeric"
	"github.com/large-farva/footprint/internal/pipeline"
	"github.com/large-farva/footprint/internal/propagate"
)

// Components is the catalog store and pipeline built from one config.
type Components struct {
	Store    *catalog.Store
	Pipeline *pipeline.Pipeline
	Engine   propagate.Engine
	Backend  numeric.Backend
}

// Build resolves the config's engine, strategy, framing and backend names
// and assembles a pipeline around a catalog store. events and rec may be nil.
func Build(cfg config.Config, logger *log.Logger, client *http.Client, events pipeline.Broadcaster, rec metrics.Recorder) (*Components, error) {
	framing, err := catalog.ParseFraming(cfg.Catalog.Framing)
	if err != nil {
		return nil, err
	}
	engine, err := propagate.EngineByName(cfg.Propagation.Engine)
	if err != nil {
		return nil, err
	}
	strategy, err := propagate.ParseStrategy(cfg.Propagation.Strategy)
	if err != nil {
		return nil, err
	}
	backend, err := numeric.New(cfg.Compute.Backend, cfg.Compute.Workers)
	if err != nil {
		return nil, err
	}

	store := catalog.NewStore(catalog.StoreOptions{
		Path:         cfg.Catalog.Path,
		URL:          cfg.Catalog.URL,
		DataRoot:     cfg.Data.Root,
		RefreshHours: cfg.Catalog.RefreshHours,
		Framing:      framing,
		Client:       client,
	})
	pipe := pipeline.New(pipeline.Options{
		Catalog:         store,
		Engine:          engine,
		Strategy:        strategy,
		Workers:         cfg.Propagation.Workers,
		Backend:         backend,
		DefaultInterval: cfg.Grid.IntervalMinutes,
		AllowSkewed:     cfg.Region.AllowSkewed,
		Events:          events,
		Metrics:         rec,
		Logger:          logger,
		Debug:           cfg.Logging.Debug(),
	})

	if cfg.Logging.Debug() && logger != nil {
		logger.Printf("app: engine=%s strategy=%s workers=%d backend=%s",
			engine.Name(), strategy, cfg.Propagation.Workers, backend.Name())
	}
	return &Components{Store: store, Pipeline: pipe, Engine: engine, Backend: backend}, nil
}
