// Package app wires together the HTTP server, the WebSocket hub, the
// catalog store and the footprint pipeline. It owns the daemon's lifecycle
// and is the single source of truth for the current operating state.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/config"
	"github.com/large-farva/footprint/internal/metrics"
	"github.com/large-farva/footprint/internal/pipeline"
	"github.com/large-farva/footprint/internal/telemetry"
	"github.com/large-farva/footprint/internal/ws"
)

// Daemon states.
const (
	StateBooting = "BOOTING"
	StateIdle    = "IDLE"
	StateRunning = "RUNNING"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     *log.Logger
	Cfg        config.Config
	ConfigPath string
	Bind       string
	// HTTPClient is used for catalog downloads; nil uses the store default.
	HTTPClient *http.Client
}

// App is the top-level daemon process.
type App struct {
	log        *log.Logger
	cfg        config.Config
	configPath string
	bind       string
	server     *http.Server

	startedAt time.Time
	state     atomic.Value // current state string

	wsHub *ws.Hub
	store *catalog.Store
	pipe  *pipeline.Pipeline

	// runMu serialises pipeline runs.
	runMu   sync.Mutex
	lastRun atomic.Pointer[runSummary]
}

// runSummary is what /api/status reports about the most recent run.
type runSummary struct {
	Run        uint64    `json:"run"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	Satellites int       `json:"satellites"`
	Skipped    int       `json:"skipped"`
	Hits       int       `json:"hits"`
	Seconds    float64   `json:"seconds"`
}

// New builds an App in the BOOTING state from a validated config.
// Call Run to start serving.
func New(opts Options) (*App, error) {
	cfg := opts.Cfg
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	a := &App{
		log:        logger,
		cfg:        cfg,
		configPath: opts.ConfigPath,
		bind:       opts.Bind,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
	}
	a.state.Store(StateBooting)

	c, err := Build(cfg, logger, opts.HTTPClient, a.wsHub, metrics.Prom{})
	if err != nil {
		return nil, err
	}
	a.store = c.Store
	a.pipe = c.Pipeline
	return a, nil
}

// Handler returns the daemon's routes wrapped in the metrics middleware.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/catalog", a.handleCatalog)
	mux.HandleFunc("/api/catalog/refresh", a.handleCatalogRefresh)
	mux.HandleFunc("/api/run", a.handleRun)
	mux.Handle("/ws", a.wsHub.Handler())
	mux.Handle("/metrics", metrics.Handler())
	return metrics.Middleware(mux)
}

// Run starts the HTTP server, WebSocket hub and heartbeat ticker. It blocks
// until the context is cancelled or the server returns an error.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" && a.cfg.Server.Bind != "" {
		bind = a.cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	a.server = &http.Server{
		Addr:              bind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Printf("listening on http://%s", bind)

	go a.wsHub.Run(ctx)
	a.transition(StateIdle)
	go a.heartbeatLoop(ctx)

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		_ = a.server.Shutdown(context.Background())
	}()

	err = a.server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// transition updates the daemon state and broadcasts the change.
func (a *App) transition(newState string) {
	old := a.state.Swap(newState).(string)
	if old == newState {
		return
	}
	a.wsHub.BroadcastJSON(telemetry.StateTransition{
		Event: telemetry.NewEvent(telemetry.EventState),
		From:  old,
		To:    newState,
	})
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.wsHub.BroadcastJSON(telemetry.Heartbeat{
				Event:         telemetry.NewEvent(telemetry.EventHeartbeat),
				State:         a.state.Load().(string),
				UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
			})
		}
	}
}

// runPipeline executes one request under runMu and records its summary.
func (a *App) runPipeline(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	prev := a.state.Load().(string)
	a.transition(StateRunning)
	defer a.transition(prev)

	start := time.Now()
	res, err := a.pipe.Run(ctx, req)

	sum := &runSummary{OK: err == nil, FinishedAt: time.Now().UTC(), Seconds: time.Since(start).Seconds()}
	if err != nil {
		sum.Error = err.Error()
	} else {
		sum.Run = res.Run
		sum.Satellites = res.Satellites
		sum.Skipped = len(res.Skipped)
		sum.Hits = len(res.Hits)
	}
	a.lastRun.Store(sum)

	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return res, nil
}
