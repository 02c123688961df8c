package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/pipeline"
	"github.com/large-farva/footprint/internal/region"
	"github.com/large-farva/footprint/internal/telemetry"
	"github.com/large-farva/footprint/internal/timegrid"
)

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"name":           "footprint",
		"state":          a.state.Load().(string),
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"data_root":      a.cfg.Data.Root,
		"engine":         a.cfg.Propagation.Engine,
		"backend":        a.cfg.Compute.Backend,
		"ws_clients":     a.wsHub.Clients(),
	}

	if last := a.lastRun.Load(); last != nil {
		resp["last_run"] = last
	}

	if du := diskUsage(a.cfg.Data.Root); du != nil {
		resp["disk"] = du
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg)
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

type catalogEntry struct {
	Name    string `json:"name"`
	NoradID int    `json:"norad_id"`
}

func catalogResponse(ds *catalog.Dataset, info catalog.CacheInfo) map[string]any {
	entries := make([]catalogEntry, len(ds.Records))
	for i, r := range ds.Records {
		entries[i] = catalogEntry{Name: r.Label(), NoradID: r.NoradID}
	}
	return map[string]any{
		"source":     ds.Source,
		"fetched_at": ds.FetchedAt.Format(time.RFC3339),
		"framing":    ds.Framing,
		"count":      len(entries),
		"records":    entries,
		"cache":      info,
	}
}

func (a *App) handleCatalog(w http.ResponseWriter, r *http.Request) {
	ds, err := a.store.Fetch(r.Context())
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse(ds, a.store.Info()))
}

func (a *App) handleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ds, err := a.store.ForceRefresh(r.Context())
	if err != nil {
		a.log.Printf("catalog: refresh failed: %v", err)
		a.wsHub.BroadcastJSON(telemetry.LogLine{
			Event:   telemetry.NewEvent(telemetry.EventLog),
			Level:   "error",
			Message: "catalog refresh failed: " + err.Error(),
		})
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
		jsonError(w, err.Error(), code)
		return
	}

	a.log.Printf("catalog: refreshed %d records", len(ds.Records))
	a.wsHub.BroadcastJSON(telemetry.CatalogLoaded{
		Event:   telemetry.NewEvent(telemetry.EventCatalog),
		Source:  string(ds.Source),
		Records: len(ds.Records),
	})
	writeJSON(w, http.StatusOK, catalogResponse(ds, a.store.Info()))
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// runRequest is the /api/run body. Corners are [lat, lon] pairs.
type runRequest struct {
	StartDate       string       `json:"start_date"`
	IntervalMinutes int          `json:"interval_minutes"`
	Corners         [][2]float64 `json:"corners"`
	Rect            *region.Rect `json:"rect"`
}

func (rr runRequest) toPipeline() (pipeline.Request, error) {
	var req pipeline.Request

	start, err := time.Parse("2006-01-02", rr.StartDate)
	if err != nil {
		return req, fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
	}
	req.StartDate = start
	req.IntervalMinutes = rr.IntervalMinutes

	switch {
	case rr.Rect != nil:
		req.Rect = rr.Rect
	case len(rr.Corners) == 4:
		var c [4]region.Corner
		for i, p := range rr.Corners {
			c[i] = region.Corner{Lat: p[0], Lon: p[1]}
		}
		req.Corners = &c
	default:
		return req, &region.InvalidRectangleError{
			Reason: fmt.Sprintf("expected 4 corners, got %d", len(rr.Corners)),
		}
	}
	return req, nil
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var rr runRequest
	if err := json.NewDecoder(r.Body).Decode(&rr); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	req, err := rr.toPipeline()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := a.runPipeline(r.Context(), req)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]any{}
	allOK := true

	// Data directory must be writable for the catalog cache.
	tmpPath := filepath.Join(a.cfg.Data.Root, ".healthcheck")
	if err := os.WriteFile(tmpPath, []byte("ok"), 0o644); err != nil {
		checks["data_dir"] = map[string]any{"ok": false, "error": err.Error()}
		allOK = false
	} else {
		os.Remove(tmpPath)
		checks["data_dir"] = map[string]any{"ok": true, "path": a.cfg.Data.Root}
	}

	// A missing or stale cache is reported but not unhealthy: runs fall
	// back to the network and then the embedded catalog.
	info := a.store.Info()
	checks["catalog_cache"] = map[string]any{
		"ok":     true,
		"exists": info.Exists,
		"fresh":  info.Fresh,
		"age_s":  info.AgeS,
	}

	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": a.configPath}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// statusFor maps pipeline errors onto HTTP status codes. A bad interval or
// rectangle is the caller's fault. A catalog that does not parse came from
// the configured file, cache or upstream URL, so it is a bad gateway.
func statusFor(err error) int {
	var (
		ie *timegrid.InvalidIntervalError
		re *region.InvalidRectangleError
		pe *catalog.ParseError
	)
	switch {
	case errors.As(err, &ie), errors.As(err, &re):
		return http.StatusBadRequest
	case errors.As(err, &pe):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{
		"ok":    false,
		"error": msg,
	})
}
