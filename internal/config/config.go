// Package config handles loading, defaulting, and validation of the footprint
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/large-farva/footprint/internal/catalog"
	"github.com/large-farva/footprint/internal/numeric"
	"github.com/large-farva/footprint/internal/propagate"
	"github.com/large-farva/footprint/internal/timegrid"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data        DataConfig        `toml:"data"        json:"data"`
	Logging     LoggingConfig     `toml:"logging"     json:"logging"`
	Server      ServerConfig      `toml:"server"      json:"server"`
	Catalog     CatalogConfig     `toml:"catalog"     json:"catalog"`
	Grid        GridConfig        `toml:"grid"        json:"grid"`
	Propagation PropagationConfig `toml:"propagation" json:"propagation"`
	Compute     ComputeConfig     `toml:"compute"     json:"compute"`
	Region      RegionConfig      `toml:"region"      json:"region"`
}

type DataConfig struct {
	Root string `toml:"root" json:"root"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

// Debug reports whether debug-level lines should be logged.
func (l LoggingConfig) Debug() bool { return l.Level == "debug" }

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type CatalogConfig struct {
	Path         string `toml:"path"          json:"path"`
	URL          string `toml:"url"           json:"url"`
	Framing      string `toml:"framing"       json:"framing"`
	RefreshHours int    `toml:"refresh_hours" json:"refresh_hours"`
}

type GridConfig struct {
	IntervalMinutes int `toml:"interval_minutes" json:"interval_minutes"`
}

type PropagationConfig struct {
	Engine   string `toml:"engine"   json:"engine"`
	Strategy string `toml:"strategy" json:"strategy"`
	Workers  int    `toml:"workers"  json:"workers"`
}

type ComputeConfig struct {
	Backend string `toml:"backend" json:"backend"`
	Workers int    `toml:"workers" json:"workers"`
}

type RegionConfig struct {
	AllowSkewed bool `toml:"allow_skewed" json:"allow_skewed"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Root: "/var/lib/footprint",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Catalog: CatalogConfig{
			URL:          "https://celestrak.org/NORAD/elements/gp.php?GROUP=weather&FORMAT=tle",
			Framing:      "auto",
			RefreshHours: 24,
		},
		Grid: GridConfig{
			IntervalMinutes: timegrid.DefaultInterval,
		},
		Propagation: PropagationConfig{
			Engine:   "sgp4",
			Strategy: "epoch",
			Workers:  1,
		},
		Compute: ComputeConfig{
			Backend: "serial",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks cfg the same way Load does. Callers that build a Config
// in code use it after applying flag overrides.
func Validate(cfg Config) error { return validate(cfg) }

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	switch cfg.Logging.Level {
	case "debug", "info":
	default:
		return fmt.Errorf("logging.level must be debug or info, got %q", cfg.Logging.Level)
	}
	if _, err := catalog.ParseFraming(cfg.Catalog.Framing); err != nil {
		return fmt.Errorf("catalog.framing: %w", err)
	}
	if cfg.Catalog.RefreshHours < 1 {
		return errors.New("catalog.refresh_hours must be >= 1")
	}
	if err := timegrid.ValidateInterval(cfg.Grid.IntervalMinutes); err != nil {
		return fmt.Errorf("grid.interval_minutes: %w", err)
	}
	if _, err := propagate.EngineByName(cfg.Propagation.Engine); err != nil {
		return fmt.Errorf("propagation.engine: %w", err)
	}
	if _, err := propagate.ParseStrategy(cfg.Propagation.Strategy); err != nil {
		return fmt.Errorf("propagation.strategy: %w", err)
	}
	if cfg.Propagation.Workers < 0 {
		return errors.New("propagation.workers must be >= 0")
	}
	if _, err := numeric.New(cfg.Compute.Backend, cfg.Compute.Workers); err != nil {
		return fmt.Errorf("compute.backend: %w", err)
	}
	if cfg.Compute.Workers < 0 {
		return errors.New("compute.workers must be >= 0")
	}
	return nil
}
