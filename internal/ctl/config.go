package ctl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/large-farva/footprint/internal/config"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	var cfg config.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}
	printConfig(cfg)
	return nil
}

// printConfig lists every section in file order.
func printConfig(cfg config.Config) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  DAEMON CONFIGURATION"))
	fmt.Fprintln(out, rule(50))

	section := func(name string) {
		fmt.Fprintf(out, "\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Fprintf(out, "    %-20s %v\n", colorize(dim, key+":"), val)
	}

	section("data")
	field("root", cfg.Data.Root)

	section("logging")
	field("level", cfg.Logging.Level)

	section("server")
	field("bind", cfg.Server.Bind)

	section("catalog")
	field("path", cfg.Catalog.Path)
	field("url", cfg.Catalog.URL)
	field("framing", cfg.Catalog.Framing)
	field("refresh_hours", cfg.Catalog.RefreshHours)

	section("grid")
	field("interval_minutes", cfg.Grid.IntervalMinutes)

	section("propagation")
	field("engine", cfg.Propagation.Engine)
	field("strategy", cfg.Propagation.Strategy)
	field("workers", cfg.Propagation.Workers)

	section("compute")
	field("backend", cfg.Compute.Backend)
	field("workers", cfg.Compute.Workers)

	section("region")
	field("allow_skewed", cfg.Region.AllowSkewed)

	fmt.Fprintln(out)
}
