// Fpctl is the command-line client for footprintd. It queries the daemon
// over HTTP, streams its events over WebSocket, and can also run the
// footprint pipeline in-process with the local command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/large-farva/footprint/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "Footprint daemon URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter stage,run)")
	)

	// Stop at the command name so subcommand flags like --corner reach
	// their own flag set.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		healthFlags := pflag.NewFlagSet("health", pflag.ExitOnError)
		detailed := healthFlags.Bool("detailed", false, "Show per-component checks")
		_ = healthFlags.Parse(subArgs)
		err = ctl.Health(*host, *jsonOut, *detailed)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "catalog":
		err = ctl.Catalog(*host, *jsonOut)

	case "catalog-refresh":
		err = ctl.CatalogRefresh(*host, *jsonOut)

	case "run":
		opts := ctl.RunOptions{JSON: *jsonOut}
		runFlags := pflag.NewFlagSet("run", pflag.ExitOnError)
		bindRunFlags(runFlags, &opts)
		_ = runFlags.Parse(subArgs)
		err = ctl.Run(*host, opts)

	case "local":
		opts := ctl.LocalOptions{RunOptions: ctl.RunOptions{JSON: *jsonOut}}
		localFlags := pflag.NewFlagSet("local", pflag.ExitOnError)
		bindRunFlags(localFlags, &opts.RunOptions)
		localFlags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config TOML (default: built-in settings)")
		localFlags.StringVar(&opts.DataRoot, "data-root", "", "Override data.root")
		localFlags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log pipeline progress to stderr")
		_ = localFlags.Parse(subArgs)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = ctl.Local(ctx, opts)
		stop()

	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func bindRunFlags(fs *pflag.FlagSet, opts *ctl.RunOptions) {
	fs.StringVar(&opts.Date, "date", "", "Start day, YYYY-MM-DD (prompted when omitted)")
	fs.IntVar(&opts.Interval, "interval", 0, "Sampling interval in minutes (default: grid.interval_minutes)")
	fs.StringArrayVar(&opts.Corners, "corner", nil, "Rectangle corner as lat,lon; repeat 4 times (prompted when omitted)")
	fs.IntVar(&opts.Limit, "limit", 0, "Print at most N hits")
}

func usage() {
	fmt.Print(`
  fpctl - footprint control CLI

  USAGE
    fpctl [flags] <command> [command-flags]

  COMMANDS (query)
    status            Show daemon state, uptime and the last run
    health            Check daemon health (--detailed for component checks)
    version           Show CLI and daemon version information
    config            Show the daemon's running configuration
    catalog           Show the loaded satellite catalog

  COMMANDS (control)
    catalog-refresh   Re-download the catalog, ignoring the cache
    run               Compute a footprint on the daemon
    local             Compute a footprint in this process, no daemon needed

  COMMANDS (live)
    watch             Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    run, local:
        --date DAY          Start day, YYYY-MM-DD
        --interval MIN      Sampling interval in minutes
        --corner LAT,LON    Rectangle corner; repeat 4 times
        --limit N           Print at most N hits

    local:
    -c, --config PATH       Config TOML
        --data-root DIR     Override data.root
    -v, --verbose           Log pipeline progress to stderr

  EXAMPLES
    fpctl status
    fpctl --json catalog
    fpctl health --detailed
    fpctl run --date 2025-05-27 --corner=-10,-20 --corner=-10,20 --corner=10,20 --corner=10,-20
    fpctl local --data-root /tmp/fp --date 2025-05-27
    fpctl catalog-refresh
    fpctl watch --filter stage,progress,run

`)
}
