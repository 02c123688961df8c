// Footprintd is the footprint daemon.
//
// It loads configuration, starts the HTTP/WebSocket server and serves
// footprint runs on demand. Shutdown is handled gracefully on SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/footprint/internal/app"
	"github.com/large-farva/footprint/internal/config"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/footprint/footprint.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := log.New(os.Stdout, "footprintd ", log.LstdFlags|log.Lmicroseconds)
	if cfg.Logging.Debug() {
		logger.SetFlags(logger.Flags() | log.Lshortfile)
	}

	a, err := app.New(app.Options{
		Logger:     logger,
		Cfg:        cfg,
		ConfigPath: *configPath,
		Bind:       *bind,
	})
	if err != nil {
		logger.Fatalf("init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("footprintd failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
