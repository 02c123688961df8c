package ctl

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/large-farva/footprint/internal/app"
	"github.com/large-farva/footprint/internal/config"
	"github.com/large-farva/footprint/internal/pipeline"
	"github.com/large-farva/footprint/internal/prompt"
	"github.com/large-farva/footprint/internal/region"
)

// stdin feeds the interactive prompts. Tests swap it.
var stdin io.Reader = os.Stdin

// LocalOptions extends RunOptions with where to find the config.
type LocalOptions struct {
	RunOptions
	ConfigPath string // empty uses built-in defaults
	DataRoot   string // overrides data.root, handy without a config file
	Verbose    bool   // log pipeline progress to stderr
}

// Local runs the pipeline in this process, without a daemon.
func Local(ctx context.Context, opts LocalOptions) error {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if opts.DataRoot != "" {
		cfg.Data.Root = opts.DataRoot
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logw := io.Discard
	if opts.Verbose {
		logw = os.Stderr
	}
	logger := log.New(logw, "fpctl ", log.LstdFlags|log.Lmicroseconds)

	date, corners, err := resolveInputs(opts.RunOptions)
	if err != nil {
		return err
	}

	c, err := app.Build(cfg, logger, nil, nil, nil)
	if err != nil {
		return err
	}
	res, err := c.Pipeline.Run(ctx, pipeline.Request{
		StartDate:       date,
		IntervalMinutes: opts.Interval,
		Corners:         &corners,
	})
	if err != nil {
		return err
	}
	return printResult(res, opts.RunOptions)
}

// resolveInputs takes the date and corners from flags, prompting for
// whatever is missing.
func resolveInputs(opts RunOptions) (time.Time, [4]region.Corner, error) {
	var (
		date    time.Time
		corners [4]region.Corner
		err     error
	)
	p := prompt.New(stdin, out)

	if opts.Date != "" {
		date, err = time.Parse(prompt.DateLayout, opts.Date)
		if err != nil {
			return date, corners, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
	} else if date, err = p.Date(); err != nil {
		return date, corners, err
	}

	if len(opts.Corners) > 0 {
		corners, err = ParseCorners(opts.Corners)
	} else {
		corners, err = p.Corners()
	}
	return date, corners, err
}
