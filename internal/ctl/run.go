package ctl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/large-farva/footprint/internal/pipeline"
	"github.com/large-farva/footprint/internal/region"
)

// RunOptions controls the run and local commands.
type RunOptions struct {
	Date     string   // YYYY-MM-DD; prompted for when empty
	Interval int      // minutes; 0 uses the configured default
	Corners  []string // "lat,lon" x4; prompted for when empty
	Limit    int      // max hit lines printed; 0 prints all
	JSON     bool
}

// ParseCorners turns four "lat,lon" strings into corners.
func ParseCorners(specs []string) ([4]region.Corner, error) {
	var c [4]region.Corner
	if len(specs) != 4 {
		return c, fmt.Errorf("need exactly 4 corners, got %d", len(specs))
	}
	for i, s := range specs {
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return c, fmt.Errorf("corner %d: want lat,lon, got %q", i+1, s)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return c, fmt.Errorf("corner %d latitude: %w", i+1, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return c, fmt.Errorf("corner %d longitude: %w", i+1, err)
		}
		c[i] = region.Corner{Lat: lat, Lon: lon}
	}
	return c, nil
}

// Run asks the daemon to compute a footprint and prints the hits.
func Run(baseURL string, opts RunOptions) error {
	date, corners, err := resolveInputs(opts)
	if err != nil {
		return err
	}

	body := map[string]any{
		"start_date":       date.Format("2006-01-02"),
		"interval_minutes": opts.Interval,
		"corners":          cornerPairs(corners),
	}
	var res pipeline.Result
	if err := postJSON(runClient, strings.TrimRight(baseURL, "/"), "/api/run", body, &res); err != nil {
		return err
	}
	return printResult(&res, opts)
}

func cornerPairs(c [4]region.Corner) [][2]float64 {
	out := make([][2]float64, len(c))
	for i, p := range c {
		out[i] = [2]float64{p.Lat, p.Lon}
	}
	return out
}

// printResult writes the run summary followed by one line per hit.
func printResult(res *pipeline.Result, opts RunOptions) error {
	if opts.JSON {
		return printJSON(res)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  FOOTPRINT RUN"))
	fmt.Fprintln(out, rule(50))
	fmt.Fprintf(out, "  %-12s %s, %d epochs every %d min\n", colorize(dim, "Day:"),
		res.Start.Format("2006-01-02"), res.Epochs, res.IntervalMinutes)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Region:"), res.Rect)
	fmt.Fprintf(out, "  %-12s %d from %s\n", colorize(dim, "Satellites:"), res.Satellites, res.Source)
	fmt.Fprintf(out, "  %-12s %d valid, %d invalid\n", colorize(dim, "Samples:"), res.ValidSamples, res.InvalidSamples)
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "  %-12s %s: %s\n", colorize(yellow, "Skipped:"), s.Name, s.Reason)
	}
	fmt.Fprintf(out, "  %-12s %d in %s\n", colorize(dim, "Hits:"), len(res.Hits), res.Duration.Round(time.Millisecond))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Filtered positions within the rectangle:")
	for i, h := range res.Hits {
		if opts.Limit > 0 && i >= opts.Limit {
			fmt.Fprintf(out, "... %d more\n", len(res.Hits)-opts.Limit)
			break
		}
		fmt.Fprintf(out, "Longitude: %v, Latitude: %v\n", h.Lon, h.Lat)
	}
	return nil
}
