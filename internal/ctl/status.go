package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DataRoot      string `json:"data_root"`
	Engine        string `json:"engine"`
	Backend       string `json:"backend"`
	WSClients     int    `json:"ws_clients"`
	LastRun       *struct {
		Run        uint64  `json:"run"`
		OK         bool    `json:"ok"`
		Error      string  `json:"error"`
		FinishedAt string  `json:"finished_at"`
		Satellites int     `json:"satellites"`
		Skipped    int     `json:"skipped"`
		Hits       int     `json:"hits"`
		Seconds    float64 `json:"seconds"`
	} `json:"last_run"`
	Disk *struct {
		TotalBytes     int64   `json:"total_bytes"`
		AvailableBytes int64   `json:"available_bytes"`
		UsedPercent    float64 `json:"used_percent"`
	} `json:"disk"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  FOOTPRINT STATUS"))
	fmt.Fprintln(out, rule(38))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "State:"), colorize(stateColor(s.State), s.State))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Fprintf(out, "  %-12s %s / %s\n", colorize(dim, "Compute:"), s.Engine, s.Backend)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Data:"), s.DataRoot)
	if s.Disk != nil {
		fmt.Fprintf(out, "  %-12s %s free (%.0f%% used)\n", colorize(dim, "Disk:"),
			formatBytes(s.Disk.AvailableBytes), s.Disk.UsedPercent)
	}
	fmt.Fprintf(out, "  %-12s %d\n", colorize(dim, "Watchers:"), s.WSClients)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Host:"), baseURL)

	if lr := s.LastRun; lr != nil {
		fmt.Fprintln(out)
		if lr.OK {
			fmt.Fprintf(out, "  %-12s #%d %s  %d satellites, %d skipped, %d hits in %.2fs\n",
				colorize(dim, "Last run:"), lr.Run, colorize(green, "OK"), lr.Satellites, lr.Skipped, lr.Hits, lr.Seconds)
		} else {
			fmt.Fprintf(out, "  %-12s %s  %s\n", colorize(dim, "Last run:"), colorize(red, "FAILED"), lr.Error)
		}
	}
	fmt.Fprintln(out)

	return nil
}
