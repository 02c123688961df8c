package ctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Health checks daemon liveness via GET /healthz. With detailed set the
// per-component checks are fetched and listed too.
func Health(baseURL string, jsonOutput, detailed bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var hdr http.Header
	if detailed || jsonOutput {
		hdr = http.Header{"Accept": []string{"application/json"}}
	}
	status, body, err := getRaw(baseURL, "/healthz", hdr)
	if err != nil {
		if jsonOutput {
			return printJSON(map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}

	var report struct {
		Healthy bool                      `json:"healthy"`
		Checks  map[string]map[string]any `json:"checks"`
	}
	if hdr != nil {
		_ = json.Unmarshal(body, &report)
	}
	healthy := status == http.StatusOK

	if jsonOutput {
		return printJSON(map[string]any{"healthy": healthy, "url": baseURL, "checks": report.Checks})
	}

	fmt.Fprintln(out)
	if healthy {
		fmt.Fprintf(out, "  %s  footprintd is reachable at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
	} else {
		fmt.Fprintf(out, "  %s  footprintd returned HTTP %d at %s\n", colorize(red, "UNHEALTHY"), status, colorize(dim, baseURL))
	}

	if detailed && len(report.Checks) > 0 {
		names := make([]string, 0, len(report.Checks))
		for name := range report.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(out)
		for _, name := range names {
			c := report.Checks[name]
			mark := colorize(green, "ok  ")
			if ok, _ := c["ok"].(bool); !ok {
				mark = colorize(red, "FAIL")
			}
			detail := ""
			if e, ok := c["error"].(string); ok {
				detail = e
			} else if p, ok := c["path"].(string); ok {
				detail = p
			}
			fmt.Fprintf(out, "    %s  %s %s\n", mark, padRight(name, 14), colorize(dim, detail))
		}
	}
	fmt.Fprintln(out)

	return nil
}
