package ctl

import (
	"fmt"
	"strings"
	"time"
)

// CatalogResponse mirrors GET /api/catalog and POST /api/catalog/refresh.
type CatalogResponse struct {
	Source    string `json:"source"`
	FetchedAt string `json:"fetched_at"`
	Framing   string `json:"framing"`
	Count     int    `json:"count"`
	Records   []struct {
		Name    string `json:"name"`
		NoradID int    `json:"norad_id"`
	} `json:"records"`
	Cache struct {
		Path      string `json:"path"`
		Exists    bool   `json:"exists"`
		Fresh     bool   `json:"fresh"`
		ModTime   string `json:"mod_time"`
		AgeS      int    `json:"age_s"`
		Size      int64  `json:"size"`
		SourceURL string `json:"source_url"`
		LocalPath string `json:"local_path"`
		MaxAgeH   int    `json:"max_age_hours"`
	} `json:"cache"`
}

// Catalog lists the satellites the daemon would propagate and where the
// element set came from.
func Catalog(baseURL string, jsonOutput bool) error {
	var resp CatalogResponse
	if err := getJSON(strings.TrimRight(baseURL, "/"), "/api/catalog", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}
	printCatalog(resp, "SATELLITE CATALOG")
	return nil
}

// CatalogRefresh forces the daemon to download a fresh element set.
func CatalogRefresh(baseURL string, jsonOutput bool) error {
	var resp CatalogResponse
	err := postJSON(runClient, strings.TrimRight(baseURL, "/"), "/api/catalog/refresh", nil, &resp)
	if jsonOutput {
		if err != nil {
			return printJSON(map[string]any{"ok": false, "error": err.Error()})
		}
		return printJSON(resp)
	}
	if err != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s  %s\n", colorize(red, "FAILED"), err)
		fmt.Fprintln(out)
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s  %d records from %s\n", colorize(green, "REFRESHED"), resp.Count, resp.Cache.SourceURL)
	fmt.Fprintln(out)
	return nil
}

func printCatalog(resp CatalogResponse, title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  "+title))
	fmt.Fprintln(out, rule(50))
	fmt.Fprintf(out, "  %-12s %s (%s framing)\n", colorize(dim, "Source:"), resp.Source, resp.Framing)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Loaded:"), resp.FetchedAt)

	c := resp.Cache
	switch {
	case c.LocalPath != "":
		fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "File:"), c.LocalPath)
	case !c.Exists:
		fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Cache:"), colorize(red, "NOT FOUND"))
	default:
		state := colorize(green, "FRESH")
		if !c.Fresh {
			state = colorize(yellow, "STALE")
		}
		fmt.Fprintf(out, "  %-12s %s, %s old, %s (max %dh)\n", colorize(dim, "Cache:"), state,
			formatDuration(time.Duration(c.AgeS)*time.Second), formatBytes(c.Size), c.MaxAgeH)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s  %s\n", colorize(dim, padRight("NORAD", 7)), colorize(dim, "NAME"))
	for _, r := range resp.Records {
		fmt.Fprintf(out, "  %s  %s\n", padRight(fmt.Sprint(r.NoradID), 7), r.Name)
	}
	fmt.Fprintf(out, "\n  %d satellites\n\n", resp.Count)
}
