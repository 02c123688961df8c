package ctl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// wsURL rewrites the daemon base URL to its /ws endpoint.
func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Watch connects to the daemon's WebSocket endpoint and streams events to
// the terminal until interrupted.
func Watch(baseURL string, opts WatchOptions) error {
	target, err := wsURL(baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s %s\n", colorize(green, "connected"), colorize(dim, target))
		if len(opts.Filter) > 0 {
			fmt.Fprintf(out, "  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Fprintln(out, rule(50))
		fmt.Fprintln(out)
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !wanted(msg, filterSet) {
				continue
			}
			if opts.JSON {
				fmt.Fprintln(out, string(msg))
			} else {
				renderEvent(msg)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-sig:
		if !opts.JSON {
			fmt.Fprintln(out)
			fmt.Fprintln(out, colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(1*time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

func wanted(msg []byte, filter map[string]bool) bool {
	if len(filter) == 0 {
		return true
	}
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil {
		return true
	}
	return filter[ev.Type]
}

// renderEvent prints one event. Unrecognised types are dumped as JSON.
func renderEvent(raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Fprintf(out, "  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := colorize(dim, formatEventTime(ev))
	str := func(k string) string { s, _ := ev[k].(string); return s }
	num := func(k string) float64 { f, _ := ev[k].(float64); return f }

	switch evType {
	case "heartbeat":
		state := str("state")
		uptime := formatDuration(time.Duration(num("uptime_seconds")) * time.Second)
		fmt.Fprintf(out, "  %s %s  %s  up %s\n", ts, colorize(dim, "heartbeat"),
			colorize(stateColor(state), state), colorize(dim, uptime))

	case "state":
		fmt.Fprintf(out, "  %s %s  %s %s %s\n", ts, colorize(bold, "STATE"),
			colorize(stateColor(str("from")), str("from")), colorize(dim, "->"),
			colorize(stateColor(str("to")), str("to")))

	case "stage":
		fmt.Fprintf(out, "  %s %s  run #%.0f %s %s\n", ts, colorize(bold, "STAGE"),
			num("run"), colorize(dim, "->"), colorize(stateColor(str("to")), str("to")))

	case "progress":
		pct := num("percent")
		fmt.Fprintf(out, "  %s %s  [%s] %3.0f%%  %s\n", ts,
			colorize(cyan, padRight(str("stage"), 10)), progressBar(int(pct), 20), pct,
			colorize(dim, str("detail")))

	case "run":
		if ok, _ := ev["ok"].(bool); ok {
			fmt.Fprintf(out, "  %s %s  run #%.0f  %.0f satellites, %.0f skipped, %.0f hits in %.2fs\n",
				ts, colorize(green, "DONE "), num("run"), num("satellites"), num("skipped"), num("hits"), num("seconds"))
		} else {
			fmt.Fprintf(out, "  %s %s  run #%.0f  %s\n", ts, colorize(red, "FAIL "), num("run"), str("error"))
		}

	case "catalog":
		fmt.Fprintf(out, "  %s %s  %.0f records from %s\n", ts, colorize(blue, "CATALOG"),
			num("records"), str("source"))

	case "log":
		fmt.Fprintf(out, "  %s %s  %s\n", ts, formatLogLevel(str("level")), str("message"))

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Fprintf(out, "  %s\n", string(raw))
			return
		}
		fmt.Fprintf(out, "  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "        "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return tsRaw
	}
	return t.Local().Format("15:04:05")
}

// formatLogLevel returns a colored, fixed-width log level label.
func formatLogLevel(level string) string {
	switch level {
	case "info":
		return colorize(green, "INFO ")
	case "warn":
		return colorize(yellow, "WARN ")
	case "error":
		return colorize(red, "ERROR")
	default:
		return padRight(level, 5)
	}
}
