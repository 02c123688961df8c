package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	issLine1  = "1 25544U 98067A   25146.54650260  .00010397  00000+0  19155-3 0  9999"
	issLine2  = "2 25544  51.6382  54.2937 0002241 147.4648 271.6158 15.49752720511807"
	noaaLine1 = "1 33591U 09005A   25146.50000000  .00000090  00000+0  72000-4 0  9999"
	noaaLine2 = "2 33591  99.1900 180.0000 0013900 250.0000 110.0000 14.12500000840007"
)

func TestParseFramings(t *testing.T) {
	twoLine := issLine1 + "\n" + issLine2 + "\n" + noaaLine1 + "\n" + noaaLine2 + "\n"
	threeLine := "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\nNOAA 19\n" + noaaLine1 + "\n" + noaaLine2 + "\n"
	mixed := "ISS (ZARYA)\r\n" + issLine1 + "\r\n" + issLine2 + "\r\n\r\n" + noaaLine1 + "\r\n" + noaaLine2 + "\r\n"

	tests := []struct {
		name      string
		raw       string
		framing   Framing
		wantNames []string
	}{
		{"two-line explicit", twoLine, FramingTwoLine, []string{"", ""}},
		{"two-line auto", twoLine, FramingAuto, []string{"", ""}},
		{"three-line explicit", threeLine, FramingThreeLine, []string{"ISS (ZARYA)", "NOAA 19"}},
		{"three-line auto", threeLine, FramingAuto, []string{"ISS (ZARYA)", "NOAA 19"}},
		{"mixed auto with CRLF and blank lines", mixed, FramingAuto, []string{"ISS (ZARYA)", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := ParseString(tt.raw, tt.framing)
			if err != nil {
				t.Fatalf("ParseString: %v", err)
			}
			if len(recs) != len(tt.wantNames) {
				t.Fatalf("got %d records, want %d", len(recs), len(tt.wantNames))
			}
			if recs[0].NoradID != 25544 || recs[1].NoradID != 33591 {
				t.Errorf("catalog numbers = %d, %d", recs[0].NoradID, recs[1].NoradID)
			}
			for i, name := range tt.wantNames {
				if recs[i].Name != name {
					t.Errorf("record %d name = %q, want %q", i, recs[i].Name, name)
				}
			}
			if recs[0].Line1 != issLine1 || recs[0].Line2 != issLine2 {
				t.Errorf("record 0 lines not preserved")
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		framing Framing
		line    int
	}{
		{"empty", "\n\n", FramingAuto, 0},
		{"missing line 2", issLine1 + "\n", FramingAuto, 1},
		{"name without elements", "ISS\n" + issLine1 + "\n", FramingAuto, 1},
		{"short line", "ISS\n" + issLine1[:60] + "\n" + issLine2 + "\n", FramingThreeLine, 2},
		{"swapped lines", issLine2 + "\n" + issLine1 + "\n", FramingTwoLine, 1},
		{"three-line framing over bare records", issLine1 + "\n" + issLine2 + "\n" + noaaLine1 + "\n", FramingThreeLine, 1},
		{"mismatched catalog numbers", issLine1 + "\n" + noaaLine2 + "\n", FramingTwoLine, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.raw, tt.framing)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if pe.Line != tt.line {
				t.Errorf("error line = %d, want %d (%v)", pe.Line, tt.line, pe)
			}
		})
	}
}

func TestDetectFraming(t *testing.T) {
	if f := DetectFraming("\n" + issLine1 + "\n" + issLine2); f != FramingTwoLine {
		t.Errorf("bare catalog detected as %v", f)
	}
	if f := DetectFraming("ISS\n" + issLine1 + "\n" + issLine2); f != FramingThreeLine {
		t.Errorf("named catalog detected as %v", f)
	}
	if f := DetectFraming("   \n"); f != FramingAuto {
		t.Errorf("empty catalog detected as %v", f)
	}
}

func TestParseFraming(t *testing.T) {
	for in, want := range map[string]Framing{"": FramingAuto, "auto": FramingAuto, "2line": FramingTwoLine, "3LINE": FramingThreeLine} {
		got, err := ParseFraming(in)
		if err != nil || got != want {
			t.Errorf("ParseFraming(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFraming("4line"); err == nil {
		t.Error("expected error for unknown framing")
	}
}

func TestEmbeddedCatalogParses(t *testing.T) {
	recs, err := ParseString(embeddedCatalog, FramingAuto)
	if err != nil {
		t.Fatalf("embedded catalog: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("embedded catalog is empty")
	}
}

func TestStoreLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sats.txt")
	if err := os.WriteFile(path, []byte(issLine1+"\n"+issLine2+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(StoreOptions{Path: path, DataRoot: dir, RefreshHours: 24})
	ds, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if ds.Source != SourceFile || len(ds.Records) != 1 {
		t.Errorf("got source %s with %d records", ds.Source, len(ds.Records))
	}
}

func TestStoreNetworkThenCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("NOAA 19\n" + noaaLine1 + "\n" + noaaLine2 + "\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewStore(StoreOptions{URL: srv.URL, DataRoot: dir, RefreshHours: 24})

	ds, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	if ds.Source != SourceNetwork {
		t.Errorf("first fetch source = %s, want network", ds.Source)
	}

	ds, err = s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if ds.Source != SourceCache {
		t.Errorf("second fetch source = %s, want cache", ds.Source)
	}
	if hits != 1 {
		t.Errorf("network hits = %d, want 1", hits)
	}

	info := s.Info()
	if !info.Exists || !info.Fresh || info.Size == 0 {
		t.Errorf("unexpected cache info: %+v", info)
	}
}

func TestStoreFallsBackToEmbedded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewStore(StoreOptions{URL: srv.URL, DataRoot: t.TempDir(), RefreshHours: 1})
	ds, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if ds.Source != SourceEmbedded {
		t.Errorf("source = %s, want embedded", ds.Source)
	}

	if _, err := s.ForceRefresh(context.Background()); err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("ForceRefresh error = %v, want HTTP 503", err)
	}
}

func TestStoreRejectsBadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte(issLine1+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewStore(StoreOptions{Path: path, DataRoot: dir}).Fetch(context.Background())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected wrapped ParseError, got %v", err)
	}
}
