package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

//go:embed default.tle
var embeddedCatalog string

// CacheFile is the name of the cached upstream catalog under the data root.
const CacheFile = "catalog.tle"

// Source names where a dataset came from.
type Source string

const (
	SourceFile     Source = "file"
	SourceCache    Source = "cache"
	SourceNetwork  Source = "network"
	SourceStale    Source = "stale-cache"
	SourceEmbedded Source = "embedded"
)

// Dataset is a parsed catalog plus its provenance.
type Dataset struct {
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Framing   string    `json:"framing"`
	Records   []Record  `json:"records"`
}

// StoreOptions configures a Store.
type StoreOptions struct {
	Path         string // optional local catalog that short-circuits the chain
	URL          string
	DataRoot     string
	RefreshHours int
	Framing      Framing
	Client       *http.Client
}

// Store fetches and caches the satellite catalog. Lookup order is: a local
// file if configured, fresh disk cache, network, stale disk cache, and
// finally the sample catalog embedded in the binary.
type Store struct {
	path     string
	url      string
	dataRoot string
	maxAge   time.Duration
	framing  Framing
	client   *http.Client
}

// NewStore returns a store for the given options.
func NewStore(opts StoreOptions) *Store {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Store{
		path:     opts.Path,
		url:      opts.URL,
		dataRoot: opts.DataRoot,
		maxAge:   time.Duration(opts.RefreshHours) * time.Hour,
		framing:  opts.Framing,
		client:   client,
	}
}

// CachePath returns the location of the disk cache.
func (s *Store) CachePath() string {
	return filepath.Join(s.dataRoot, CacheFile)
}

// Fetch walks the fallback chain and parses the first catalog found.
// A catalog that is found but does not parse is a hard error: falling
// through to older data would hide the problem.
func (s *Store) Fetch(ctx context.Context) (*Dataset, error) {
	raw, src, err := s.loadOrFetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.parse(raw, src)
}

// ForceRefresh bypasses the caches and pulls the catalog from the network.
func (s *Store) ForceRefresh(ctx context.Context) (*Dataset, error) {
	body, err := s.fetchFromNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog refresh: %w", err)
	}
	ds, err := s.parse(body, SourceNetwork)
	if err != nil {
		return nil, err
	}
	_ = s.writeCache(s.CachePath(), body)
	return ds, nil
}

func (s *Store) parse(raw string, src Source) (*Dataset, error) {
	records, err := ParseString(raw, s.framing)
	if err != nil {
		return nil, fmt.Errorf("%s catalog: %w", src, err)
	}
	return &Dataset{
		Source:    src,
		FetchedAt: time.Now().UTC(),
		Framing:   s.framing.String(),
		Records:   records,
	}, nil
}

func (s *Store) loadOrFetch(ctx context.Context) (string, Source, error) {
	// Tier 0: explicitly configured local file
	if s.path != "" {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return "", "", fmt.Errorf("read catalog %s: %w", s.path, err)
		}
		return string(b), SourceFile, nil
	}

	cachePath := s.CachePath()

	// Tier 1: fresh disk cache
	info, err := os.Stat(cachePath)
	if err == nil && time.Since(info.ModTime()) < s.maxAge {
		if b, readErr := os.ReadFile(cachePath); readErr == nil && len(b) > 0 {
			return string(b), SourceCache, nil
		}
	}

	// Tier 2: network
	var fetchErr error
	if s.url != "" {
		var body string
		body, fetchErr = s.fetchFromNetwork(ctx)
		if fetchErr == nil {
			_ = s.writeCache(cachePath, body)
			return body, SourceNetwork, nil
		}
	}

	// Tier 3: stale disk cache
	if b, readErr := os.ReadFile(cachePath); readErr == nil && len(b) > 0 {
		return string(b), SourceStale, nil
	}

	// Tier 4: embedded sample catalog
	if embeddedCatalog != "" {
		return embeddedCatalog, SourceEmbedded, nil
	}

	if fetchErr == nil {
		fetchErr = fmt.Errorf("no catalog url configured")
	}
	return "", "", fmt.Errorf("all catalog sources exhausted: %w", fetchErr)
}

func (s *Store) fetchFromNetwork(ctx context.Context) (string, error) {
	if s.url == "" {
		return "", fmt.Errorf("no catalog url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catalog fetch returned HTTP %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// writeCache writes via a temp file and rename so readers never see a
// partial catalog.
func (s *Store) writeCache(cachePath, data string) error {
	dir := filepath.Dir(cachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "catalog-*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), cachePath)
}

// CacheInfo describes the on-disk cache.
type CacheInfo struct {
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	Fresh     bool   `json:"fresh"`
	ModTime   string `json:"mod_time,omitempty"`
	AgeS      int    `json:"age_s"`
	Size      int64  `json:"size"`
	SourceURL string `json:"source_url"`
	LocalPath string `json:"local_path,omitempty"`
	MaxAgeH   int    `json:"max_age_hours"`
}

// Info reports the state of the disk cache without fetching anything.
func (s *Store) Info() CacheInfo {
	ci := CacheInfo{
		Path:      s.CachePath(),
		SourceURL: s.url,
		LocalPath: s.path,
		MaxAgeH:   int(s.maxAge.Hours()),
	}
	info, err := os.Stat(ci.Path)
	if err != nil {
		return ci
	}
	age := time.Since(info.ModTime())
	ci.Exists = true
	ci.Fresh = age < s.maxAge
	ci.ModTime = info.ModTime().UTC().Format(time.RFC3339)
	ci.AgeS = int(age.Seconds())
	ci.Size = info.Size()
	return ci
}
