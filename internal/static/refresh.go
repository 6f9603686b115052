package static

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pfederi/Next-Wave-sub001/internal/static/gtfs"
)

// Manifest records when a cached feed was last downloaded and imported
type Manifest struct {
	UpdatedAt string `json:"updated_at"`
	SourceURL string `json:"source_url"`
	Network   string `json:"network"`
}

// RefreshConfig configures a Refresher
type RefreshConfig struct {
	URL      string
	Network  string
	CacheDir string
	MaxAge   time.Duration
}

// Refresher downloads a GTFS feed into the cache directory and re-imports it
// once the previous import is older than MaxAge
type Refresher struct {
	cfg        RefreshConfig
	store      GTFSStore
	parser     *gtfs.Parser
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

// NewRefresher creates a refresher. A nil httpClient uses a 5 minute timeout.
func NewRefresher(cfg RefreshConfig, store GTFSStore, httpClient *http.Client, logger *zap.Logger) *Refresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		cfg:        cfg,
		store:      store,
		parser:     gtfs.NewParser(logger),
		httpClient: httpClient,
		now:        time.Now,
		logger:     logger,
	}
}

func (r *Refresher) manifestPath() string {
	return filepath.Join(r.cfg.CacheDir, r.cfg.Network+"_manifest.json")
}

func (r *Refresher) zipPath() string {
	return filepath.Join(r.cfg.CacheDir, r.cfg.Network+"_gtfs.zip")
}

// RefreshIfStale downloads and imports the feed when the manifest is missing,
// unreadable, older than MaxAge or points at a different URL. It reports
// whether an import happened.
func (r *Refresher) RefreshIfStale(ctx context.Context) (bool, error) {
	if !r.isStaleOrMissing() {
		r.logger.Debug("static schedule is fresh, skipping refresh", zap.String("network", r.cfg.Network))
		return false, nil
	}

	if err := os.MkdirAll(r.cfg.CacheDir, 0o755); err != nil {
		return false, fmt.Errorf("create cache dir: %w", err)
	}

	r.logger.Info("refreshing static schedule", zap.String("network", r.cfg.Network), zap.String("url", r.cfg.URL))
	if err := r.download(ctx); err != nil {
		return false, err
	}

	stats, err := ImportFeed(ctx, r.store, r.parser, r.zipPath(), r.cfg.Network, r.logger)
	if err != nil {
		return false, fmt.Errorf("import %s: %w", r.cfg.Network, err)
	}
	r.logger.Info("static schedule imported",
		zap.String("network", r.cfg.Network),
		zap.Int("routes", stats.Routes),
		zap.Int("stop_times", stats.StopTimes))

	if err := r.writeManifest(); err != nil {
		return true, err
	}
	return true, nil
}

func (r *Refresher) isStaleOrMissing() bool {
	data, err := os.ReadFile(r.manifestPath())
	if err != nil {
		return true
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return true
	}
	if manifest.SourceURL != r.cfg.URL {
		return true
	}

	updatedAt, err := time.Parse(time.RFC3339, manifest.UpdatedAt)
	if err != nil {
		return true
	}
	return r.now().Sub(updatedAt) > r.cfg.MaxAge
}

// download writes to a temporary file first so a failed transfer keeps the
// previous zip intact
func (r *Refresher) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(r.cfg.CacheDir, r.cfg.Network+"-*.zip.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return os.Rename(tmp.Name(), r.zipPath())
}

func (r *Refresher) writeManifest() error {
	data, err := json.MarshalIndent(Manifest{
		UpdatedAt: r.now().UTC().Format(time.RFC3339),
		SourceURL: r.cfg.URL,
		Network:   r.cfg.Network,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.manifestPath(), data, 0o644)
}
