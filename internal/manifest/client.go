package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/scripthub/scripthub/internal/config"
	"github.com/scripthub/scripthub/internal/errs"
	"github.com/scripthub/scripthub/internal/paths"
)

const maxResponseSize = 10 << 20 // 10 MB

// EnvRepository overrides the configured repository origin when set.
// Only a pinned client override ranks above it.
const EnvRepository = "SCRIPTHUB_REPOSITORY"

// ManifestFileName is the manifest's path relative to the repository origin.
const ManifestFileName = "manifest.json"

// Option configures a Client.
type Option func(*Client)

// Client resolves the repository origin, fetches the manifest, and owns the
// persisted manifest plus its fetch metadata.
type Client struct {
	paths      paths.Paths
	cfgStore   *config.Store
	httpClient *http.Client
	log        *zap.Logger
	now        func() time.Time
	override   string
}

// NewClient creates a manifest client rooted at the given paths.
func NewClient(p paths.Paths, cfgStore *config.Store, opts ...Option) *Client {
	c := &Client{
		paths:      p,
		cfgStore:   cfgStore,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the activity logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithClock sets the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRepositoryOverride pins the repository origin for this client's
// lifetime. The override is never written to config.json.
func WithRepositoryOverride(url string) Option {
	return func(c *Client) { c.override = url }
}

// ResolveRepositoryURL returns the effective repository origin. The priority
// chain is: one-shot override, environment, config, the URL declared by the
// cached manifest, then the hardcoded default. The chain performs no writes
// so repeated calls within one operation cannot drift.
func (c *Client) ResolveRepositoryURL(cfg *config.Config) string {
	if c.override != "" {
		return strings.TrimRight(c.override, "/")
	}
	if env := os.Getenv(EnvRepository); env != "" {
		return strings.TrimRight(env, "/")
	}
	if cfg != nil && cfg.RepositoryURL != "" {
		return strings.TrimRight(cfg.RepositoryURL, "/")
	}
	if m, err := c.LoadCached(); err == nil && m.RepositoryURL != "" {
		return strings.TrimRight(m.RepositoryURL, "/")
	}
	return config.DefaultRepositoryURL
}

// Fetch refreshes the manifest from the resolved repository origin.
func (c *Client) Fetch(ctx context.Context, cfg *config.Config) (*Manifest, error) {
	origin := c.ResolveRepositoryURL(cfg)
	return c.FetchFrom(ctx, cfg, origin+"/"+ManifestFileName)
}

// FetchFrom downloads and parses the manifest at the given URL. The fetch is
// all-or-nothing: transport and parse failures leave the previously cached
// manifest untouched. On success the manifest, its fetch metadata, and the
// config's last_update_check are committed together.
func (c *Client) FetchFrom(ctx context.Context, cfg *config.Config, url string) (*Manifest, error) {
	data, err := c.FetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	m, err := parse(url, data)
	if err != nil {
		return nil, err
	}

	if err := c.persist(m); err != nil {
		return nil, err
	}

	if cfg != nil {
		now := c.now()
		cfg.LastUpdateCheck = &now
		if err := c.cfgStore.Save(cfg); err != nil {
			return nil, fmt.Errorf("recording update check: %w", err)
		}
	}

	c.log.Info("manifest refreshed",
		zap.String("url", url),
		zap.String("version", m.RepositoryVersion),
		zap.Int("scripts", len(m.Scripts)))

	return m, nil
}

// FetchBytes retrieves raw bytes from an http(s) URL or a file:// URI with a
// bounded timeout. Used for the manifest, script downloads, and includes.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &errs.TransportError{URL: url, Err: err}
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &errs.TransportError{URL: url, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errs.TransportError{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &errs.TransportError{URL: url, Err: err}
	}

	return data, nil
}

// parse decodes manifest bytes as JSON, falling back to YAML for
// repositories that serve manifest.yml, and validates the result.
func parse(source string, data []byte) (*Manifest, error) {
	var m Manifest
	if jsonErr := json.Unmarshal(data, &m); jsonErr != nil {
		m = Manifest{}
		if yamlErr := yaml.Unmarshal(data, &m); yamlErr != nil {
			return nil, &errs.ParseError{Source: source, Err: jsonErr}
		}
	}
	if err := m.Validate(); err != nil {
		return nil, &errs.ParseError{Source: source, Err: err}
	}
	return &m, nil
}

// persist writes the manifest and its metadata atomically, manifest first.
func (c *Client) persist(m *Manifest) error {
	if err := writeJSON(c.paths.ManifestFile, m); err != nil {
		return fmt.Errorf("persisting manifest: %w", err)
	}
	meta := Metadata{LastFetch: c.now(), ManifestVersion: m.RepositoryVersion}
	if err := writeJSON(c.paths.ManifestMetaFile, &meta); err != nil {
		return fmt.Errorf("persisting manifest metadata: %w", err)
	}
	return nil
}

// LoadCached reads the last persisted manifest. A corrupt file is an error,
// never an empty manifest: an empty manifest would make every cached script
// look up to date and mask real staleness.
func (c *Client) LoadCached() (*Manifest, error) {
	data, err := os.ReadFile(c.paths.ManifestFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no cached manifest: %w", err)
		}
		return nil, fmt.Errorf("reading cached manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errs.ParseError{Source: c.paths.ManifestFile, Err: err}
	}
	if err := m.Validate(); err != nil {
		return nil, &errs.ParseError{Source: c.paths.ManifestFile, Err: err}
	}
	return &m, nil
}

// LoadMetadata reads the persisted fetch metadata.
func (c *Client) LoadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(c.paths.ManifestMetaFile)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &errs.ParseError{Source: c.paths.ManifestMetaFile, Err: err}
	}
	return &meta, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
