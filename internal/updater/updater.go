// Package updater orchestrates the refresh cycle: decide whether a check is
// due, refresh the manifest, diff the cache, and apply stale updates.
package updater

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scripthub/scripthub/internal/config"
	"github.com/scripthub/scripthub/internal/includes"
	"github.com/scripthub/scripthub/internal/manifest"
	"github.com/scripthub/scripthub/internal/scriptcache"
)

// Report summarizes one refresh cycle.
type Report struct {
	ManifestVersion string
	Checked         int
	Available       []manifest.ScriptEntry
	Updated         int
	Failed          int
	AutoInstalled   bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// Coordinator drives the manifest/cache refresh cycle.
type Coordinator struct {
	client      *manifest.Client
	cache       *scriptcache.Cache
	includes    *includes.Syncer
	includesDir string
	log         *zap.Logger
	now         func() time.Time
}

// NewCoordinator wires the refresh cycle's collaborators together.
func NewCoordinator(client *manifest.Client, cache *scriptcache.Cache, inc *includes.Syncer, includesDir string, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:      client,
		cache:       cache,
		includes:    inc,
		includesDir: includesDir,
		log:         zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sets the activity logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithClock sets the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// IsCheckDue reports whether an update check should run: true when no check
// has ever run, or when the configured interval has elapsed since the last.
func (c *Coordinator) IsCheckDue(cfg *config.Config) bool {
	if cfg.LastUpdateCheck == nil {
		return true
	}
	interval := time.Duration(cfg.UpdateCheckIntervalMinutes) * time.Minute
	return c.now().Sub(*cfg.LastUpdateCheck) >= interval
}

// CheckForUpdates refreshes the manifest, diffs every entry against the
// cache, and returns the entries that are present but outdated. When
// auto_install_updates is enabled the stale entries are updated in place
// before returning. A failed fetch keeps the old manifest and returns the
// error unchanged.
func (c *Coordinator) CheckForUpdates(ctx context.Context, cfg *config.Config) (*Report, error) {
	m, err := c.client.Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// The includes bundle follows the resolved origin; it re-syncs itself
	// when the origin changed or the TTL expired. Failures here do not
	// fail the check.
	origin := c.client.ResolveRepositoryURL(cfg)
	if syncErr := c.includes.Sync(ctx, origin, c.includesDir); syncErr != nil {
		c.log.Warn("includes sync failed", zap.Error(syncErr))
	}

	report := &Report{
		ManifestVersion: m.RepositoryVersion,
		Checked:         len(m.Scripts),
	}
	report.Available = c.diff(m)

	if cfg.AutoInstallUpdates && len(report.Available) > 0 {
		report.Updated, report.Failed = c.cache.UpdateStaleOnly(ctx, report.Available)
		report.AutoInstalled = true
	}

	c.log.Info("update check completed",
		zap.Int("checked", report.Checked),
		zap.Int("available", len(report.Available)),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed))

	return report, nil
}

// SyncIncludes refreshes the includes bundle for the given origin. It is a
// no-op while the bundle is fresh.
func (c *Coordinator) SyncIncludes(ctx context.Context, origin string) error {
	return c.includes.Sync(ctx, origin, c.includesDir)
}

// ListAvailableUpdates is the read-only variant of the diff: it inspects the
// cached manifest and performs no fetches or writes.
func (c *Coordinator) ListAvailableUpdates() ([]manifest.ScriptEntry, error) {
	m, err := c.client.LoadCached()
	if err != nil {
		return nil, err
	}
	return c.diff(m), nil
}

// diff returns the manifest entries that are cached but outdated.
func (c *Coordinator) diff(m *manifest.Manifest) []manifest.ScriptEntry {
	var stale []manifest.ScriptEntry
	for i := range m.Scripts {
		status, err := c.cache.Status(&m.Scripts[i])
		if err != nil {
			c.log.Warn("status check failed",
				zap.String("id", m.Scripts[i].ID), zap.Error(err))
			continue
		}
		if status == scriptcache.Outdated {
			stale = append(stale, m.Scripts[i])
		}
	}
	return stale
}
