// Package scriptcache maps manifest entries to files in the local
// category-partitioned cache and keeps them consistent with the manifest.
package scriptcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/scripthub/scripthub/internal/checksum"
	"github.com/scripthub/scripthub/internal/errs"
	"github.com/scripthub/scripthub/internal/manifest"
)

// Status describes a cache entry relative to the current manifest.
type Status int

const (
	// NotInstalled means no file exists at the entry's cache path.
	NotInstalled Status = iota
	// Cached means the on-disk digest matches the manifest checksum.
	Cached
	// Outdated means a file exists but its digest no longer matches.
	Outdated
)

func (s Status) String() string {
	switch s {
	case Cached:
		return "cached"
	case Outdated:
		return "outdated"
	default:
		return "not installed"
	}
}

// Fetcher retrieves raw bytes from a URL. Satisfied by manifest.Client.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Option configures a Cache.
type Option func(*Cache)

// Cache is the on-disk script cache rooted at script_cache/.
type Cache struct {
	root    string
	fetcher Fetcher
	verify  bool
	log     *zap.Logger
}

// New creates a cache rooted at the given directory.
func New(root string, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		root:    root,
		fetcher: fetcher,
		verify:  true,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithVerification toggles checksum verification of downloads.
func WithVerification(v bool) Option {
	return func(c *Cache) { c.verify = v }
}

// WithLogger sets the activity logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// validateFileName rejects names that could escape the category directory.
func validateFileName(name string) error {
	if name == "" {
		return fmt.Errorf("empty file name")
	}
	cleaned := filepath.Clean(name)
	if cleaned != name || strings.Contains(cleaned, "..") ||
		filepath.IsAbs(cleaned) || strings.ContainsRune(cleaned, filepath.Separator) {
		return fmt.Errorf("invalid file name: %q", name)
	}
	return nil
}

// PathFor returns the deterministic cache path for an entry. The file need
// not exist.
func (c *Cache) PathFor(entry *manifest.ScriptEntry) string {
	return filepath.Join(c.root, string(entry.Category), entry.FileName)
}

// IsCached reports whether a file exists at the entry's cache path.
func (c *Cache) IsCached(entry *manifest.ScriptEntry) bool {
	_, err := os.Stat(c.PathFor(entry))
	return err == nil
}

// Status compares the on-disk digest against the manifest checksum. The
// digest is recomputed on every call; no cached "last known good" flag is
// trusted across manifest refreshes.
func (c *Cache) Status(entry *manifest.ScriptEntry) (Status, error) {
	path := c.PathFor(entry)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return NotInstalled, nil
		}
		return NotInstalled, err
	}

	ok, err := checksum.Verify(path, entry.Checksum)
	if err != nil {
		return NotInstalled, fmt.Errorf("hashing %s: %w", path, err)
	}
	if ok {
		return Cached, nil
	}
	return Outdated, nil
}

// Download fetches the entry to a temporary file, verifies it, and only then
// moves it into place and marks it executable. On verification failure the
// temp file is discarded and any previously cached copy is left untouched.
func (c *Cache) Download(ctx context.Context, entry *manifest.ScriptEntry) error {
	if err := validateFileName(entry.FileName); err != nil {
		return err
	}

	path := c.PathFor(entry)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating category dir: %w", err)
	}

	data, err := c.fetcher.FetchBytes(ctx, entry.DownloadURL)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", entry.ID, err)
	}

	if c.verify {
		ok, verr := checksum.Verify(tmpPath, entry.Checksum)
		if verr != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("verifying %s: %w", entry.ID, verr)
		}
		if !ok {
			actual, _ := checksum.HashFile(tmpPath)
			os.Remove(tmpPath)
			return &errs.IntegrityError{Path: path, Expected: entry.Checksum, Actual: actual}
		}
	}

	if err := os.Chmod(tmpPath, 0o755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("marking %s executable: %w", entry.ID, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving %s: %w", entry.ID, err)
	}

	c.log.Info("script downloaded",
		zap.String("id", entry.ID),
		zap.String("path", path),
		zap.String("version", entry.Version))

	return nil
}

// DownloadAll downloads every entry unconditionally. Individual failures are
// counted and logged; one bad URL never blocks the rest of the batch.
func (c *Cache) DownloadAll(ctx context.Context, entries []manifest.ScriptEntry) (succeeded, failed int) {
	for i := range entries {
		if err := c.Download(ctx, &entries[i]); err != nil {
			c.log.Warn("download failed", zap.String("id", entries[i].ID), zap.Error(err))
			failed++
			continue
		}
		succeeded++
	}
	return succeeded, failed
}

// UpdateStaleOnly downloads only entries that are present but outdated.
// Scripts the user never installed are skipped, so a background update
// check cannot silently grow the cache.
func (c *Cache) UpdateStaleOnly(ctx context.Context, entries []manifest.ScriptEntry) (updated, failed int) {
	for i := range entries {
		status, err := c.Status(&entries[i])
		if err != nil {
			c.log.Warn("status check failed", zap.String("id", entries[i].ID), zap.Error(err))
			failed++
			continue
		}
		if status != Outdated {
			continue
		}
		if err := c.Download(ctx, &entries[i]); err != nil {
			c.log.Warn("update failed", zap.String("id", entries[i].ID), zap.Error(err))
			failed++
			continue
		}
		updated++
	}
	return updated, failed
}

// Clear removes every cached file. It refuses to run without the explicit
// confirm flag; the confirmation UX lives with the caller.
func (c *Cache) Clear(confirm bool) error {
	if !confirm {
		return fmt.Errorf("clear requires explicit confirmation")
	}
	if err := os.RemoveAll(c.root); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return fmt.Errorf("recreating cache dir: %w", err)
	}
	c.log.Info("cache cleared", zap.String("root", c.root))
	return nil
}
