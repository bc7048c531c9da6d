// Package includes keeps the shared helper bundle fresh. The bundle changes
// rarely but is needed by almost every cached script at execution time, so it
// is re-fetched on a 24h TTL instead of a per-file checksum handshake.
package includes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	// RequiredFile must download for a sync to succeed.
	RequiredFile = "main.sh"
	// OptionalFile is fetched best-effort.
	OptionalFile = "repository.sh"

	// MarkerFile records origin and fetch time in one file so the pair
	// always updates atomically.
	MarkerFile = ".bundle.json"

	// TTL is how long a bundle stays fresh for an unchanged origin.
	TTL = 24 * time.Hour
)

type marker struct {
	Origin    string    `json:"origin"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetcher retrieves raw bytes from a URL. Satisfied by manifest.Client.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Option configures a Syncer.
type Option func(*Syncer)

// Syncer downloads and refreshes the includes bundle.
type Syncer struct {
	fetcher Fetcher
	log     *zap.Logger
	now     func() time.Time
}

// NewSyncer creates a bundle syncer.
func NewSyncer(fetcher Fetcher, opts ...Option) *Syncer {
	s := &Syncer{
		fetcher: fetcher,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithLogger sets the activity logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Syncer) { s.log = log }
}

// WithClock sets the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// AreFresh reports whether the bundle at dir was fetched from originURL
// within the TTL. A bundle from a different origin is never fresh, no matter
// how recent.
func (s *Syncer) AreFresh(originURL, dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		return false
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	if m.Origin != originURL {
		return false
	}
	return s.now().Sub(m.FetchedAt) < TTL
}

// Sync refreshes the bundle from originURL unless it is already fresh.
// The required file must download; the optional file is best-effort. The
// marker is rewritten as the last step so a crash mid-download never leaves
// a half-written bundle marked fresh.
func (s *Syncer) Sync(ctx context.Context, originURL, dir string) error {
	if s.AreFresh(originURL, dir) {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating includes dir: %w", err)
	}

	if err := s.downloadFile(ctx, originURL, dir, RequiredFile); err != nil {
		return fmt.Errorf("syncing includes: %w", err)
	}

	if err := s.downloadFile(ctx, originURL, dir, OptionalFile); err != nil {
		s.log.Warn("optional includes file skipped",
			zap.String("file", OptionalFile), zap.Error(err))
	}

	m := marker{Origin: originURL, FetchedAt: s.now()}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling includes marker: %w", err)
	}
	markerPath := filepath.Join(dir, MarkerFile)
	tmpPath := markerPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing includes marker: %w", err)
	}
	if err := os.Rename(tmpPath, markerPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving includes marker: %w", err)
	}

	s.log.Info("includes bundle refreshed", zap.String("origin", originURL))
	return nil
}

func (s *Syncer) downloadFile(ctx context.Context, originURL, dir, name string) error {
	data, err := s.fetcher.FetchBytes(ctx, originURL+"/includes/"+name)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return nil
}
