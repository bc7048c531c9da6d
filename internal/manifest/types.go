package manifest

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/scripthub/scripthub/internal/errs"
)

// Category partitions scripts in the cache directory tree.
type Category string

const (
	CategoryInstall   Category = "install"
	CategoryTools     Category = "tools"
	CategoryExercises Category = "exercises"
	CategoryUninstall Category = "uninstall"
)

// Categories lists every valid category.
var Categories = []Category{CategoryInstall, CategoryTools, CategoryExercises, CategoryUninstall}

// Manifest is the authoritative document listing all available scripts.
// It is immutable once fetched and replaced wholesale on each refresh.
type Manifest struct {
	RepositoryVersion string        `json:"repository_version" yaml:"repository_version" validate:"required"`
	RepositoryURL     string        `json:"repository_url,omitempty" yaml:"repository_url,omitempty"`
	Scripts           []ScriptEntry `json:"scripts" yaml:"scripts"`
}

// ScriptEntry is one manifest record. The checksum always refers to the
// exact bytes at DownloadURL.
type ScriptEntry struct {
	ID           string   `json:"id" yaml:"id" validate:"required"`
	Name         string   `json:"name" yaml:"name" validate:"required"`
	Category     Category `json:"category" yaml:"category" validate:"required,oneof=install tools exercises uninstall"`
	FileName     string   `json:"file_name" yaml:"file_name" validate:"required"`
	Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	DownloadURL  string   `json:"download_url" yaml:"download_url" validate:"required,url"`
	Checksum     string   `json:"checksum" yaml:"checksum" validate:"required"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Metadata is the sidecar fetch record persisted next to the manifest.
type Metadata struct {
	LastFetch       time.Time `json:"last_fetch"`
	ManifestVersion string    `json:"manifest_version"`
}

var validate = validator.New()

// Validate checks structural validity: required fields, known categories,
// and id uniqueness.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	seen := make(map[string]bool, len(m.Scripts))
	for i := range m.Scripts {
		e := &m.Scripts[i]
		if err := validate.Struct(e); err != nil {
			return fmt.Errorf("script %q: %w", e.ID, err)
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate script id %q", e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// Find returns the entry with the given id.
func (m *Manifest) Find(id string) (*ScriptEntry, error) {
	for i := range m.Scripts {
		if m.Scripts[i].ID == id {
			return &m.Scripts[i], nil
		}
	}
	return nil, &errs.NotFoundError{ID: id}
}
