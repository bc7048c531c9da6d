package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigDir overrides the default config directory when set.
const EnvConfigDir = "SCRIPTHUB_CONFIG_DIR"

// Paths captures the canonical on-disk locations for scripthub state.
type Paths struct {
	Root             string
	ConfigFile       string
	ManifestFile     string
	ManifestMetaFile string
	CacheDir         string
	IncludesDir      string
	LogsDir          string
	LogFile          string
}

// Resolve determines the config root from the optional --config-dir flag,
// the SCRIPTHUB_CONFIG_DIR environment variable, or the per-user config
// directory, in that order.
func Resolve(dirFlag string) (Paths, error) {
	root := dirFlag
	if root == "" {
		root = os.Getenv(EnvConfigDir)
	}
	if root == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Paths{}, fmt.Errorf("resolve config dir: %w", err)
		}
		root = filepath.Join(base, "scripthub")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve config dir: %w", err)
	}

	return New(abs), nil
}

// New builds the path set rooted at the given directory.
func New(root string) Paths {
	cacheDir := filepath.Join(root, "script_cache")
	logsDir := filepath.Join(root, "logs")
	return Paths{
		Root:             root,
		ConfigFile:       filepath.Join(root, "config.json"),
		ManifestFile:     filepath.Join(root, "manifest.json"),
		ManifestMetaFile: filepath.Join(root, "manifest_metadata.json"),
		CacheDir:         cacheDir,
		IncludesDir:      filepath.Join(cacheDir, "includes"),
		LogsDir:          logsDir,
		LogFile:          filepath.Join(logsDir, "repository.log"),
	}
}

// EnsureDirs creates the root, cache and logs directories if missing.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.Root, p.CacheDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}
