// Package config loads and persists the scripthub configuration file.
//
// The config is a single JSON object. A missing or unparseable file is
// treated as "config absent" and replaced with defaults; it is never a
// fatal error. Every write goes through a temp-file-then-rename so a
// concurrent reader never observes a torn file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultRepositoryURL is the fallback repository origin when no override
// is configured and no cached manifest declares one.
const DefaultRepositoryURL = "https://raw.githubusercontent.com/scripthub/scripts/main"

// Config represents config.json.
type Config struct {
	RepositoryURL              string     `json:"repository_url,omitempty"`
	UseRemoteScripts           bool       `json:"use_remote_scripts"`
	AutoCheckUpdates           bool       `json:"auto_check_updates"`
	AutoInstallUpdates         bool       `json:"auto_install_updates"`
	UpdateCheckIntervalMinutes int        `json:"update_check_interval_minutes"`
	LastUpdateCheck            *time.Time `json:"last_update_check"`
	VerifyChecksums            bool       `json:"verify_checksums"`
	CacheTimeoutDays           int        `json:"cache_timeout_days"`
}

// Default returns a fresh config with first-run defaults.
func Default() *Config {
	return &Config{
		UseRemoteScripts:           true,
		AutoCheckUpdates:           true,
		AutoInstallUpdates:         false,
		UpdateCheckIntervalMinutes: 1440,
		VerifyChecksums:            true,
		CacheTimeoutDays:           7,
	}
}

// Store reads and writes the config file.
type Store struct {
	path string
}

// NewStore creates a store for the given config file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Load reads the config file. A missing or corrupt file yields defaults,
// which are written back so the next reader sees a well-formed file.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.reinitialize()
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return s.reinitialize()
	}

	if c.UpdateCheckIntervalMinutes < 0 {
		c.UpdateCheckIntervalMinutes = 0
	}

	return &c, nil
}

func (s *Store) reinitialize() (*Config, error) {
	c := Default()
	if err := s.Save(c); err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	return c, nil
}

// Save writes the config atomically.
func (s *Store) Save(c *Config) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// Get returns the string form of a settable key, or false if the key is
// unknown. This string-keyed surface backs the `scripthub config` command.
func (c *Config) Get(key string) (string, bool) {
	switch key {
	case "repository_url":
		return c.RepositoryURL, true
	case "use_remote_scripts":
		return strconv.FormatBool(c.UseRemoteScripts), true
	case "auto_check_updates":
		return strconv.FormatBool(c.AutoCheckUpdates), true
	case "auto_install_updates":
		return strconv.FormatBool(c.AutoInstallUpdates), true
	case "update_check_interval_minutes":
		return strconv.Itoa(c.UpdateCheckIntervalMinutes), true
	case "verify_checksums":
		return strconv.FormatBool(c.VerifyChecksums), true
	case "cache_timeout_days":
		return strconv.Itoa(c.CacheTimeoutDays), true
	case "last_update_check":
		if c.LastUpdateCheck == nil {
			return "", true
		}
		return c.LastUpdateCheck.Format(time.RFC3339), true
	}
	return "", false
}

// Set parses and assigns a value to a settable key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "repository_url":
		c.RepositoryURL = value
		return nil
	case "use_remote_scripts":
		return setBool(&c.UseRemoteScripts, key, value)
	case "auto_check_updates":
		return setBool(&c.AutoCheckUpdates, key, value)
	case "auto_install_updates":
		return setBool(&c.AutoInstallUpdates, key, value)
	case "verify_checksums":
		return setBool(&c.VerifyChecksums, key, value)
	case "update_check_interval_minutes":
		return setNonNegativeInt(&c.UpdateCheckIntervalMinutes, key, value)
	case "cache_timeout_days":
		return setNonNegativeInt(&c.CacheTimeoutDays, key, value)
	}
	return fmt.Errorf("unknown config key %q", key)
}

// Unset restores a key to its default value.
func (c *Config) Unset(key string) error {
	def := Default()
	switch key {
	case "repository_url":
		c.RepositoryURL = ""
	case "use_remote_scripts":
		c.UseRemoteScripts = def.UseRemoteScripts
	case "auto_check_updates":
		c.AutoCheckUpdates = def.AutoCheckUpdates
	case "auto_install_updates":
		c.AutoInstallUpdates = def.AutoInstallUpdates
	case "verify_checksums":
		c.VerifyChecksums = def.VerifyChecksums
	case "update_check_interval_minutes":
		c.UpdateCheckIntervalMinutes = def.UpdateCheckIntervalMinutes
	case "cache_timeout_days":
		c.CacheTimeoutDays = def.CacheTimeoutDays
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func setBool(dst *bool, key, value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	*dst = v
	return nil
}

func setNonNegativeInt(dst *int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil || v < 0 {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	*dst = v
	return nil
}
