package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFirstRunCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "config.json"))

	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !c.VerifyChecksums {
		t.Error("verify_checksums should default to true")
	}
	if !c.UseRemoteScripts {
		t.Error("use_remote_scripts should default to true")
	}
	if c.AutoInstallUpdates {
		t.Error("auto_install_updates should default to false")
	}
	if c.UpdateCheckIntervalMinutes != 1440 {
		t.Errorf("update_check_interval_minutes = %d, want 1440", c.UpdateCheckIntervalMinutes)
	}
	if c.LastUpdateCheck != nil {
		t.Error("last_update_check should default to null")
	}

	// Defaults must have been written back to disk.
	if _, err := os.Stat(store.Path()); err != nil {
		t.Errorf("config file should exist after first load: %v", err)
	}
}

func TestLoadCorruptFileReinitializes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	store := NewStore(path)
	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load() should not fail on corrupt config: %v", err)
	}
	if !c.VerifyChecksums {
		t.Error("corrupt config should be replaced with defaults")
	}

	data, _ := os.ReadFile(path)
	var round Config
	if err := json.Unmarshal(data, &round); err != nil {
		t.Errorf("rewritten config should be valid JSON: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "config.json"))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Default()
	c.RepositoryURL = "https://example.com/repo"
	c.AutoInstallUpdates = true
	c.LastUpdateCheck = &now

	if err := store.Save(c); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.RepositoryURL != c.RepositoryURL {
		t.Errorf("RepositoryURL = %q, want %q", loaded.RepositoryURL, c.RepositoryURL)
	}
	if !loaded.AutoInstallUpdates {
		t.Error("AutoInstallUpdates should round-trip")
	}
	if loaded.LastUpdateCheck == nil || !loaded.LastUpdateCheck.Equal(now) {
		t.Errorf("LastUpdateCheck = %v, want %v", loaded.LastUpdateCheck, now)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "config.json"))
	if err := store.Save(Default()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after save")
	}
}

func TestGetSetUnset(t *testing.T) {
	c := Default()

	if err := c.Set("repository_url", "https://example.com"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if v, ok := c.Get("repository_url"); !ok || v != "https://example.com" {
		t.Errorf("Get(repository_url) = %q, %v", v, ok)
	}

	if err := c.Set("auto_install_updates", "true"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if !c.AutoInstallUpdates {
		t.Error("Set should parse bool values")
	}

	if err := c.Set("update_check_interval_minutes", "-5"); err == nil {
		t.Error("negative interval should be rejected")
	}
	if err := c.Set("verify_checksums", "banana"); err == nil {
		t.Error("non-bool value should be rejected")
	}
	if err := c.Set("nope", "x"); err == nil {
		t.Error("unknown key should be rejected")
	}

	if err := c.Unset("auto_install_updates"); err != nil {
		t.Fatalf("Unset() error: %v", err)
	}
	if c.AutoInstallUpdates {
		t.Error("Unset should restore the default")
	}
	if err := c.Unset("nope"); err == nil {
		t.Error("unknown key should be rejected by Unset")
	}
}
