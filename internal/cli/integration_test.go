package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/scripthub/scripthub/internal/checksum"
	"github.com/scripthub/scripthub/internal/manifest"
	"github.com/scripthub/scripthub/internal/paths"
)

// setupRepoServer serves a manifest, one script, and the includes bundle.
// The script body can be swapped to simulate an upstream release.
func setupRepoServer(t *testing.T) (*httptest.Server, *atomic.Value) {
	t.Helper()

	body := &atomic.Value{}
	body.Store("#!/bin/bash\necho install docker v1\n")

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		content := body.Load().(string)
		m := manifest.Manifest{
			RepositoryVersion: "1.0.0",
			RepositoryURL:     server.URL,
			Scripts: []manifest.ScriptEntry{{
				ID:          "docker-install",
				Name:        "Docker",
				Category:    manifest.CategoryInstall,
				FileName:    "docker_install.sh",
				Version:     "1.0.0",
				DownloadURL: server.URL + "/scripts/docker_install.sh",
				Checksum:    checksum.HashBytes([]byte(content)),
			}},
		}
		json.NewEncoder(w).Encode(m)
	})
	mux.HandleFunc("/scripts/docker_install.sh", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body.Load().(string))
	})
	mux.HandleFunc("/includes/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "# shared helpers")
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, body
}

// runCommand executes one scripthub invocation against the given config dir,
// the way separate CLI processes would.
func runCommand(t *testing.T, configDir string, args ...string) error {
	t.Helper()
	app := NewApp("test", "none", "unknown")
	app.rootCmd.SetArgs(append([]string{"--config-dir", configDir}, args...))
	return app.Execute()
}

func TestFullCheckDownloadUpdateClearFlow(t *testing.T) {
	t.Setenv("SCRIPTHUB_CI", "1") // plain output, no spinner/prompt TTY
	server, body := setupRepoServer(t)

	configDir := t.TempDir()
	p := paths.New(configDir)

	// Point the repository origin at the test server.
	if err := runCommand(t, configDir, "config", "set", "repository_url", server.URL); err != nil {
		t.Fatalf("config set: %v", err)
	}

	// First check fetches and persists the manifest.
	if err := runCommand(t, configDir, "check-updates"); err != nil {
		t.Fatalf("check-updates: %v", err)
	}
	if _, err := os.Stat(p.ManifestFile); err != nil {
		t.Fatalf("manifest should be persisted: %v", err)
	}
	if _, err := os.Stat(p.ManifestMetaFile); err != nil {
		t.Fatalf("manifest metadata should be persisted: %v", err)
	}

	// Download the script into the cache.
	if err := runCommand(t, configDir, "download", "docker-install"); err != nil {
		t.Fatalf("download: %v", err)
	}
	scriptPath := filepath.Join(p.CacheDir, "install", "docker_install.sh")
	info, err := os.Stat(scriptPath)
	if err != nil {
		t.Fatalf("script should be cached: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("cached script should be executable")
	}

	// Upstream publishes a new version; update-all replaces the stale copy.
	body.Store("#!/bin/bash\necho install docker v2\n")
	if err := runCommand(t, configDir, "update-all"); err != nil {
		t.Fatalf("update-all: %v", err)
	}
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#!/bin/bash\necho install docker v2\n" {
		t.Errorf("script should be updated, got %q", string(data))
	}

	// status and list run cleanly against the populated cache.
	if err := runCommand(t, configDir, "status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if err := runCommand(t, configDir, "list", "--category", "install"); err != nil {
		t.Fatalf("list: %v", err)
	}

	// clear-cache with --yes wipes the tree.
	if err := runCommand(t, configDir, "clear-cache", "--yes"); err != nil {
		t.Fatalf("clear-cache: %v", err)
	}
	if _, err := os.Stat(scriptPath); !os.IsNotExist(err) {
		t.Error("cache should be empty after clear-cache")
	}

	// Activity log recorded the operations.
	logData, err := os.ReadFile(p.LogFile)
	if err != nil {
		t.Fatalf("activity log should exist: %v", err)
	}
	if len(logData) == 0 {
		t.Error("activity log should not be empty")
	}
}

func TestClearCacheRefusesWithoutConfirmationInCI(t *testing.T) {
	t.Setenv("SCRIPTHUB_CI", "1")
	configDir := t.TempDir()

	if err := runCommand(t, configDir, "clear-cache"); err == nil {
		t.Error("clear-cache without --yes should fail in CI")
	}
}

func TestDownloadUnknownScript(t *testing.T) {
	t.Setenv("SCRIPTHUB_CI", "1")
	server, _ := setupRepoServer(t)
	configDir := t.TempDir()

	if err := runCommand(t, configDir, "config", "set", "repository_url", server.URL); err != nil {
		t.Fatal(err)
	}
	err := runCommand(t, configDir, "download", "no-such-script")
	if err == nil {
		t.Fatal("downloading an unknown id should fail")
	}
}

func TestRepositoryFlagNotPersisted(t *testing.T) {
	t.Setenv("SCRIPTHUB_CI", "1")
	server, _ := setupRepoServer(t)
	configDir := t.TempDir()

	if err := runCommand(t, configDir, "--repository", server.URL, "check-updates"); err != nil {
		t.Fatalf("check-updates: %v", err)
	}
	if _, err := os.Stat(paths.New(configDir).ManifestFile); err != nil {
		t.Fatalf("manifest should be fetched via the flagged origin: %v", err)
	}

	// The flag is one-shot: the config saved by the fetch must not carry it.
	data, err := os.ReadFile(paths.New(configDir).ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if url, ok := cfg["repository_url"]; ok && url != "" {
		t.Errorf("repository_url = %v, want unset after a flagged invocation", url)
	}
}

func TestConfigRoundTripAcrossInvocations(t *testing.T) {
	t.Setenv("SCRIPTHUB_CI", "1")
	configDir := t.TempDir()

	if err := runCommand(t, configDir, "config", "set", "auto_install_updates", "true"); err != nil {
		t.Fatal(err)
	}
	if err := runCommand(t, configDir, "config", "get", "auto_install_updates"); err != nil {
		t.Fatal(err)
	}

	// The value must survive into a fresh invocation.
	data, err := os.ReadFile(paths.New(configDir).ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg["auto_install_updates"] != true {
		t.Errorf("auto_install_updates = %v, want true", cfg["auto_install_updates"])
	}

	if err := runCommand(t, configDir, "config", "unset", "auto_install_updates"); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(paths.New(configDir).ConfigFile)
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg["auto_install_updates"] != false {
		t.Errorf("auto_install_updates after unset = %v, want false", cfg["auto_install_updates"])
	}
}
