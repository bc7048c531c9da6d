package scriptcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scripthub/scripthub/internal/checksum"
	"github.com/scripthub/scripthub/internal/errs"
	"github.com/scripthub/scripthub/internal/manifest"
)

// fakeFetcher serves canned bytes per URL.
type fakeFetcher struct {
	files map[string][]byte
}

func (f *fakeFetcher) FetchBytes(_ context.Context, url string) ([]byte, error) {
	data, ok := f.files[url]
	if !ok {
		return nil, &errs.TransportError{URL: url, Err: errors.New("HTTP 404")}
	}
	return data, nil
}

func entryFor(id string, content []byte) manifest.ScriptEntry {
	return manifest.ScriptEntry{
		ID:          id,
		Name:        id,
		Category:    manifest.CategoryInstall,
		FileName:    id + ".sh",
		Version:     "1.0.0",
		DownloadURL: "https://repo.test/scripts/" + id + ".sh",
		Checksum:    checksum.HashBytes(content),
	}
}

func TestPathFor(t *testing.T) {
	c := New("/cache", nil)
	entry := manifest.ScriptEntry{Category: manifest.CategoryTools, FileName: "htop_install.sh"}
	assert.Equal(t, filepath.Join("/cache", "tools", "htop_install.sh"), c.PathFor(&entry))
}

func TestStatusLifecycle(t *testing.T) {
	content := []byte("#!/bin/bash\napt-get install -y docker.io\n")
	entry := entryFor("docker-install", content)

	fetcher := &fakeFetcher{files: map[string][]byte{entry.DownloadURL: content}}
	c := New(t.TempDir(), fetcher)

	status, err := c.Status(&entry)
	require.NoError(t, err)
	assert.Equal(t, NotInstalled, status)
	assert.False(t, c.IsCached(&entry))

	require.NoError(t, c.Download(context.Background(), &entry))

	status, err = c.Status(&entry)
	require.NoError(t, err)
	assert.Equal(t, Cached, status)
	assert.True(t, c.IsCached(&entry))

	// Downloaded script must be executable.
	info, err := os.Stat(c.PathFor(&entry))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)

	// Manifest refresh changes the checksum: entry becomes outdated.
	newContent := []byte("#!/bin/bash\napt-get install -y docker-ce\n")
	updated := entry
	updated.Checksum = checksum.HashBytes(newContent)
	fetcher.files[entry.DownloadURL] = newContent

	status, err = c.Status(&updated)
	require.NoError(t, err)
	assert.Equal(t, Outdated, status)

	n, failed := c.UpdateStaleOnly(context.Background(), []manifest.ScriptEntry{updated})
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, failed)

	status, err = c.Status(&updated)
	require.NoError(t, err)
	assert.Equal(t, Cached, status)
}

func TestDownloadIdempotent(t *testing.T) {
	content := []byte("echo idempotent")
	entry := entryFor("noop", content)
	fetcher := &fakeFetcher{files: map[string][]byte{entry.DownloadURL: content}}
	c := New(t.TempDir(), fetcher)

	ctx := context.Background()
	require.NoError(t, c.Download(ctx, &entry))
	first, err := os.ReadFile(c.PathFor(&entry))
	require.NoError(t, err)

	require.NoError(t, c.Download(ctx, &entry))
	second, err := os.ReadFile(c.PathFor(&entry))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDownloadIntegrityFailureKeepsPreviousCopy(t *testing.T) {
	content := []byte("good version")
	entry := entryFor("vpn-install", content)
	fetcher := &fakeFetcher{files: map[string][]byte{entry.DownloadURL: content}}
	c := New(t.TempDir(), fetcher)

	ctx := context.Background()
	require.NoError(t, c.Download(ctx, &entry))

	// Remote now serves bytes that do not match the manifest checksum.
	fetcher.files[entry.DownloadURL] = []byte("corrupted download")

	err := c.Download(ctx, &entry)
	var integrityErr *errs.IntegrityError
	require.ErrorAs(t, err, &integrityErr)

	// Previous copy is byte-identical and no temp file is left behind.
	data, err := os.ReadFile(c.PathFor(&entry))
	require.NoError(t, err)
	assert.Equal(t, content, data)
	_, err = os.Stat(c.PathFor(&entry) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadSkipsVerificationWhenDisabled(t *testing.T) {
	entry := entryFor("unverified", []byte("expected content"))
	fetcher := &fakeFetcher{files: map[string][]byte{entry.DownloadURL: []byte("other content")}}
	c := New(t.TempDir(), fetcher, WithVerification(false))

	require.NoError(t, c.Download(context.Background(), &entry))
	data, err := os.ReadFile(c.PathFor(&entry))
	require.NoError(t, err)
	assert.Equal(t, []byte("other content"), data)
}

func TestDownloadAllCountsFailures(t *testing.T) {
	a := entryFor("a", []byte("aaa"))
	b := entryFor("b", []byte("bbb"))
	fetcher := &fakeFetcher{files: map[string][]byte{a.DownloadURL: []byte("aaa")}}
	c := New(t.TempDir(), fetcher)

	succeeded, failed := c.DownloadAll(context.Background(), []manifest.ScriptEntry{a, b})
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	// The failure must not have blocked the good entry.
	assert.True(t, c.IsCached(&a))
	assert.False(t, c.IsCached(&b))
}

func TestUpdateStaleOnlySkipsNotInstalled(t *testing.T) {
	entry := entryFor("never-installed", []byte("content"))
	fetcher := &fakeFetcher{files: map[string][]byte{entry.DownloadURL: []byte("content")}}
	c := New(t.TempDir(), fetcher)

	updated, failed := c.UpdateStaleOnly(context.Background(), []manifest.ScriptEntry{entry})
	assert.Equal(t, 0, updated)
	assert.Equal(t, 0, failed)
	assert.False(t, c.IsCached(&entry), "background update must not install new scripts")
}

func TestClear(t *testing.T) {
	content := []byte("data")
	entry := entryFor("x", content)
	fetcher := &fakeFetcher{files: map[string][]byte{entry.DownloadURL: content}}
	c := New(t.TempDir(), fetcher)
	require.NoError(t, c.Download(context.Background(), &entry))

	// Refuses without explicit confirmation.
	require.Error(t, c.Clear(false))
	assert.True(t, c.IsCached(&entry))

	require.NoError(t, c.Clear(true))
	assert.False(t, c.IsCached(&entry))

	// Root is recreated empty.
	entries, err := os.ReadDir(c.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadRejectsUnsafeFileNames(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
	}{
		{"empty", ""},
		{"parent traversal", "../escape.sh"},
		{"absolute", "/etc/profile"},
		{"nested", "sub/dir.sh"},
	}
	c := New(t.TempDir(), &fakeFetcher{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := manifest.ScriptEntry{
				ID:          "bad",
				Category:    manifest.CategoryInstall,
				FileName:    tt.fileName,
				DownloadURL: "https://repo.test/bad",
			}
			require.Error(t, c.Download(context.Background(), &entry))
		})
	}
}
