package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scripthub/scripthub/internal/scriptcache"
	"github.com/scripthub/scripthub/internal/ui"
)

func (a *App) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show repository and cache status",
		Long:  "Shows the resolved repository origin, manifest freshness, and the state of every cached script.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd.Context())
		},
	}
}

func (a *App) runStatus(ctx context.Context) error {
	origin := a.client.ResolveRepositoryURL(a.cfg)
	a.output.Info("Repository: %s", origin)

	// Background-style check: only when enabled and actually due.
	if a.cfg.AutoCheckUpdates && a.coord.IsCheckDue(a.cfg) {
		a.debugf("update check due, refreshing manifest")
		err := ui.WithSpinner("Checking for updates...", func() error {
			_, checkErr := a.coord.CheckForUpdates(ctx, a.cfg)
			return checkErr
		})
		if err != nil {
			a.output.Warning("Update check failed: %v", err)
		}
	}

	m, err := a.client.LoadCached()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.output.Info("No manifest cached yet — run 'scripthub check-updates' first")
			return nil
		}
		return err
	}

	if meta, metaErr := a.client.LoadMetadata(); metaErr == nil {
		a.output.Info("Manifest:   version %s, fetched %s",
			meta.ManifestVersion, meta.LastFetch.Local().Format(time.RFC1123))
	}

	headers := []string{"ID", "Name", "Category", "Version", "Status"}
	var rows [][]string
	cached, outdated := 0, 0
	for i := range m.Scripts {
		e := &m.Scripts[i]
		status, statusErr := a.cache.Status(e)
		if statusErr != nil {
			a.output.Warning("Cannot read %s: %v", e.ID, statusErr)
			continue
		}
		switch status {
		case scriptcache.Cached:
			cached++
		case scriptcache.Outdated:
			outdated++
		}
		rows = append(rows, []string{e.ID, e.Name, string(e.Category), e.Version, status.String()})
	}

	a.output.Table(headers, rows)
	a.output.Println("")
	a.output.Info("%d script(s) in manifest, %d cached, %d outdated",
		len(m.Scripts), cached, outdated)

	if outdated > 0 {
		a.output.Warning("Run 'scripthub update-all' to refresh outdated scripts")
	}
	return nil
}
