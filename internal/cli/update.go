package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/scripthub/scripthub/internal/manifest"
	"github.com/scripthub/scripthub/internal/ui"
)

func (a *App) newUpdateAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-all",
		Short: "Update every outdated cached script",
		Long:  "Refreshes the manifest and re-downloads cached scripts whose checksum no longer matches. Scripts that were never downloaded are left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpdateAll(cmd.Context())
		},
	}
}

func (a *App) runUpdateAll(ctx context.Context) error {
	var m *manifest.Manifest
	err := ui.WithSpinner("Refreshing manifest...", func() error {
		var fetchErr error
		m, fetchErr = a.client.Fetch(ctx, a.cfg)
		return fetchErr
	})
	if err != nil {
		return &ExitError{Code: ExitNetwork, Message: "refreshing manifest: " + err.Error()}
	}

	var updated, failed int
	err = ui.WithSpinner("Updating stale scripts...", func() error {
		updated, failed = a.cache.UpdateStaleOnly(ctx, m.Scripts)
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case updated == 0 && failed == 0:
		a.output.Success("Everything is up to date")
	case failed == 0:
		a.output.Success("Updated %d script(s)", updated)
	default:
		a.output.Warning("Updated %d script(s), %d failed — see %s", updated, failed, a.paths.LogFile)
	}
	return nil
}
