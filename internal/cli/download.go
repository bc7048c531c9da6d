package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/scripthub/scripthub/internal/errs"
	"github.com/scripthub/scripthub/internal/manifest"
	"github.com/scripthub/scripthub/internal/ui"
)

func (a *App) newDownloadCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "download [id]",
		Short: "Download a script into the local cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return a.runDownloadAll(cmd.Context())
			}
			if len(args) != 1 {
				return errors.New("script id required (or use --all)")
			}
			return a.runDownload(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "download every script in the manifest")
	return cmd
}

// loadManifest returns the cached manifest, fetching it first if none exists.
func (a *App) loadManifest(ctx context.Context) (*manifest.Manifest, error) {
	m, err := a.client.LoadCached()
	if err != nil {
		m, err = a.client.Fetch(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// resolveClosure returns the script and its dependency closure in download
// order, dependencies first.
func (a *App) resolveClosure(ctx context.Context, id string) ([]manifest.ScriptEntry, error) {
	m, err := a.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	return m.Resolve([]string{id})
}

func (a *App) runDownload(ctx context.Context, id string) error {
	entries, err := a.resolveClosure(ctx, id)
	if err != nil {
		var notFound *errs.NotFoundError
		if errors.As(err, &notFound) {
			return &ExitError{Code: ExitGeneral, Message: err.Error()}
		}
		return err
	}

	err = ui.WithSpinner("Downloading "+id+"...", func() error {
		for i := range entries {
			if dlErr := a.cache.Download(ctx, &entries[i]); dlErr != nil {
				return dlErr
			}
			a.debugf("downloaded %s", entries[i].ID)
		}
		return nil
	})
	if err != nil {
		var integrityErr *errs.IntegrityError
		if errors.As(err, &integrityErr) {
			return &ExitError{Code: ExitGeneral, Message: err.Error()}
		}
		return &ExitError{Code: ExitNetwork, Message: err.Error()}
	}

	if len(entries) > 1 {
		a.output.Success("Downloaded %s and %d dependency(ies)", id, len(entries)-1)
	} else {
		a.output.Success("Downloaded %s to %s", id, a.cache.PathFor(&entries[len(entries)-1]))
	}
	return nil
}

func (a *App) runDownloadAll(ctx context.Context) error {
	var m *manifest.Manifest
	err := ui.WithSpinner("Refreshing manifest...", func() error {
		var fetchErr error
		m, fetchErr = a.client.Fetch(ctx, a.cfg)
		return fetchErr
	})
	if err != nil {
		return &ExitError{Code: ExitNetwork, Message: err.Error()}
	}

	var succeeded, failed int
	err = ui.WithSpinner("Downloading scripts...", func() error {
		succeeded, failed = a.cache.DownloadAll(ctx, m.Scripts)
		return nil
	})
	if err != nil {
		return err
	}

	if failed == 0 {
		a.output.Success("Downloaded %d script(s)", succeeded)
	} else {
		a.output.Warning("Downloaded %d script(s), %d failed — see %s", succeeded, failed, a.paths.LogFile)
	}
	return nil
}
