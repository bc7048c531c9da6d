package cli

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/scripthub/scripthub/internal/manifest"
	"github.com/scripthub/scripthub/internal/scriptcache"
	"github.com/scripthub/scripthub/internal/ui"
)

func (a *App) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <id> [args...]",
		Short: "Run a cached script, downloading it first if needed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScript(cmd.Context(), args[0], args[1:])
		},
	}
}

func (a *App) runScript(ctx context.Context, id string, args []string) error {
	entries, err := a.resolveClosure(ctx, id)
	if err != nil {
		return &ExitError{Code: ExitGeneral, Message: err.Error()}
	}

	var entry *manifest.ScriptEntry
	for i := range entries {
		e := &entries[i]
		status, statusErr := a.cache.Status(e)
		if statusErr != nil {
			return statusErr
		}
		if e.ID == id {
			entry = e
			if status == scriptcache.Outdated {
				a.output.Warning("Cached copy of %s is outdated; run 'scripthub update-all' to refresh", id)
			}
		}
		if status != scriptcache.NotInstalled {
			continue
		}
		if !a.cfg.UseRemoteScripts {
			return &ExitError{Code: ExitGeneral,
				Message: "script " + e.ID + " is not cached and use_remote_scripts is disabled"}
		}
		dlErr := ui.WithSpinner("Downloading "+e.Name+"...", func() error {
			return a.cache.Download(ctx, e)
		})
		if dlErr != nil {
			return &ExitError{Code: ExitNetwork, Message: dlErr.Error()}
		}
	}
	if entry == nil {
		return &ExitError{Code: ExitGeneral, Message: "script " + id + " not in resolved set"}
	}

	// Scripts source the includes bundle at execution time.
	origin := a.client.ResolveRepositoryURL(a.cfg)
	if err := a.coord.SyncIncludes(ctx, origin); err != nil {
		return &ExitError{Code: ExitNetwork, Message: "syncing includes: " + err.Error()}
	}

	path := a.cache.PathFor(entry)
	a.log.Sugar().Infow("running script", "id", id, "path", path)

	cmd := exec.CommandContext(ctx, "/bin/bash", append([]string{path}, args...)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "SCRIPTHUB_INCLUDES="+a.paths.IncludesDir)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Message: id + " exited with an error"}
		}
		return err
	}
	return nil
}
