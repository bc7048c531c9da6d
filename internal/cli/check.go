package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/scripthub/scripthub/internal/ui"
	"github.com/scripthub/scripthub/internal/updater"
)

func (a *App) newCheckUpdatesCmd() *cobra.Command {
	var ifDue bool
	cmd := &cobra.Command{
		Use:   "check-updates",
		Short: "Refresh the manifest and list stale scripts",
		Long:  "Fetches the manifest from the repository origin and reports which cached scripts are outdated. With auto_install_updates enabled, stale scripts are replaced immediately.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheckUpdates(cmd.Context(), ifDue)
		},
	}
	cmd.Flags().BoolVar(&ifDue, "if-due", false, "skip the check unless the configured interval has elapsed")
	return cmd
}

func (a *App) runCheckUpdates(ctx context.Context, ifDue bool) error {
	if ifDue && !a.coord.IsCheckDue(a.cfg) {
		a.debugf("update check not due yet, showing cached diff")
		stale, listErr := a.coord.ListAvailableUpdates()
		if listErr != nil {
			return listErr
		}
		if len(stale) == 0 {
			a.output.Info("Update check not due yet; no known stale scripts")
			return nil
		}
		a.output.Info("Update check not due yet; %d known update(s):", len(stale))
		for i := range stale {
			a.output.Println("  %s   %s (%s)", stale[i].ID, stale[i].Name, stale[i].Version)
		}
		return nil
	}

	var report *updater.Report
	err := ui.WithSpinner("Checking for updates...", func() error {
		var checkErr error
		report, checkErr = a.coord.CheckForUpdates(ctx, a.cfg)
		return checkErr
	})
	if err != nil {
		return &ExitError{Code: ExitNetwork, Message: "update check failed: " + err.Error()}
	}

	a.output.Info("Manifest version %s, %d script(s) checked", report.ManifestVersion, report.Checked)

	if len(report.Available) == 0 {
		a.output.Success("All cached scripts are up to date")
		return nil
	}

	a.output.Info("%d update(s) available:", len(report.Available))
	for i := range report.Available {
		e := &report.Available[i]
		a.output.Println("  %s   %s (%s)", e.ID, e.Name, e.Version)
	}

	if report.AutoInstalled {
		a.output.Success("Auto-installed %d update(s), %d failed", report.Updated, report.Failed)
	} else {
		a.output.Info("Run 'scripthub update-all' to apply them")
	}
	return nil
}
