package cli

import (
	"github.com/spf13/cobra"

	"github.com/scripthub/scripthub/internal/ui"
)

func (a *App) newClearCacheCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete every cached script and the includes bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClearCache(yes)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func (a *App) runClearCache(yes bool) error {
	if !yes {
		if ui.IsCI() {
			return &ExitError{Code: ExitGeneral,
				Message: "clear-cache requires --yes in non-interactive environments"}
		}
		confirmed, err := ui.Confirm("Delete all cached scripts under " + a.cache.Root() + "?")
		if err != nil {
			return err
		}
		if !confirmed {
			a.output.Info("Aborted")
			return nil
		}
	}

	if err := a.cache.Clear(true); err != nil {
		return err
	}
	a.output.Success("Cache cleared")
	return nil
}
