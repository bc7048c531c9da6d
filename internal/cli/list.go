package cli

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scripthub/scripthub/internal/manifest"
)

func (a *App) newListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scripts available in the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd.Context(), category)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category (install, tools, exercises, uninstall)")
	return cmd
}

func (a *App) runList(ctx context.Context, category string) error {
	m, err := a.client.LoadCached()
	if err != nil {
		m, err = a.client.Fetch(ctx, a.cfg)
		if err != nil {
			return &ExitError{Code: ExitNetwork, Message: err.Error()}
		}
	}

	entries := make([]manifest.ScriptEntry, 0, len(m.Scripts))
	for _, e := range m.Scripts {
		if category != "" && string(e.Category) != category {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return entries[i].ID < entries[j].ID
	})

	headers := []string{"ID", "Name", "Category", "Version", "Cached"}
	var rows [][]string
	for i := range entries {
		e := &entries[i]
		cached := ""
		if a.cache.IsCached(e) {
			cached = "yes"
		}
		rows = append(rows, []string{e.ID, e.Name, string(e.Category), e.Version, cached})
	}

	a.output.Table(headers, rows)
	return nil
}
