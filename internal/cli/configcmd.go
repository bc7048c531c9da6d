package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func (a *App) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change configuration values",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, ok := a.cfg.Get(args[0])
				if !ok {
					return errors.New("unknown config key " + args[0])
				}
				a.output.Println("%s", v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := a.store.Save(a.cfg); err != nil {
					return err
				}
				a.output.Success("%s = %s", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Reset a configuration value to its default",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.cfg.Unset(args[0]); err != nil {
					return err
				}
				if err := a.store.Save(a.cfg); err != nil {
					return err
				}
				a.output.Success("%s reset to default", args[0])
				return nil
			},
		},
	)

	return cmd
}
