package cli

import (
	"github.com/spf13/cobra"

	"feedmail/internal/registry"
)

func addCmd(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "add <name> <url> [target]",
		Short: "Register a new feed",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.loadDatabase()
			if err != nil {
				return err
			}

			target := ""
			if len(args) == 3 {
				target = args[2]
			}
			cfg, err := registry.New(db).Add(args[0], args[1], target)
			if err != nil {
				return err
			}
			cfg.From = from
			if err := a.store.Save(db); err != nil {
				return err
			}
			cmd.Printf("added %s (%s)\n", cfg.Name, cfg.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender address override for this feed")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.loadDatabase()
			if err != nil {
				return err
			}
			for i, cfg := range registry.New(db).List() {
				marker := "*"
				if cfg.Paused {
					marker = " "
				}
				cmd.Printf("%d: [%s] %s (%s)\n", i, marker, cfg.Name, cfg.URL)
				if lastErr := db.State(cfg.Name).LastError; lastErr != "" {
					cmd.Printf("   last error: %s\n", lastErr)
				}
			}
			return nil
		},
	}
}

func pauseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <name>",
		Short: "Stop fetching a feed without forgetting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateRegistry(func(r *registry.Registry) error {
				return r.Pause(args[0])
			})
		},
	}
}

func unpauseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unpause <name>",
		Short: "Resume fetching a paused feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateRegistry(func(r *registry.Registry) error {
				return r.Unpause(args[0])
			})
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a feed and its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateRegistry(func(r *registry.Registry) error {
				return r.Delete(args[0])
			})
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <name>",
		Short: "Forget a feed's seen entries so they count as fresh again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateRegistry(func(r *registry.Registry) error {
				return r.Reset(args[0])
			})
		},
	}
}

// mutateRegistry loads the database, applies one registry operation and
// saves the result. Nothing is written when the operation fails.
func (a *app) mutateRegistry(op func(*registry.Registry) error) error {
	db, err := a.loadDatabase()
	if err != nil {
		return err
	}
	if err := op(registry.New(db)); err != nil {
		return err
	}
	return a.store.Save(db)
}
