package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"feedmail/internal/registry"
	"feedmail/internal/storage"
)

func newCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new <address>",
		Short: "Create a fresh feed database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.store.Load(); err == nil {
				return fmt.Errorf("database already exists at %s", a.store.Path())
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}

			db := storage.NewDatabase()
			db.DefaultTarget = args[0]
			if err := a.store.Save(db); err != nil {
				return err
			}
			cmd.Printf("created %s, mailing to %s\n", a.store.Path(), args[0])
			return nil
		},
	}
}

func emailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "email <address>",
		Short: "Change the default delivery address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.loadDatabase()
			if err != nil {
				return err
			}
			registry.New(db).SetDefaultTarget(args[0])
			return a.store.Save(db)
		},
	}
}
